package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fmmarmello/finAI/internal/finance"
)

// SeedResult сообщает, сколько записей реально добавлено.
type SeedResult struct {
	Transactions int `json:"transactions"`
	Budgets      int `json:"budgets"`
}

// SeedSampleData заполняет аккаунт демонстрационными данными в одной транзакции БД.
// Уже существующие записи пропускаются.
func SeedSampleData(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID) (SeedResult, error) {
	var result SeedResult

	tx, err := db.Begin(ctx)
	if err != nil {
		return result, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := seedCategories(ctx, tx, userID); err != nil {
		return result, fmt.Errorf("seed categories: %w", err)
	}

	for _, sample := range finance.SampleTransactions(userID) {
		cmd, err := tx.Exec(ctx,
			`INSERT INTO transactions
			 (id, user_id, description, amount, type, date, category, source, status, is_recurring)
			 VALUES ($1, $2, $3, $4::numeric, $5, $6::date, $7, $8, $9, FALSE)
			 ON CONFLICT (id) DO NOTHING`,
			sample.ID,
			sample.UserID,
			sample.Description,
			sample.Amount,
			string(sample.Type),
			sample.Date,
			sample.Category,
			string(sample.Source),
			string(sample.Status),
		)
		if err != nil {
			return SeedResult{}, fmt.Errorf("seed transaction %q: %w", sample.Description, err)
		}
		result.Transactions += int(cmd.RowsAffected())
	}

	for _, budget := range finance.SampleBudgets(userID) {
		cmd, err := tx.Exec(ctx,
			`INSERT INTO budgets (user_id, category, amount)
			 VALUES ($1, $2, $3::numeric)
			 ON CONFLICT (user_id, lower(category)) DO NOTHING`,
			budget.UserID, budget.Category, budget.Amount,
		)
		if err != nil {
			return SeedResult{}, fmt.Errorf("seed budget %q: %w", budget.Category, err)
		}
		result.Budgets += int(cmd.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return SeedResult{}, err
	}

	return result, nil
}
