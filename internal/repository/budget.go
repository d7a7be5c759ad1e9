package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/models"
)

const budgetColumns = `id, user_id, category, amount, created_at, updated_at`

type BudgetRepository struct {
	db *pgxpool.Pool
}

// NewBudgetRepository создает репозиторий бюджетов.
func NewBudgetRepository(db *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// List возвращает бюджеты пользователя по алфавиту категорий.
func (r *BudgetRepository) List(ctx context.Context, userID uuid.UUID) ([]models.Budget, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+budgetColumns+`
		 FROM budgets
		 WHERE user_id = $1
		 ORDER BY lower(category)`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := make([]models.Budget, 0)
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, budget)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return budgets, nil
}

// Create заводит бюджет. Вторая запись на ту же категорию дает ErrConflict.
func (r *BudgetRepository) Create(ctx context.Context, userID uuid.UUID, category string, amount decimal.Decimal) (models.Budget, error) {
	budget, err := scanBudget(r.db.QueryRow(ctx,
		`INSERT INTO budgets (user_id, category, amount)
		 VALUES ($1, $2, $3::numeric)
		 RETURNING `+budgetColumns,
		userID, category, amount,
	))
	return budget, translate(err)
}

// Update меняет лимит бюджета.
func (r *BudgetRepository) Update(ctx context.Context, userID, id uuid.UUID, amount decimal.Decimal) (models.Budget, error) {
	budget, err := scanBudget(r.db.QueryRow(ctx,
		`UPDATE budgets
		 SET amount = $3::numeric, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+budgetColumns,
		id, userID, amount,
	))
	return budget, translate(err)
}

// Delete удаляет бюджет.
func (r *BudgetRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanBudget(row pgx.Row) (models.Budget, error) {
	var budget models.Budget
	err := row.Scan(&budget.ID, &budget.UserID, &budget.Category, &budget.Amount, &budget.CreatedAt, &budget.UpdatedAt)
	return budget, err
}
