package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
)

const transactionColumns = `id, user_id, description, amount, type, date, category, source, status,
	is_recurring, installment_number, total_installments, confidence_score, template_id, created_at, updated_at`

type TransactionRepository struct {
	db *pgxpool.Pool
}

// TransactionFilter ограничивает выборку интервалом дат включительно.
type TransactionFilter struct {
	From *time.Time
	To   *time.Time
}

// TransactionPatch содержит изменяемые поля. Nil означает "не менять".
// Статус меняется только через Settle.
type TransactionPatch struct {
	Description     *string
	Amount          *decimal.Decimal
	Type            *models.TransactionType
	Date            *time.Time
	Category        *string
	IsRecurring     *bool
	ConfidenceScore *float64
}

// SettleResult возвращает проведенную транзакцию и порожденный следующий экземпляр.
type SettleResult struct {
	Settled  models.Transaction  `json:"settled"`
	FollowUp *models.Transaction `json:"follow_up,omitempty"`
}

// NewTransactionRepository создает репозиторий транзакций.
func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// List возвращает транзакции пользователя от новых к старым.
func (r *TransactionRepository) List(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE user_id = $1
		   AND ($2::date IS NULL OR date >= $2::date)
		   AND ($3::date IS NULL OR date <= $3::date)
		 ORDER BY date DESC, created_at DESC`,
		userID, filter.From, filter.To,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}

// GetByID возвращает транзакцию пользователя.
func (r *TransactionRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (models.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	return tx, translate(err)
}

// Create сохраняет транзакцию. Пустой идентификатор заменяется новым.
func (r *TransactionRepository) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	created, err := insertTransaction(ctx, r.db, tx)
	return created, translate(err)
}

// CreateMany сохраняет транзакции по одной. При ошибке возвращает уже сохраненные
// записи вместе с ошибкой: частичный результат допустим.
func (r *TransactionRepository) CreateMany(ctx context.Context, transactions []models.Transaction) ([]models.Transaction, error) {
	created := make([]models.Transaction, 0, len(transactions))
	for i, tx := range transactions {
		saved, err := insertTransaction(ctx, r.db, tx)
		if err != nil {
			return created, fmt.Errorf("insert transaction %d of %d: %w", i+1, len(transactions), translate(err))
		}
		created = append(created, saved)
	}
	return created, nil
}

// Update применяет частичное изменение. Для дохода флаг повтора всегда сбрасывается.
func (r *TransactionRepository) Update(ctx context.Context, userID, id uuid.UUID, patch TransactionPatch) (models.Transaction, error) {
	var txType *string
	if patch.Type != nil {
		value := string(*patch.Type)
		txType = &value
	}

	tx, err := scanTransaction(r.db.QueryRow(ctx,
		`UPDATE transactions
		 SET description = COALESCE($3, description),
		     amount = COALESCE($4::numeric, amount),
		     type = COALESCE($5, type),
		     date = COALESCE($6::date, date),
		     category = COALESCE($7, category),
		     is_recurring = CASE
		         WHEN COALESCE($5, type) = 'income' THEN FALSE
		         ELSE COALESCE($8, is_recurring)
		     END,
		     confidence_score = COALESCE($9, confidence_score),
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+transactionColumns,
		id, userID, patch.Description, patch.Amount, txType, patch.Date, patch.Category, patch.IsRecurring, patch.ConfidenceScore,
	))
	return tx, translate(err)
}

// Delete удаляет транзакцию пользователя.
func (r *TransactionRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Settle проводит ожидающую транзакцию. Для повторяющегося расхода в той же
// транзакции БД создается экземпляр на следующий месяц: либо обе записи, либо ни одной.
// Повторное проведение возвращает ErrConflict.
func (r *TransactionRepository) Settle(ctx context.Context, userID, id uuid.UUID) (SettleResult, error) {
	var result SettleResult

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return result, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	current, err := scanTransaction(tx.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		id, userID,
	))
	if err != nil {
		return result, translate(err)
	}

	if current.IsSettled() {
		return result, ErrConflict
	}

	settled, err := scanTransaction(tx.QueryRow(ctx,
		`UPDATE transactions
		 SET status = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+transactionColumns,
		current.ID, models.StatusSettled,
	))
	if err != nil {
		return result, err
	}
	result.Settled = settled

	if finance.NeedsFollowUp(current) {
		next, err := insertTransaction(ctx, tx, finance.NextInstance(current))
		if err != nil {
			return SettleResult{}, fmt.Errorf("insert follow-up: %w", err)
		}
		result.FollowUp = &next
	}

	if err := tx.Commit(ctx); err != nil {
		return SettleResult{}, err
	}

	return result, nil
}

func insertTransaction(ctx context.Context, q querier, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	return scanTransaction(q.QueryRow(ctx,
		`INSERT INTO transactions
		 (id, user_id, description, amount, type, date, category, source, status,
		  is_recurring, installment_number, total_installments, confidence_score, template_id)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6::date, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING `+transactionColumns,
		tx.ID,
		tx.UserID,
		tx.Description,
		tx.Amount,
		string(tx.Type),
		tx.Date,
		tx.Category,
		string(tx.Source),
		string(tx.Status),
		tx.IsRecurring && tx.IsExpense(),
		tx.InstallmentNumber,
		tx.TotalInstallments,
		tx.ConfidenceScore,
		tx.TemplateID,
	))
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Description,
		&tx.Amount,
		&tx.Type,
		&tx.Date,
		&tx.Category,
		&tx.Source,
		&tx.Status,
		&tx.IsRecurring,
		&tx.InstallmentNumber,
		&tx.TotalInstallments,
		&tx.ConfidenceScore,
		&tx.TemplateID,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	return tx, err
}
