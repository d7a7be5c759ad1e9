package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminRepository struct {
	db *pgxpool.Pool
}

// AdminUser - пользователь с объемом его данных.
type AdminUser struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name,omitempty"`
	Currency     string    `json:"currency"`
	Transactions int       `json:"transactions"`
	Budgets      int       `json:"budgets"`
	CreatedAt    time.Time `json:"created_at"`
}

// AIRequestFilter: nil-поля не ограничивают выборку.
type AIRequestFilter struct {
	UserID          *uuid.UUID
	Success         *bool
	RequestType     *string
	IncludePayloads bool
}

type AIRequestRecord struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	RequestType     string          `json:"request_type"`
	Provider        string          `json:"provider"`
	Model           string          `json:"model"`
	Prompt          *string         `json:"prompt,omitempty"`
	RequestPayload  json.RawMessage `json:"request_payload,omitempty"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty"`
	RawResponse     *string         `json:"raw_response,omitempty"`
	Success         bool            `json:"success"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type DailyCount struct {
	Day   string `json:"date"`
	Count int    `json:"count"`
}

// TypeCount разбивает обращения к модели по типу запроса.
type TypeCount struct {
	RequestType string `json:"request_type"`
	Success     int    `json:"success"`
	Fail        int    `json:"fail"`
}

type UsageStats struct {
	Users               int          `json:"users"`
	Transactions        int          `json:"transactions"`
	PendingTransactions int          `json:"pending_transactions"`
	Budgets             int          `json:"budgets"`
	Insights            int          `json:"insights"`
	AIRequests          int          `json:"ai_requests"`
	AISuccess           int          `json:"ai_success"`
	AIFail              int          `json:"ai_fail"`
	AIByType            []TypeCount  `json:"ai_by_type"`
	AIRequestsByDay     []DailyCount `json:"ai_requests_by_day"`
}

const aiRequestWhere = `
	WHERE (@user_id::uuid IS NULL OR user_id = @user_id)
	  AND (@success::boolean IS NULL OR success = @success)
	  AND (@request_type::text IS NULL OR request_type = @request_type)`

const (
	aiRequestPayloads   = `prompt, request_payload, response_payload, raw_response`
	aiRequestNoPayloads = `NULL::text, NULL::jsonb, NULL::jsonb, NULL::text`
)

// NewAdminRepository создает репозиторий для админских запросов.
func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

// ListUsers возвращает страницу пользователей с числом транзакций и бюджетов.
func (r *AdminRepository) ListUsers(ctx context.Context, limit, offset int) ([]AdminUser, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.email, u.name, u.currency,
		        (SELECT COUNT(*) FROM transactions t WHERE t.user_id = u.id),
		        (SELECT COUNT(*) FROM budgets b WHERE b.user_id = u.id),
		        u.created_at
		 FROM users u
		 ORDER BY u.created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}

	users, err := pgx.CollectRows(rows, pgx.RowToStructByPos[AdminUser])
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListAIRequests возвращает журнал обращений к модели и общее число записей
// под фильтром. Без IncludePayloads тяжелые колонки не читаются.
func (r *AdminRepository) ListAIRequests(ctx context.Context, filter AIRequestFilter, limit, offset int) ([]AIRequestRecord, int, error) {
	args := pgx.NamedArgs{
		"user_id":      filter.UserID,
		"success":      filter.Success,
		"request_type": filter.RequestType,
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ai_requests`+aiRequestWhere, args).Scan(&total); err != nil {
		return nil, 0, err
	}

	payloads := aiRequestNoPayloads
	if filter.IncludePayloads {
		payloads = aiRequestPayloads
	}

	args["limit"] = limit
	args["offset"] = offset
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, request_type, provider, model, `+payloads+`, success, error_message, created_at
		 FROM ai_requests`+aiRequestWhere+`
		 ORDER BY created_at DESC
		 LIMIT @limit OFFSET @offset`,
		args,
	)
	if err != nil {
		return nil, 0, err
	}

	requests, err := pgx.CollectRows(rows, pgx.RowToStructByPos[AIRequestRecord])
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// UsageStats считает объем данных и обращения к модели, по дням за последние days дней.
func (r *AdminRepository) UsageStats(ctx context.Context, days int) (UsageStats, error) {
	var stats UsageStats
	if days <= 0 {
		return stats, ErrInvalid
	}

	if err := r.db.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM users),
		        (SELECT COUNT(*) FROM transactions),
		        (SELECT COUNT(*) FROM transactions WHERE status = 'pending'),
		        (SELECT COUNT(*) FROM budgets),
		        (SELECT COUNT(*) FROM insights)`,
	).Scan(&stats.Users, &stats.Transactions, &stats.PendingTransactions, &stats.Budgets, &stats.Insights); err != nil {
		return stats, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT request_type,
		        COUNT(*) FILTER (WHERE success),
		        COUNT(*) FILTER (WHERE NOT success)
		 FROM ai_requests
		 GROUP BY request_type
		 ORDER BY request_type`,
	)
	if err != nil {
		return stats, err
	}
	if stats.AIByType, err = pgx.CollectRows(rows, pgx.RowToStructByPos[TypeCount]); err != nil {
		return stats, err
	}
	for _, row := range stats.AIByType {
		stats.AISuccess += row.Success
		stats.AIFail += row.Fail
	}
	stats.AIRequests = stats.AISuccess + stats.AIFail

	rows, err = r.db.Query(ctx,
		`SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day, COUNT(*)
		 FROM ai_requests
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day DESC`,
		time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1-days),
	)
	if err != nil {
		return stats, err
	}
	stats.AIRequestsByDay, err = pgx.CollectRows(rows, pgx.RowToStructByPos[DailyCount])
	return stats, err
}
