package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Типы AI-запросов в журнале.
const (
	AIRequestCategorize = "categorize"
	AIRequestInsights   = "insights"
	AIRequestChat       = "chat"
	AIRequestDocument   = "document"
)

type AIRepository struct {
	db *pgxpool.Pool
}

// AIRequestLog описывает одну запись журнала обращений к модели.
type AIRequestLog struct {
	UserID          uuid.UUID
	RequestType     string
	Provider        string
	Model           string
	Prompt          string
	RequestPayload  []byte
	ResponsePayload []byte
	RawResponse     string
	Success         bool
	ErrorMessage    *string
}

// NewAIRepository создает репозиторий для AI-запросов.
func NewAIRepository(db *pgxpool.Pool) *AIRepository {
	return &AIRepository{db: db}
}

// LogRequest сохраняет лог AI-запроса. Пустые payload сохраняются как NULL.
func (r *AIRepository) LogRequest(ctx context.Context, entry AIRequestLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO ai_requests
		 (user_id, request_type, provider, model, prompt, request_payload, response_payload, raw_response, success, error_message)
		 VALUES (@user_id, @request_type, @provider, @model, @prompt,
		         NULLIF(@request, '')::jsonb, NULLIF(@response, '')::jsonb, NULLIF(@raw, ''),
		         @success, @error)`,
		pgx.NamedArgs{
			"user_id":      entry.UserID,
			"request_type": entry.RequestType,
			"provider":     entry.Provider,
			"model":        entry.Model,
			"prompt":       entry.Prompt,
			"request":      string(entry.RequestPayload),
			"response":     string(entry.ResponsePayload),
			"raw":          entry.RawResponse,
			"success":      entry.Success,
			"error":        entry.ErrorMessage,
		},
	)
	return err
}
