package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fmmarmello/finAI/internal/models"
)

const insightColumns = `id, user_id, period, trend_analysis, anomaly_detection, recurring_subscriptions,
	spending_summary, currency, created_at, updated_at`

type InsightRepository struct {
	db *pgxpool.Pool
}

// NewInsightRepository создает репозиторий AI-анализа.
func NewInsightRepository(db *pgxpool.Pool) *InsightRepository {
	return &InsightRepository{db: db}
}

// Upsert сохраняет анализ за месяц, заменяя предыдущий.
func (r *InsightRepository) Upsert(ctx context.Context, insight models.Insight) (models.Insight, error) {
	saved, err := scanInsight(r.db.QueryRow(ctx,
		`INSERT INTO insights
		 (user_id, period, trend_analysis, anomaly_detection, recurring_subscriptions, spending_summary, currency)
		 VALUES ($1, $2::date, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, period) DO UPDATE
		 SET trend_analysis = EXCLUDED.trend_analysis,
		     anomaly_detection = EXCLUDED.anomaly_detection,
		     recurring_subscriptions = EXCLUDED.recurring_subscriptions,
		     spending_summary = EXCLUDED.spending_summary,
		     currency = EXCLUDED.currency,
		     updated_at = NOW()
		 RETURNING `+insightColumns,
		insight.UserID,
		insight.Period,
		insight.TrendAnalysis,
		insight.AnomalyDetection,
		insight.RecurringSubscriptions,
		insight.SpendingSummary,
		insight.Currency,
	))
	return saved, translate(err)
}

// Get возвращает анализ за месяц, начинающийся с period.
func (r *InsightRepository) Get(ctx context.Context, userID uuid.UUID, period time.Time) (models.Insight, error) {
	insight, err := scanInsight(r.db.QueryRow(ctx,
		`SELECT `+insightColumns+` FROM insights WHERE user_id = $1 AND period = $2::date`,
		userID, period,
	))
	return insight, translate(err)
}

func scanInsight(row pgx.Row) (models.Insight, error) {
	var insight models.Insight
	err := row.Scan(
		&insight.ID,
		&insight.UserID,
		&insight.Period,
		&insight.TrendAnalysis,
		&insight.AnomalyDetection,
		&insight.RecurringSubscriptions,
		&insight.SpendingSummary,
		&insight.Currency,
		&insight.CreatedAt,
		&insight.UpdatedAt,
	)
	return insight, err
}
