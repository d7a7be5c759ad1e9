package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/models"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

// Хранилища, которые нужны обработчикам. Реализуются репозиториями из internal/repository.

type TransactionStore interface {
	List(ctx context.Context, userID uuid.UUID, filter repository.TransactionFilter) ([]models.Transaction, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (models.Transaction, error)
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	CreateMany(ctx context.Context, transactions []models.Transaction) ([]models.Transaction, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch repository.TransactionPatch) (models.Transaction, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Settle(ctx context.Context, userID, id uuid.UUID) (repository.SettleResult, error)
}

type CategoryStore interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Category, error)
	Names(ctx context.Context, userID uuid.UUID) ([]string, error)
	Add(ctx context.Context, userID uuid.UUID, name string) (models.Category, error)
	Rename(ctx context.Context, userID, id uuid.UUID, name string) (models.Category, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Reorder(ctx context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error
}

type BudgetStore interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Budget, error)
	Create(ctx context.Context, userID uuid.UUID, category string, amount decimal.Decimal) (models.Budget, error)
	Update(ctx context.Context, userID, id uuid.UUID, amount decimal.Decimal) (models.Budget, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type TemplateStore interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.ExpenseTemplate, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (models.ExpenseTemplate, error)
	Create(ctx context.Context, userID uuid.UUID, name, category string) (models.ExpenseTemplate, error)
	Update(ctx context.Context, userID, id uuid.UUID, name, category *string) (models.ExpenseTemplate, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type InsightStore interface {
	Upsert(ctx context.Context, insight models.Insight) (models.Insight, error)
	Get(ctx context.Context, userID uuid.UUID, period time.Time) (models.Insight, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Notifier сообщает подписчикам об изменении коллекции пользователя.
type Notifier interface {
	Changed(userID uuid.UUID, collection notifications.Collection, action string, id uuid.UUID)
}

type AIRequestLogger interface {
	LogRequest(ctx context.Context, log repository.AIRequestLog) error
}
