package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

// SeedFunc заполняет аккаунт демонстрационными данными.
type SeedFunc func(ctx context.Context, userID uuid.UUID) (repository.SeedResult, error)

type SeedHandler struct {
	Run      SeedFunc
	Notifier Notifier
}

// NewSeedHandler создает обработчик загрузки демо-данных.
func NewSeedHandler(seed SeedFunc, notifier Notifier) *SeedHandler {
	return &SeedHandler{Run: seed, Notifier: notifier}
}

// Seed добавляет примеры транзакций и бюджетов. Повторный вызов ничего не дублирует.
func (h *SeedHandler) Seed(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	result, err := h.Run(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	if result.Transactions > 0 {
		notify(h.Notifier, userID, notifications.CollectionTransactions, notifications.ActionCreated, uuid.Nil)
	}
	if result.Budgets > 0 {
		notify(h.Notifier, userID, notifications.CollectionBudgets, notifications.ActionCreated, uuid.Nil)
	}

	return c.JSON(http.StatusOK, result)
}
