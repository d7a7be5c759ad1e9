package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

type TransactionHandler struct {
	Transactions TransactionStore
	Categories   CategoryStore
	Notifier     Notifier
	Clock        Clock
}

// NewTransactionHandler создает обработчик транзакций.
func NewTransactionHandler(transactions TransactionStore, categories CategoryStore, notifier Notifier, clock Clock) *TransactionHandler {
	return &TransactionHandler{
		Transactions: transactions,
		Categories:   categories,
		Notifier:     notifier,
		Clock:        clock,
	}
}

type TransactionRequest struct {
	Description string          `json:"description" validate:"required,max=200"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type" validate:"required,oneof=income expense"`
	Date        string          `json:"date" validate:"required,yyyymmdd"`
	Category    string          `json:"category" validate:"required,max=100"`
	IsRecurring bool            `json:"is_recurring"`
	Confidence  *float64        `json:"confidence_score" validate:"omitempty,min=0,max=1"`
}

type TransactionPatchRequest struct {
	Description *string          `json:"description" validate:"omitempty,max=200"`
	Amount      *decimal.Decimal `json:"amount"`
	Type        *string          `json:"type" validate:"omitempty,oneof=income expense"`
	Date        *string          `json:"date" validate:"omitempty,yyyymmdd"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	IsRecurring *bool            `json:"is_recurring"`
	Confidence  *float64         `json:"confidence_score" validate:"omitempty,min=0,max=1"`
}

type TransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

// List возвращает транзакции за интервал from..to или за месяц year/month.
func (h *TransactionHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	filter, err := h.parseFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	transactions, err := h.Transactions.List(c.Request().Context(), userID, filter)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, TransactionsResponse{Transactions: transactions})
}

// Get возвращает транзакцию по id.
func (h *TransactionHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid transaction id")
	}

	tx, err := h.Transactions.GetByID(c.Request().Context(), userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "transaction not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, tx)
}

// Create добавляет транзакцию вручную. Будущая дата дает статус pending.
func (h *TransactionHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return badRequest(c, "description is required")
	}
	if !req.Amount.IsPositive() {
		return badRequest(c, "amount must be positive")
	}

	date, err := finance.ParseDate(req.Date)
	if err != nil {
		return badRequest(c, "invalid date")
	}

	category, err := resolveCategory(c.Request().Context(), h.Categories, userID, req.Category)
	if err != nil {
		return categoryError(c, err)
	}

	txType := models.TransactionType(req.Type)
	tx := models.Transaction{
		UserID:          userID,
		Description:     description,
		Amount:          req.Amount,
		Type:            txType,
		Date:            date,
		Category:        category,
		Source:          models.SourceManual,
		Status:          finance.StatusFor(date, h.Clock.Today()),
		IsRecurring:     req.IsRecurring && txType == models.TransactionTypeExpense,
		ConfidenceScore: req.Confidence,
	}

	created, err := h.Transactions.Create(c.Request().Context(), tx)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid transaction")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionTransactions, notifications.ActionCreated, created.ID)
	return c.JSON(http.StatusCreated, created)
}

// Update частично меняет транзакцию. Статус меняется только через settle.
func (h *TransactionHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid transaction id")
	}

	var req TransactionPatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	patch := repository.TransactionPatch{
		IsRecurring:     req.IsRecurring,
		ConfidenceScore: req.Confidence,
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return badRequest(c, "description is required")
		}
		patch.Description = &description
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return badRequest(c, "amount must be positive")
		}
		patch.Amount = req.Amount
	}
	if req.Type != nil {
		txType := models.TransactionType(*req.Type)
		patch.Type = &txType
	}
	if req.Date != nil {
		date, err := finance.ParseDate(*req.Date)
		if err != nil {
			return badRequest(c, "invalid date")
		}
		patch.Date = &date
	}
	if req.Category != nil {
		category, err := resolveCategory(c.Request().Context(), h.Categories, userID, *req.Category)
		if err != nil {
			return categoryError(c, err)
		}
		patch.Category = &category
	}

	updated, err := h.Transactions.Update(c.Request().Context(), userID, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return notFound(c, "transaction not found")
		case errors.Is(err, repository.ErrInvalid):
			return badRequest(c, "invalid transaction")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionTransactions, notifications.ActionUpdated, updated.ID)
	return c.JSON(http.StatusOK, updated)
}

// Delete удаляет транзакцию.
func (h *TransactionHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid transaction id")
	}

	if err := h.Transactions.Delete(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "transaction not found")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionTransactions, notifications.ActionDeleted, id)
	return c.NoContent(http.StatusNoContent)
}

// Settle проводит транзакцию. Для повторяющегося расхода в той же
// операции создается запись на следующий месяц.
func (h *TransactionHandler) Settle(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid transaction id")
	}

	result, err := h.Transactions.Settle(c.Request().Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return notFound(c, "transaction not found")
		case errors.Is(err, repository.ErrConflict):
			return conflict(c, "transaction already settled")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionTransactions, notifications.ActionSettled, result.Settled.ID)
	if result.FollowUp != nil {
		notify(h.Notifier, userID, notifications.CollectionTransactions, notifications.ActionCreated, result.FollowUp.ID)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *TransactionHandler) parseFilter(c echo.Context) (repository.TransactionFilter, error) {
	from, err := parseOptionalDate(c, "from")
	if err != nil {
		return repository.TransactionFilter{}, err
	}
	to, err := parseOptionalDate(c, "to")
	if err != nil {
		return repository.TransactionFilter{}, err
	}

	if from != nil || to != nil {
		if from != nil && to != nil && from.After(*to) {
			return repository.TransactionFilter{}, errors.New("from must not be after to")
		}
		return repository.TransactionFilter{From: from, To: to}, nil
	}

	if c.QueryParam("year") == "" && c.QueryParam("month") == "" {
		return repository.TransactionFilter{}, nil
	}

	year, month, err := parseMonth(c, h.Clock.Today())
	if err != nil {
		return repository.TransactionFilter{}, err
	}

	r := finance.MonthRange(year, month)
	return repository.TransactionFilter{From: &r.Start, To: &r.End}, nil
}

var errUnknownCategory = errors.New("unknown category")

// resolveCategory проверяет категорию по текущему набору пользователя и
// возвращает ее сохраненное написание.
func resolveCategory(ctx context.Context, categories CategoryStore, userID uuid.UUID, name string) (string, error) {
	names, err := categories.Names(ctx, userID)
	if err != nil {
		return "", err
	}

	category, ok := finance.MatchCategory(names, name)
	if !ok {
		return "", errUnknownCategory
	}
	return category, nil
}

func categoryError(c echo.Context, err error) error {
	if errors.Is(err, errUnknownCategory) {
		return badRequest(c, err.Error())
	}
	return serverError(c)
}

func notify(n Notifier, userID uuid.UUID, collection notifications.Collection, action string, id uuid.UUID) {
	if n == nil {
		return
	}
	n.Changed(userID, collection, action, id)
}
