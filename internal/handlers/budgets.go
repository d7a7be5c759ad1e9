package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

type BudgetHandler struct {
	Budgets      BudgetStore
	Transactions TransactionStore
	Categories   CategoryStore
	Notifier     Notifier
	Clock        Clock
}

// NewBudgetHandler создает обработчик бюджетов.
func NewBudgetHandler(budgets BudgetStore, transactions TransactionStore, categories CategoryStore, notifier Notifier, clock Clock) *BudgetHandler {
	return &BudgetHandler{
		Budgets:      budgets,
		Transactions: transactions,
		Categories:   categories,
		Notifier:     notifier,
		Clock:        clock,
	}
}

type CreateBudgetRequest struct {
	Category string          `json:"category" validate:"required,max=100"`
	Amount   decimal.Decimal `json:"amount"`
}

type UpdateBudgetRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type BudgetsResponse struct {
	Budgets []models.Budget `json:"budgets"`
}

type BudgetStatusResponse struct {
	Year     int                    `json:"year"`
	Month    int                    `json:"month"`
	Statuses []finance.BudgetStatus `json:"statuses"`
}

type AvailableCategoriesResponse struct {
	Categories []string `json:"categories"`
}

// List возвращает бюджеты пользователя.
func (h *BudgetHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	budgets, err := h.Budgets.List(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, BudgetsResponse{Budgets: budgets})
}

// Create добавляет месячный лимит для категории. Второй бюджет на ту же
// категорию дает 409.
func (h *BudgetHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}
	if !req.Amount.IsPositive() {
		return badRequest(c, "amount must be positive")
	}

	category, err := resolveCategory(c.Request().Context(), h.Categories, userID, req.Category)
	if err != nil {
		return categoryError(c, err)
	}
	if finance.FoldCategory(category) == finance.FoldCategory(finance.IncomeCategory) {
		return badRequest(c, "income category cannot have a budget")
	}

	budget, err := h.Budgets.Create(c.Request().Context(), userID, category, req.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "budget already exists")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionBudgets, notifications.ActionCreated, budget.ID)
	return c.JSON(http.StatusCreated, budget)
}

// Update меняет лимит бюджета.
func (h *BudgetHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid budget id")
	}

	var req UpdateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if !req.Amount.IsPositive() {
		return badRequest(c, "amount must be positive")
	}

	budget, err := h.Budgets.Update(c.Request().Context(), userID, id, req.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "budget not found")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionBudgets, notifications.ActionUpdated, budget.ID)
	return c.JSON(http.StatusOK, budget)
}

// Delete удаляет бюджет.
func (h *BudgetHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid budget id")
	}

	if err := h.Budgets.Delete(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "budget not found")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionBudgets, notifications.ActionDeleted, id)
	return c.NoContent(http.StatusNoContent)
}

// Status считает расход по каждому бюджету за месяц.
func (h *BudgetHandler) Status(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	year, month, err := parseMonth(c, h.Clock.Today())
	if err != nil {
		return badRequest(c, err.Error())
	}

	r := finance.MonthRange(year, month)
	ctx := c.Request().Context()

	var (
		budgets      []models.Budget
		transactions []models.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = h.Budgets.List(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		transactions, err = h.Transactions.List(gctx, userID, repository.TransactionFilter{From: &r.Start, To: &r.End})
		return err
	})
	if err := g.Wait(); err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, BudgetStatusResponse{
		Year:     year,
		Month:    int(month),
		Statuses: finance.TrackBudgets(budgets, transactions, year, month),
	})
}

// AvailableCategories возвращает категории, для которых еще нет бюджета.
func (h *BudgetHandler) AvailableCategories(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	ctx := c.Request().Context()

	names, err := h.Categories.Names(ctx, userID)
	if err != nil {
		return serverError(c)
	}

	budgets, err := h.Budgets.List(ctx, userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, AvailableCategoriesResponse{
		Categories: finance.BudgetableCategories(names, budgets),
	})
}
