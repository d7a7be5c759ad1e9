package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

type TemplateHandler struct {
	Templates    TemplateStore
	Transactions TransactionStore
	Categories   CategoryStore
	Notifier     Notifier
	Clock        Clock
}

// NewTemplateHandler создает обработчик шаблонов расходов.
func NewTemplateHandler(templates TemplateStore, transactions TransactionStore, categories CategoryStore, notifier Notifier, clock Clock) *TemplateHandler {
	return &TemplateHandler{
		Templates:    templates,
		Transactions: transactions,
		Categories:   categories,
		Notifier:     notifier,
		Clock:        clock,
	}
}

type CreateTemplateRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Category string `json:"category" validate:"required,max=100"`
}

type UpdateTemplateRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Category *string `json:"category" validate:"omitempty,max=100"`
}

type ApplyTemplateRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date" validate:"omitempty,yyyymmdd"`
}

type TemplatesResponse struct {
	Templates []models.ExpenseTemplate `json:"templates"`
}

// List возвращает шаблоны, отсортированные по имени.
func (h *TemplateHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	templates, err := h.Templates.List(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, TemplatesResponse{Templates: templates})
}

// Create сохраняет шаблон с категорией из набора пользователя.
func (h *TemplateHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return badRequest(c, "name is required")
	}

	ctx := c.Request().Context()
	category, err := resolveCategory(ctx, h.Categories, userID, req.Category)
	if err != nil {
		return categoryError(c, err)
	}

	template, err := h.Templates.Create(ctx, userID, name, category)
	if err != nil {
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionTemplates, notifications.ActionCreated, template.ID)
	return c.JSON(http.StatusCreated, template)
}

// Update меняет имя или категорию шаблона.
func (h *TemplateHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid template id")
	}

	var req UpdateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	ctx := c.Request().Context()

	name := trimmedPtr(req.Name)
	if name != nil && *name == "" {
		return badRequest(c, "name is required")
	}

	var category *string
	if req.Category != nil {
		resolved, err := resolveCategory(ctx, h.Categories, userID, *req.Category)
		if err != nil {
			return categoryError(c, err)
		}
		category = &resolved
	}

	template, err := h.Templates.Update(ctx, userID, id, name, category)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "template not found")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionTemplates, notifications.ActionUpdated, template.ID)
	return c.JSON(http.StatusOK, template)
}

// Delete удаляет шаблон.
func (h *TemplateHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid template id")
	}

	if err := h.Templates.Delete(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "template not found")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionTemplates, notifications.ActionDeleted, id)
	return c.NoContent(http.StatusNoContent)
}

// Apply создает по шаблону повторяющийся расход. Без даты берется сегодня.
func (h *TemplateHandler) Apply(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid template id")
	}

	var req ApplyTemplateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}
	if !req.Amount.IsPositive() {
		return badRequest(c, "amount must be positive")
	}

	today := h.Clock.Today()
	date := today
	if req.Date != "" {
		if date, err = finance.ParseDate(req.Date); err != nil {
			return badRequest(c, "invalid date")
		}
	}

	ctx := c.Request().Context()

	template, err := h.Templates.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "template not found")
		}
		return serverError(c)
	}

	templateID := template.ID
	created, err := h.Transactions.Create(ctx, models.Transaction{
		UserID:      userID,
		Description: template.Name,
		Amount:      req.Amount,
		Type:        models.TransactionTypeExpense,
		Date:        date,
		Category:    template.Category,
		Source:      models.SourceTemplate,
		Status:      finance.StatusFor(date, today),
		IsRecurring: true,
		TemplateID:  &templateID,
	})
	if err != nil {
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionTransactions, notifications.ActionCreated, created.ID)
	return c.JSON(http.StatusCreated, created)
}
