package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

type CategoryHandler struct {
	Categories CategoryStore
	Notifier   Notifier
}

// NewCategoryHandler создает обработчик списка категорий.
func NewCategoryHandler(categories CategoryStore, notifier Notifier) *CategoryHandler {
	return &CategoryHandler{Categories: categories, Notifier: notifier}
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

type ReorderCategoriesRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

type CategoriesResponse struct {
	Categories []models.Category `json:"categories"`
}

// List возвращает категории в пользовательском порядке.
func (h *CategoryHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	categories, err := h.Categories.List(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, CategoriesResponse{Categories: categories})
}

// Create добавляет категорию в конец списка.
func (h *CategoryHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	name, err := bindCategoryName(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	category, err := h.Categories.Add(c.Request().Context(), userID, name)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "category already exists")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionCategories, notifications.ActionCreated, category.ID)
	return c.JSON(http.StatusCreated, category)
}

// Rename переименовывает категорию. Уже сохраненные транзакции и бюджеты
// продолжают ссылаться на старое название.
func (h *CategoryHandler) Rename(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid category id")
	}

	name, err := bindCategoryName(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	category, err := h.Categories.Rename(c.Request().Context(), userID, id, name)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return notFound(c, "category not found")
		case errors.Is(err, repository.ErrConflict):
			return conflict(c, "category already exists")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionCategories, notifications.ActionUpdated, category.ID)
	return c.JSON(http.StatusOK, category)
}

// Delete удаляет категорию из списка.
func (h *CategoryHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid category id")
	}

	if err := h.Categories.Delete(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "category not found")
		}
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionCategories, notifications.ActionDeleted, id)
	return c.NoContent(http.StatusNoContent)
}

// Reorder задает новый порядок по полному списку идентификаторов.
func (h *CategoryHandler) Reorder(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ReorderCategoriesRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	ctx := c.Request().Context()
	if err := h.Categories.Reorder(ctx, userID, req.IDs); err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "ids must list every category exactly once")
		}
		return serverError(c)
	}

	categories, err := h.Categories.List(ctx, userID)
	if err != nil {
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionCategories, notifications.ActionUpdated, uuid.Nil)
	return c.JSON(http.StatusOK, CategoriesResponse{Categories: categories})
}

func bindCategoryName(c echo.Context) (string, error) {
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return "", errors.New("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return "", errors.New("validation failed")
	}

	name, err := finance.NormalizeCategoryName(req.Name)
	if err != nil {
		return "", err
	}
	return name, nil
}
