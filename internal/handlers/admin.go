package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/repository"
)

const (
	defaultAdminPage = 50
	maxAdminPage     = 200
	defaultUsageDays = 7
	maxUsageDays     = 30
)

type AdminHandler struct {
	Repo *repository.AdminRepository
}

// NewAdminHandler создает обработчик админских эндпоинтов.
func NewAdminHandler(repo *repository.AdminRepository) *AdminHandler {
	return &AdminHandler{Repo: repo}
}

type PageQuery struct {
	Limit  int `query:"limit" validate:"omitempty,min=1"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

type AIRequestsQuery struct {
	Limit           int    `query:"limit" validate:"omitempty,min=1"`
	Offset          int    `query:"offset" validate:"omitempty,min=0"`
	UserID          string `query:"user_id" validate:"omitempty,uuid"`
	Success         string `query:"success" validate:"omitempty,oneof=true false"`
	RequestType     string `query:"request_type" validate:"omitempty,oneof=categorize insights chat document"`
	IncludePayloads bool   `query:"include_payloads"`
}

type UsageQuery struct {
	Days int `query:"days" validate:"omitempty,min=1"`
}

type AdminUsersResponse struct {
	Total int                    `json:"total"`
	Users []repository.AdminUser `json:"users"`
}

type AdminAIRequestsResponse struct {
	Total    int                          `json:"total"`
	Requests []repository.AIRequestRecord `json:"requests"`
}

// ListUsers возвращает страницу пользователей для админки.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	var q PageQuery
	if err := bindQuery(c, &q); err != nil {
		return badRequest(c, err.Error())
	}

	limit := pageLimit(q.Limit)
	users, total, err := h.Repo.ListUsers(c.Request().Context(), limit, q.Offset)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, AdminUsersResponse{Total: total, Users: users})
}

// ListAIRequests возвращает журнал обращений к модели.
// Фильтры: user_id, success, request_type. Тексты запросов только с include_payloads=true.
func (h *AdminHandler) ListAIRequests(c echo.Context) error {
	var q AIRequestsQuery
	if err := bindQuery(c, &q); err != nil {
		return badRequest(c, err.Error())
	}

	filter := repository.AIRequestFilter{IncludePayloads: q.IncludePayloads}
	if q.UserID != "" {
		userID := uuid.MustParse(q.UserID)
		filter.UserID = &userID
	}
	if q.Success != "" {
		success := q.Success == "true"
		filter.Success = &success
	}
	if q.RequestType != "" {
		filter.RequestType = &q.RequestType
	}

	requests, total, err := h.Repo.ListAIRequests(c.Request().Context(), filter, pageLimit(q.Limit), q.Offset)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, AdminAIRequestsResponse{Total: total, Requests: requests})
}

// Usage возвращает объем данных и статистику обращений к модели.
func (h *AdminHandler) Usage(c echo.Context) error {
	var q UsageQuery
	if err := bindQuery(c, &q); err != nil {
		return badRequest(c, err.Error())
	}

	days := q.Days
	switch {
	case days == 0:
		days = defaultUsageDays
	case days > maxUsageDays:
		days = maxUsageDays
	}

	stats, err := h.Repo.UsageStats(c.Request().Context(), days)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid days")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, stats)
}

// AdminMiddleware пускает только пользователей из списка ADMIN_EMAILS.
func AdminMiddleware(users UserLookup, emails []string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			allowed[email] = struct{}{}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := auth.UserIDFromContext(c)
			if !ok {
				return unauthorized(c)
			}

			user, err := users.GetByID(c.Request().Context(), userID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return forbidden(c)
			case err != nil:
				return serverError(c)
			}

			if _, ok := allowed[strings.ToLower(user.Email)]; !ok {
				return forbidden(c)
			}
			return next(c)
		}
	}
}

func bindQuery(c echo.Context, target any) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, target); err != nil {
		return errors.New("invalid query")
	}
	if err := c.Validate(target); err != nil {
		return errors.New("invalid query")
	}
	return nil
}

func pageLimit(limit int) int {
	switch {
	case limit == 0:
		return defaultAdminPage
	case limit > maxAdminPage:
		return maxAdminPage
	}
	return limit
}
