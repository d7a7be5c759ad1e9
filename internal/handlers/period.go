package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fmmarmello/finAI/internal/finance"
)

// Clock определяет "сегодня" в часовом поясе пользователя.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// Today возвращает текущую календарную дату.
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return finance.Today(now(), c.Location)
}

// parseMonth читает year и month из query. Без параметров берется текущий месяц.
func parseMonth(c echo.Context, today time.Time) (int, time.Month, error) {
	year, month := today.Year(), today.Month()

	if raw := strings.TrimSpace(c.QueryParam("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1900 || parsed > 9999 {
			return 0, 0, errors.New("invalid year")
		}
		year = parsed
	}

	if raw := strings.TrimSpace(c.QueryParam("month")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			return 0, 0, errors.New("invalid month")
		}
		month = time.Month(parsed)
	}

	return year, month, nil
}

// parseOptionalDate разбирает дату из query, пустое значение дает nil.
func parseOptionalDate(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}

	date, err := finance.ParseDate(raw)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &date, nil
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
