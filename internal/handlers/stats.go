package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
	"github.com/fmmarmello/finAI/internal/repository"
)

const (
	defaultTrendMonths = 6
	maxTrendMonths     = 24
)

type StatsHandler struct {
	Transactions TransactionStore
	Budgets      BudgetStore
	Clock        Clock
}

// NewStatsHandler создает обработчик сводок.
func NewStatsHandler(transactions TransactionStore, budgets BudgetStore, clock Clock) *StatsHandler {
	return &StatsHandler{
		Transactions: transactions,
		Budgets:      budgets,
		Clock:        clock,
	}
}

type SummaryResponse struct {
	Year    int                    `json:"year"`
	Month   int                    `json:"month"`
	Summary finance.Summary        `json:"summary"`
	Pending int                    `json:"pending"`
	Budgets []finance.BudgetStatus `json:"budgets"`
}

type MonthlyTrendResponse struct {
	Months []finance.MonthSummary `json:"months"`
}

// Summary возвращает итоги месяца и состояние бюджетов. Транзакции и бюджеты
// загружаются параллельно.
func (h *StatsHandler) Summary(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	year, month, err := parseMonth(c, h.Clock.Today())
	if err != nil {
		return badRequest(c, err.Error())
	}

	r := finance.MonthRange(year, month)

	var (
		transactions []models.Transaction
		budgets      []models.Budget
	)

	g, ctx := errgroup.WithContext(c.Request().Context())
	g.Go(func() error {
		var err error
		transactions, err = h.Transactions.List(ctx, userID, repository.TransactionFilter{From: &r.Start, To: &r.End})
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = h.Budgets.List(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return serverError(c)
	}

	pending := 0
	for _, tx := range transactions {
		if !tx.IsSettled() {
			pending++
		}
	}

	return c.JSON(http.StatusOK, SummaryResponse{
		Year:    year,
		Month:   int(month),
		Summary: finance.Summarize(transactions, r),
		Pending: pending,
		Budgets: finance.TrackBudgets(budgets, transactions, year, month),
	})
}

// Monthly возвращает итоги за последние N месяцев, заканчивая year/month.
func (h *StatsHandler) Monthly(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	months := defaultTrendMonths
	if raw := strings.TrimSpace(c.QueryParam("months")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxTrendMonths {
			return badRequest(c, "invalid months")
		}
		months = parsed
	}

	year, month, err := parseMonth(c, h.Clock.Today())
	if err != nil {
		return badRequest(c, err.Error())
	}

	end := finance.MonthRange(year, month)
	start := finance.AddMonths(end.Start, -(months - 1))

	transactions, err := h.Transactions.List(c.Request().Context(), userID, repository.TransactionFilter{From: &start, To: &end.End})
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, MonthlyTrendResponse{
		Months: finance.MonthlyTrend(transactions, end.Start, months),
	})
}
