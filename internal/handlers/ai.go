package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fmmarmello/finAI/internal/ai"
	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

// minInsightTransactions: анализ запускается, только если проведенных транзакций за месяц больше.
const minInsightTransactions = 3

// AIAudit пишет каждое обращение к модели в журнал ai_requests.
type AIAudit struct {
	Log      AIRequestLogger
	Provider string
	Model    string
}

type AIHandler struct {
	Service         *ai.Service
	Transactions    TransactionStore
	Categories      CategoryStore
	Insights        InsightStore
	Users           UserLookup
	Notifier        Notifier
	Audit           AIAudit
	Clock           Clock
	DefaultCurrency string
}

// NewAIHandler создает обработчик AI-запросов.
func NewAIHandler(service *ai.Service, transactions TransactionStore, categories CategoryStore, insights InsightStore, users UserLookup, notifier Notifier, audit AIAudit, clock Clock, defaultCurrency string) *AIHandler {
	return &AIHandler{
		Service:         service,
		Transactions:    transactions,
		Categories:      categories,
		Insights:        insights,
		Users:           users,
		Notifier:        notifier,
		Audit:           audit,
		Clock:           clock,
		DefaultCurrency: defaultCurrency,
	}
}

type CategorizeRequest struct {
	Description string `json:"description" validate:"required,max=200"`
}

type ChatRequest struct {
	Query string `json:"query" validate:"required,max=1000"`
}

type InsightResponse struct {
	Insight *models.Insight `json:"insight"`
}

// Categorize предлагает категорию для описания. Любой сбой модели дает
// пустую подсказку со статусом 200, чтобы не мешать ручному вводу.
func (h *AIHandler) Categorize(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CategorizeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	ctx := c.Request().Context()

	names, err := h.Categories.Names(ctx, userID)
	if err != nil {
		return serverError(c)
	}

	input := ai.CategorizeInput{Description: req.Description, Categories: names}
	suggestion, prompt, raw, err := h.Service.Categorize(ctx, input)
	if errors.Is(err, ai.ErrNotRequested) {
		return c.JSON(http.StatusOK, ai.Suggestion{})
	}

	h.Audit.record(ctx, userID, repository.AIRequestCategorize, prompt, input, suggestion, raw, err)
	if err != nil {
		return c.JSON(http.StatusOK, ai.Suggestion{})
	}

	return c.JSON(http.StatusOK, suggestion)
}

// AnalyzeSpending строит анализ расходов за месяц и сохраняет его.
// Нужно больше трех проведенных транзакций, сбой модели дает insight = null.
func (h *AIHandler) AnalyzeSpending(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	year, month, err := parseMonth(c, h.Clock.Today())
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	r := finance.MonthRange(year, month)

	transactions, err := h.Transactions.List(ctx, userID, repository.TransactionFilter{From: &r.Start, To: &r.End})
	if err != nil {
		return serverError(c)
	}

	settled := finance.SettledIn(transactions, r)
	if len(settled) <= minInsightTransactions {
		return errorJSON(c, http.StatusUnprocessableEntity, "not enough settled transactions")
	}

	currency := h.currencyOf(ctx, userID)
	input := ai.AnalyzeSpendingInput{Transactions: ai.Snapshots(settled), Currency: currency}

	analysis, prompt, raw, err := h.Service.AnalyzeSpending(ctx, input)
	h.Audit.record(ctx, userID, repository.AIRequestInsights, prompt, input, analysis, raw, err)
	if err != nil {
		return c.JSON(http.StatusOK, InsightResponse{})
	}

	insight, err := h.Insights.Upsert(ctx, models.Insight{
		UserID:                 userID,
		Period:                 r.Start,
		TrendAnalysis:          analysis.TrendAnalysis,
		AnomalyDetection:       analysis.AnomalyDetection,
		RecurringSubscriptions: analysis.RecurringSubscriptions,
		SpendingSummary:        analysis.SpendingSummary,
		Currency:               currency,
	})
	if err != nil {
		return serverError(c)
	}

	notify(h.Notifier, userID, notifications.CollectionInsights, notifications.ActionUpdated, insight.ID)
	return c.JSON(http.StatusOK, InsightResponse{Insight: &insight})
}

// GetInsights возвращает сохраненный анализ за месяц или null.
func (h *AIHandler) GetInsights(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	year, month, err := parseMonth(c, h.Clock.Today())
	if err != nil {
		return badRequest(c, err.Error())
	}

	insight, err := h.Insights.Get(c.Request().Context(), userID, finance.MonthRange(year, month).Start)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, InsightResponse{})
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, InsightResponse{Insight: &insight})
}

// Chat отвечает на вопрос по транзакциям пользователя. При сбое модели
// возвращается стандартный ответ.
func (h *AIHandler) Chat(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	ctx := c.Request().Context()

	transactions, err := h.Transactions.List(ctx, userID, repository.TransactionFilter{})
	if err != nil {
		return serverError(c)
	}

	input := ai.ChatInput{
		Query:        req.Query,
		Transactions: ai.Snapshots(transactions),
		Currency:     h.currencyOf(ctx, userID),
	}

	answer, prompt, raw, err := h.Service.Chat(ctx, input)
	if !errors.Is(err, ai.ErrNotRequested) {
		h.Audit.record(ctx, userID, repository.AIRequestChat, prompt, input, answer, raw, err)
	}
	if err != nil {
		return c.JSON(http.StatusOK, ai.ChatResponse{Answer: ai.FallbackAnswer})
	}

	return c.JSON(http.StatusOK, answer)
}

func (h *AIHandler) currencyOf(ctx context.Context, userID uuid.UUID) string {
	if h.Users != nil {
		if user, err := h.Users.GetByID(ctx, userID); err == nil && user.Currency != "" {
			return user.Currency
		}
	}
	return h.DefaultCurrency
}

func (a AIAudit) record(ctx context.Context, userID uuid.UUID, requestType, prompt string, request, response any, raw []byte, err error) {
	if err != nil {
		slog.Warn("ai request failed",
			slog.String("request_type", requestType),
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
	}

	if a.Log == nil {
		return
	}

	requestPayload, _ := json.Marshal(request)
	var responsePayload []byte
	if err == nil {
		responsePayload, _ = json.Marshal(response)
	}

	log := repository.AIRequestLog{
		UserID:          userID,
		RequestType:     requestType,
		Provider:        a.Provider,
		Model:           a.Model,
		Prompt:          prompt,
		RequestPayload:  requestPayload,
		ResponsePayload: responsePayload,
		RawResponse:     string(raw),
		Success:         err == nil,
	}
	if err != nil {
		errMsg := err.Error()
		log.ErrorMessage = &errMsg
	}

	// Журнал пишется даже после отмены запроса клиентом.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := a.Log.LogRequest(logCtx, log); err != nil {
		slog.Error("failed to store ai request", slog.String("error", err.Error()))
	}
}
