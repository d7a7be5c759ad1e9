package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

const eventSnapshot = "snapshot"

// SnapshotSource отдает текущее содержимое коллекции пользователя.
type SnapshotSource interface {
	Snapshot(ctx context.Context, userID uuid.UUID, collection notifications.Collection) (any, error)
}

type NotificationHandler struct {
	Hub       *notifications.Hub
	Snapshots SnapshotSource
}

// NewNotificationHandler создает SSE-обработчик уведомлений.
func NewNotificationHandler(hub *notifications.Hub, snapshots SnapshotSource) *NotificationHandler {
	return &NotificationHandler{Hub: hub, Snapshots: snapshots}
}

// Stream открывает SSE-поток. Сразу после подключения и после каждого изменения
// подписанной коллекции клиент получает ее полный снимок.
func (h *NotificationHandler) Stream(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	collections, err := notifications.ParseCollections(c.QueryParam("collections"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return serverError(c)
	}

	ch, unsubscribe := h.Hub.Subscribe(userID, collections...)
	defer unsubscribe()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	ctx := c.Request().Context()

	_ = writeSSE(c, notifications.Event{Type: "connected", Data: map[string]any{
		"user_id":     userID.String(),
		"collections": collections,
	}})
	for _, collection := range collections {
		if err := h.pushSnapshot(ctx, c, userID, collection); err != nil {
			return nil
		}
	}
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeSSE(c, event); err != nil {
				return nil
			}
			if event.Type == notifications.EventChanged && event.Collection != "" {
				if err := h.pushSnapshot(ctx, c, userID, event.Collection); err != nil {
					return nil
				}
			}
			flusher.Flush()
		}
	}
}

func (h *NotificationHandler) pushSnapshot(ctx context.Context, c echo.Context, userID uuid.UUID, collection notifications.Collection) error {
	data, err := h.Snapshots.Snapshot(ctx, userID, collection)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("snapshot load failed",
			slog.String("user_id", userID.String()),
			slog.String("collection", string(collection)),
			slog.String("error", err.Error()),
		)
		return writeSSE(c, notifications.Event{Type: "error", Collection: collection, Data: ErrorResponse{Error: "snapshot unavailable"}})
	}

	return writeSSE(c, notifications.Event{Type: eventSnapshot, Collection: collection, Data: data})
}

func writeSSE(c echo.Context, event notifications.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := c.Response().Write([]byte("event: " + event.Type + "\n")); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return err
	}

	return nil
}

// StoreSnapshots собирает снимки коллекций из хранилищ.
type StoreSnapshots struct {
	Transactions TransactionStore
	Budgets      BudgetStore
	Categories   CategoryStore
	Templates    TemplateStore
	Insights     InsightStore
	Clock        Clock
}

// Snapshot загружает коллекцию целиком. Для insights отдается анализ текущего месяца или nil.
func (s StoreSnapshots) Snapshot(ctx context.Context, userID uuid.UUID, collection notifications.Collection) (any, error) {
	switch collection {
	case notifications.CollectionTransactions:
		return s.Transactions.List(ctx, userID, repository.TransactionFilter{})
	case notifications.CollectionBudgets:
		return s.Budgets.List(ctx, userID)
	case notifications.CollectionCategories:
		return s.Categories.List(ctx, userID)
	case notifications.CollectionTemplates:
		return s.Templates.List(ctx, userID)
	case notifications.CollectionInsights:
		today := s.Clock.Today()
		insight, err := s.Insights.Get(ctx, userID, finance.MonthRange(today.Year(), today.Month()).Start)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return insight, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
}
