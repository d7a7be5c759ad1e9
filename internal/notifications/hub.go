package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Collection называет набор данных пользователя, на изменения которого можно подписаться.
type Collection string

const (
	CollectionTransactions Collection = "transactions"
	CollectionBudgets      Collection = "budgets"
	CollectionCategories   Collection = "categories"
	CollectionTemplates    Collection = "templates"
	CollectionInsights     Collection = "insights"
)

// Collections перечисляет все коллекции в порядке отправки снимков.
var Collections = []Collection{
	CollectionTransactions,
	CollectionBudgets,
	CollectionCategories,
	CollectionTemplates,
	CollectionInsights,
}

const (
	EventChanged = "changed"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionSettled = "settled"
)

type Event struct {
	Type       string     `json:"type"`
	Collection Collection `json:"collection,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	Data       any        `json:"data,omitempty"`
}

// Sink получает копию каждого опубликованного события вне процесса.
type Sink interface {
	Deliver(ctx context.Context, userID uuid.UUID, event Event) error
}

type subscription struct {
	ch          chan Event
	collections map[Collection]struct{}
	once        sync.Once
}

func (s *subscription) wants(collection Collection) bool {
	if collection == "" || len(s.collections) == 0 {
		return true
	}
	_, ok := s.collections[collection]
	return ok
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[*subscription]struct{}
	sink        Sink
	sinkTimeout time.Duration
}

// NewHub создает хаб для SSE-подписок.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[*subscription]struct{}),
		sinkTimeout: 5 * time.Second,
	}
}

// WithSink включает пересылку событий во внешний брокер.
func (h *Hub) WithSink(sink Sink) *Hub {
	h.sink = sink
	return h
}

// ParseCollections разбирает список коллекций через запятую. Пустой список,
// в том числе из одних запятых, означает все.
func ParseCollections(raw string) ([]Collection, error) {
	known := make(map[Collection]struct{}, len(Collections))
	for _, collection := range Collections {
		known[collection] = struct{}{}
	}

	seen := make(map[Collection]struct{})
	out := make([]Collection, 0)
	for _, part := range strings.Split(raw, ",") {
		collection := Collection(strings.ToLower(strings.TrimSpace(part)))
		if collection == "" {
			continue
		}
		if _, ok := known[collection]; !ok {
			return nil, fmt.Errorf("unknown collection %q", part)
		}
		if _, dup := seen[collection]; dup {
			continue
		}
		seen[collection] = struct{}{}
		out = append(out, collection)
	}

	if len(out) == 0 {
		return Collections, nil
	}
	return out, nil
}

// Subscribe подписывает пользователя на события выбранных коллекций
// (без списка на все) и возвращает канал и функцию отписки.
func (h *Hub) Subscribe(userID uuid.UUID, collections ...Collection) (<-chan Event, func()) {
	sub := &subscription{
		ch:          make(chan Event, 10),
		collections: make(map[Collection]struct{}, len(collections)),
	}
	for _, collection := range collections {
		sub.collections[collection] = struct{}{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	userSubs, ok := h.subscribers[userID]
	if !ok {
		userSubs = make(map[*subscription]struct{})
		h.subscribers[userID] = userSubs
	}
	userSubs[sub] = struct{}{}

	return sub.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if subs, exists := h.subscribers[userID]; exists {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.subscribers, userID)
			}
		}
		sub.close()
	}
}

// CloseUser закрывает все подписки пользователя, например при выходе.
func (h *Hub) CloseUser(userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[userID]
	for sub := range subs {
		sub.close()
	}
	delete(h.subscribers, userID)
	return len(subs)
}

// Publish отправляет событие подписчикам пользователя. Медленный подписчик
// с полным буфером событие теряет.
func (h *Hub) Publish(userID uuid.UUID, event Event) {
	event.Timestamp = time.Now().UTC()

	h.mu.RLock()
	for sub := range h.subscribers[userID] {
		if !sub.wants(event.Collection) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	h.mu.RUnlock()

	if h.sink != nil {
		go h.deliver(userID, event)
	}
}

// Changed публикует событие изменения коллекции.
func (h *Hub) Changed(userID uuid.UUID, collection Collection, action string, id uuid.UUID) {
	if h == nil {
		return
	}

	data := map[string]string{"action": action}
	if id != uuid.Nil {
		data["id"] = id.String()
	}

	h.Publish(userID, Event{Type: EventChanged, Collection: collection, Data: data})
}

func (h *Hub) deliver(userID uuid.UUID, event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), h.sinkTimeout)
	defer cancel()

	if err := h.sink.Deliver(ctx, userID, event); err != nil {
		slog.Warn("event sink delivery failed",
			slog.String("user_id", userID.String()),
			slog.String("collection", string(event.Collection)),
			slog.String("error", err.Error()),
		)
	}
}
