package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestHubPublishSubscribe проверяет доставку событий подписчику.
func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	hub.Changed(userID, CollectionTransactions, ActionCreated, uuid.New())

	select {
	case event := <-ch:
		if event.Type != EventChanged || event.Collection != CollectionTransactions {
			t.Fatalf("unexpected event %+v", event)
		}
		if event.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be set")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event to be delivered")
	}
}

// TestHubCollectionFilter проверяет фильтр по коллекциям.
func TestHubCollectionFilter(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID, CollectionBudgets)
	defer unsubscribe()

	hub.Changed(userID, CollectionTransactions, ActionUpdated, uuid.Nil)
	hub.Changed(userID, CollectionBudgets, ActionDeleted, uuid.Nil)

	select {
	case event := <-ch:
		if event.Collection != CollectionBudgets {
			t.Fatalf("expected budgets event, got %s", event.Collection)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected budgets event")
	}

	select {
	case event := <-ch:
		t.Fatalf("unexpected extra event %+v", event)
	default:
	}
}

// TestHubUserIsolation проверяет, что события не уходят чужим пользователям.
func TestHubUserIsolation(t *testing.T) {
	hub := NewHub()

	ch, unsubscribe := hub.Subscribe(uuid.New())
	defer unsubscribe()

	hub.Changed(uuid.New(), CollectionTransactions, ActionCreated, uuid.Nil)

	select {
	case event := <-ch:
		t.Fatalf("unexpected event %+v", event)
	default:
	}
}

// TestHubUnsubscribe проверяет закрытие канала после отписки.
func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID)
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
}

// TestHubCloseUser проверяет закрытие всех подписок при выходе.
func TestHubCloseUser(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	first, unsubscribeFirst := hub.Subscribe(userID)
	second, unsubscribeSecond := hub.Subscribe(userID, CollectionTemplates)

	if closed := hub.CloseUser(userID); closed != 2 {
		t.Fatalf("expected 2 closed subscriptions, got %d", closed)
	}

	if _, ok := <-first; ok {
		t.Fatal("expected first channel to be closed")
	}
	if _, ok := <-second; ok {
		t.Fatal("expected second channel to be closed")
	}

	unsubscribeFirst()
	unsubscribeSecond()
}

// TestParseCollections проверяет разбор списка коллекций.
func TestParseCollections(t *testing.T) {
	got, err := ParseCollections(" Transactions,budgets,transactions ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 2 || got[0] != CollectionTransactions || got[1] != CollectionBudgets {
		t.Fatalf("unexpected collections %v", got)
	}

	all, err := ParseCollections("")
	if err != nil || len(all) != len(Collections) {
		t.Fatalf("expected all collections, got %v (%v)", all, err)
	}

	blank, err := ParseCollections(" , ,")
	if err != nil || len(blank) != len(Collections) {
		t.Fatalf("expected all collections for a blank list, got %v (%v)", blank, err)
	}

	if _, err := ParseCollections("plans"); err == nil {
		t.Fatal("expected error for unknown collection")
	}
}

type recordingSink struct {
	events chan Event
}

func (s *recordingSink) Deliver(_ context.Context, _ uuid.UUID, event Event) error {
	s.events <- event
	return nil
}

// TestHubSink проверяет пересылку событий во внешний приемник.
func TestHubSink(t *testing.T) {
	sink := &recordingSink{events: make(chan Event, 1)}
	hub := NewHub().WithSink(sink)

	hub.Changed(uuid.New(), CollectionCategories, ActionUpdated, uuid.Nil)

	select {
	case event := <-sink.events:
		if event.Collection != CollectionCategories {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event in sink")
	}
}

// TestRoutingKey проверяет ключ маршрутизации AMQP.
func TestRoutingKey(t *testing.T) {
	userID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	got := RoutingKey(userID, Event{Type: EventChanged, Collection: CollectionBudgets})
	if got != "user.11111111-1111-1111-1111-111111111111.budgets.changed" {
		t.Fatalf("unexpected routing key %s", got)
	}
}
