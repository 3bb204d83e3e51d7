package eventbus

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

func TestPublishDeliversToSessionAndGlobalHandlers(t *testing.T) {
	bus := New(zap.NewNop())

	var mu sync.Mutex
	var sessionGot, globalGot entities.Event

	bus.Subscribe("sess1", func(e entities.Event) {
		mu.Lock()
		sessionGot = e
		mu.Unlock()
	})
	bus.SubscribeGlobal(func(e entities.Event) {
		mu.Lock()
		globalGot = e
		mu.Unlock()
	})

	bus.Publish(entities.Event{Type: entities.EventJobCreated, SessionID: "sess1", Timestamp: time.Now()})

	mu.Lock()
	defer mu.Unlock()
	if sessionGot.Type != entities.EventJobCreated {
		t.Errorf("session handler did not receive event")
	}
	if globalGot.Type != entities.EventJobCreated {
		t.Errorf("global handler did not receive event")
	}
}

func TestPublishDoesNotCrossSessions(t *testing.T) {
	bus := New(zap.NewNop())
	called := false
	bus.Subscribe("sess1", func(entities.Event) { called = true })

	bus.Publish(entities.Event{Type: entities.EventJobCreated, SessionID: "sess2", Timestamp: time.Now()})

	if called {
		t.Errorf("handler for sess1 should not fire for an event on sess2")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New(zap.NewNop())
	count := 0
	unsub := bus.Subscribe("sess1", func(entities.Event) { count++ })

	bus.Publish(entities.Event{Type: entities.EventJobCreated, SessionID: "sess1", Timestamp: time.Now()})
	unsub()
	bus.Publish(entities.Event{Type: entities.EventJobCreated, SessionID: "sess1", Timestamp: time.Now()})

	if count != 1 {
		t.Errorf("expected exactly one delivery before unsubscribe, got %d", count)
	}
}

func TestHandlerPanicDoesNotStopOtherHandlers(t *testing.T) {
	bus := New(zap.NewNop())
	var mu sync.Mutex
	secondCalled := false

	bus.Subscribe("sess1", func(entities.Event) { panic("boom") })
	bus.Subscribe("sess1", func(entities.Event) {
		mu.Lock()
		secondCalled = true
		mu.Unlock()
	})

	bus.Publish(entities.Event{Type: entities.EventJobCreated, SessionID: "sess1", Timestamp: time.Now()})

	mu.Lock()
	defer mu.Unlock()
	if !secondCalled {
		t.Errorf("a panicking handler must not prevent delivery to other handlers")
	}
}

func TestHistoryBoundedAndFilteredBySince(t *testing.T) {
	bus := New(zap.NewNop())
	base := time.Now()

	for i := 0; i < 150; i++ {
		bus.Publish(entities.Event{
			Type:      entities.EventJobProgress,
			SessionID: "sess1",
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		})
	}

	all := bus.History("sess1", nil)
	if len(all) != 100 {
		t.Fatalf("expected history capped at 100, got %d", len(all))
	}

	cutoff := base.Add(120 * time.Millisecond)
	recent := bus.History("sess1", &cutoff)
	for _, e := range recent {
		if e.Timestamp.Before(cutoff) {
			t.Errorf("History with since=%v returned event at %v", cutoff, e.Timestamp)
		}
	}
}
