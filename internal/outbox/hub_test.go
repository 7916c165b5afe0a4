package outbox

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/TimurManjosov/goptimize/internal/optimize"
	"github.com/TimurManjosov/goptimize/internal/telemetry"
)

func TestHub_FanOut(t *testing.T) {
	h := NewHub(4)
	a, unsubA := h.Subscribe()
	b, unsubB := h.Subscribe()
	defer unsubA()
	defer unsubB()

	ev := optimize.NewEvent(optimize.NameNotification, optimize.TypeOptimize, optimize.SourceNotification, nil)
	h.Dispatch(ev)

	for i, ch := range []<-chan optimize.Event{a, b} {
		select {
		case got := <-ch:
			if got.ID != ev.ID {
				t.Errorf("subscriber %d: expected %s, got %s", i, ev.ID, got.ID)
			}
		default:
			t.Errorf("subscriber %d: expected an event", i)
		}
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(1)
	ch, unsub := h.Subscribe()
	defer unsub()

	before := testutil.ToFloat64(telemetry.OutboxDropped)
	ev := optimize.NewEvent("e", optimize.TypeOptimize, optimize.SourceNotification, nil)
	h.Dispatch(ev)
	h.Dispatch(ev)

	if got := testutil.ToFloat64(telemetry.OutboxDropped) - before; got != 1 {
		t.Errorf("Expected 1 dropped event, got %v", got)
	}
	if len(ch) != 1 {
		t.Errorf("Expected 1 buffered event, got %d", len(ch))
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(0)
	ch, unsub := h.Subscribe()
	if h.Subscribers() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", h.Subscribers())
	}

	unsub()
	unsub()

	if h.Subscribers() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", h.Subscribers())
	}
	if _, open := <-ch; open {
		t.Error("Expected channel to be closed")
	}
	h.Dispatch(optimize.NewEvent("e", optimize.TypeOptimize, optimize.SourceNotification, nil))
}
