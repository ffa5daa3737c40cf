package session

import (
	"testing"
	"time"

	"github.com/focus-sentry/backend/internal/classify"
)

func TestQueueOrder(t *testing.T) {
	q := NewQueue()

	kinds := []classify.EventKind{
		classify.StartFocus,
		classify.SuddenMove,
		classify.SuddenMove,
		classify.EndFocus,
	}
	for _, k := range kinds {
		q.Push(Event{Kind: k, At: time.Now()})
	}

	got := q.Drain()
	if len(got) != len(kinds) {
		t.Fatalf("Drain returned %d events, want %d", len(got), len(kinds))
	}
	for i, ev := range got {
		if ev.Kind != kinds[i] {
			t.Errorf("event %d = %v, want %v", i, ev.Kind, kinds[i])
		}
	}
}

func TestQueueDrainEmpty(t *testing.T) {
	q := NewQueue()
	if got := q.Drain(); got != nil {
		t.Errorf("Drain on empty queue = %v, want nil", got)
	}
}

func TestQueueDrainEmpties(t *testing.T) {
	q := NewQueue()
	q.Push(Event{Kind: classify.SuddenMove})
	q.Drain()

	if q.Len() != 0 {
		t.Errorf("Len after drain = %d, want 0", q.Len())
	}
	if got := q.Drain(); got != nil {
		t.Errorf("second Drain = %v, want nil", got)
	}
}
