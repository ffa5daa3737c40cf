package session

import (
	"sync"
	"time"

	"github.com/focus-sentry/backend/internal/classify"
)

// Event is a classified sensor notification handed from the line reader to
// the controller.
type Event struct {
	Kind classify.EventKind
	At   time.Time // arrival time at the reader
}

// Queue is the hand-off mailbox between the device reader goroutine and the
// controller. It is unbounded and strictly FIFO: Push never blocks and never
// drops, Drain hands back everything available in arrival order.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// Drain removes and returns all queued events. It returns nil when the queue
// is empty, without blocking.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
