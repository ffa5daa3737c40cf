package ws

import (
	"time"

	"github.com/focus-sentry/backend/internal/session"
)

type MessageType string

const (
	MsgSnapshot   MessageType = "snapshot"
	MsgTick       MessageType = "tick"
	MsgWarning    MessageType = "warning"
	MsgCompletion MessageType = "completion"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// SnapshotPayload carries the full session state. Sent on connect, on the
// periodic snapshot cadence, and as the throttled tick delta.
type SnapshotPayload struct {
	Session session.Session `json:"session"`
}

type WarningPayload struct {
	Active bool `json:"active"`
}

type CompletionPayload struct {
	EndedAt        time.Time `json:"endedAt"`
	ElapsedSeconds float64   `json:"elapsedSeconds"`
	MoveCount      int       `json:"moveCount"`
}
