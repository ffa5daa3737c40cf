package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/focus-sentry/backend/internal/session"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster fans session display updates out to WebSocket clients. It is
// the controller's Renderer: countdown ticks are throttled and coalesced to
// the latest state, warnings and completions go out immediately.
type Broadcaster struct {
	mu             sync.RWMutex
	clients        map[*client]bool
	latest         session.Session
	throttle       time.Duration
	snapshotTicker *time.Ticker

	flushMu      sync.Mutex
	flushTimer   *time.Timer
	pendingState *session.Session
}

func NewBroadcaster(throttle, snapshotInterval time.Duration) *Broadcaster {
	b := &Broadcaster{
		clients:  make(map[*client]bool),
		throttle: throttle,
	}

	b.snapshotTicker = time.NewTicker(snapshotInterval)
	go b.snapshotLoop()

	return b
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	snapshot := b.latest
	b.mu.Unlock()

	data, _ := json.Marshal(WSMessage{
		Type:    MsgSnapshot,
		Payload: SnapshotPayload{Session: snapshot},
	})

	select {
	case c.send <- data:
	default:
		// Client too slow, drop the snapshot
	}

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// RenderSession queues a throttled state update. Rapid tick updates coalesce
// into one message carrying the latest state.
func (b *Broadcaster) RenderSession(s session.Session) {
	b.mu.Lock()
	b.latest = s
	b.mu.Unlock()

	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.pendingState = &s
	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

// RenderWarning broadcasts a warning display change immediately.
func (b *Broadcaster) RenderWarning(active bool) {
	b.broadcast(WSMessage{
		Type:    MsgWarning,
		Payload: WarningPayload{Active: active},
	})
}

// RenderCompletion broadcasts a finished-by-timeout session immediately.
func (b *Broadcaster) RenderCompletion(endedAt time.Time, elapsed time.Duration, moveCount int) {
	b.broadcast(WSMessage{
		Type: MsgCompletion,
		Payload: CompletionPayload{
			EndedAt:        endedAt,
			ElapsedSeconds: elapsed.Seconds(),
			MoveCount:      moveCount,
		},
	})
}

// Latest returns the most recent session state seen by the broadcaster.
func (b *Broadcaster) Latest() session.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	state := b.pendingState
	b.pendingState = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if state == nil {
		return
	}

	b.broadcast(WSMessage{
		Type:    MsgTick,
		Payload: SnapshotPayload{Session: *state},
	})
}

func (b *Broadcaster) snapshotLoop() {
	for range b.snapshotTicker.C {
		b.broadcast(WSMessage{
			Type:    MsgSnapshot,
			Payload: SnapshotPayload{Session: b.Latest()},
		})
	}
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it
			log.Printf("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
