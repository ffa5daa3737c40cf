package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/focus-sentry/backend/internal/history"
	"github.com/focus-sentry/backend/internal/session"
)

func TestHandleSession(t *testing.T) {
	b := newTestBroadcaster(time.Millisecond)
	b.RenderSession(session.Session{State: session.Active, MoveCount: 2})

	s := NewServer(b, nil, "", "")
	rec := httptest.NewRecorder()
	s.handleSession(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got session.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.State != session.Active || got.MoveCount != 2 {
		t.Errorf("session = %+v", got)
	}
}

func TestHandleHistory(t *testing.T) {
	store := history.NewStore(filepath.Join(t.TempDir(), "sessions.csv"))
	endedAt := time.Date(2025, 11, 30, 14, 0, 0, 0, time.UTC)
	if err := store.Append(endedAt, 25*time.Minute, 1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	s := NewServer(newTestBroadcaster(time.Millisecond), store, "", "")
	rec := httptest.NewRecorder()
	s.handleHistory(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []history.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].MoveCount != 1 {
		t.Errorf("records = %+v", got)
	}
}

func TestHandleHistoryEmpty(t *testing.T) {
	store := history.NewStore(filepath.Join(t.TempDir(), "absent.csv"))

	s := NewServer(newTestBroadcaster(time.Millisecond), store, "", "")
	rec := httptest.NewRecorder()
	s.handleHistory(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
}

func TestAuthorize(t *testing.T) {
	s := NewServer(newTestBroadcaster(time.Millisecond), nil, "", "sekrit")

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    bool
	}{
		{"no credentials", func(r *http.Request) {}, false},
		{"query token", func(r *http.Request) {
			q := r.URL.Query()
			q.Set("token", "sekrit")
			r.URL.RawQuery = q.Encode()
		}, true},
		{"custom header", func(r *http.Request) {
			r.Header.Set("X-Focus-Sentry-Token", "sekrit")
		}, true},
		{"bearer", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer sekrit")
		}, true},
		{"wrong token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer wrong")
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/session", nil)
			tt.prepare(r)
			if got := s.authorize(r); got != tt.want {
				t.Errorf("authorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandlersRejectUnauthorized(t *testing.T) {
	s := NewServer(newTestBroadcaster(time.Millisecond), nil, "", "sekrit")

	handlers := map[string]http.HandlerFunc{
		"/api/session": s.handleSession,
		"/api/history": s.handleHistory,
		"/ws":          s.handleWS,
	}
	for path, h := range handlers {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status = %d, want 401", path, rec.Code)
		}
	}
}

func TestNoTokenDisablesAuth(t *testing.T) {
	s := NewServer(newTestBroadcaster(time.Millisecond), nil, "", "")
	if !s.authorize(httptest.NewRequest(http.MethodGet, "/api/session", nil)) {
		t.Error("empty auth token should allow all requests")
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "example.com", true},
		{"http://localhost:3000", "example.com", true},
		{"http://127.0.0.1:8080", "example.com", true},
		{"http://example.com", "example.com", true},
		{"http://evil.com", "example.com", false},
		{"://bad", "example.com", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(origin=%q, host=%q) = %v, want %v", tt.origin, tt.host, got, tt.want)
		}
	}
}
