// Package history persists finished sessions to a CSV file so past sessions
// can be listed and plotted by UI clients.
package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const (
	historyFileName = "sessions.csv"
	appDirName      = "focus-sentry"
)

var header = []string{"ended_at", "duration_seconds", "move_count"}

// Record is one finished session.
type Record struct {
	EndedAt   time.Time     `json:"endedAt"`
	Duration  time.Duration `json:"duration"`
	MoveCount int           `json:"moveCount"`
}

// Store appends to and reads from the CSV history file. Appends are
// serialized; the file is created with a header row on first use.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store writing to path. Pass an empty string to use the
// default XDG state location.
func NewStore(path string) *Store {
	if path == "" {
		path = filepath.Join(defaultStateDir(), historyFileName)
	}
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Append adds one finished session to the file.
func (s *Store) Append(endedAt time.Time, elapsed time.Duration, moveCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}

	_, statErr := os.Stat(s.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	row := []string{
		endedAt.Format(time.RFC3339),
		strconv.FormatFloat(elapsed.Seconds(), 'f', 1, 64),
		strconv.Itoa(moveCount),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing history: %w", err)
	}
	return nil
}

// ReadAll returns every recorded session in file order. A missing file is an
// empty history, not an error.
func (s *Store) ReadAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}

	var records []Record
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == header[0] {
			continue
		}
		if len(row) != 3 {
			return nil, fmt.Errorf("history row %d: got %d fields, want 3", i, len(row))
		}
		endedAt, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i, err)
		}
		seconds, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i, err)
		}
		moves, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i, err)
		}
		records = append(records, Record{
			EndedAt:   endedAt,
			Duration:  time.Duration(seconds * float64(time.Second)),
			MoveCount: moves,
		})
	}
	return records, nil
}

// defaultStateDir returns ~/.local/state/focus-sentry, respecting
// XDG_STATE_HOME if set.
func defaultStateDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".local", "state", appDirName)
}
