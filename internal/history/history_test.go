package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAppendAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.csv")
	s := NewStore(path)

	base := time.Date(2025, 11, 30, 14, 0, 0, 0, time.UTC)
	if err := s.Append(base, 25*time.Minute, 2); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(base.Add(time.Hour), 90*time.Second, 0); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	if !records[0].EndedAt.Equal(base) {
		t.Errorf("record 0 endedAt = %s, want %s", records[0].EndedAt, base)
	}
	if records[0].Duration != 25*time.Minute {
		t.Errorf("record 0 duration = %s, want 25m", records[0].Duration)
	}
	if records[0].MoveCount != 2 {
		t.Errorf("record 0 moveCount = %d, want 2", records[0].MoveCount)
	}
	if records[1].Duration != 90*time.Second {
		t.Errorf("record 1 duration = %s, want 90s", records[1].Duration)
	}
}

func TestHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.csv")
	s := NewStore(path)

	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := s.Append(now, time.Minute, i); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if got := strings.Count(string(data), "ended_at"); got != 1 {
		t.Errorf("header appears %d times, want 1", got)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Errorf("got %d lines, want 4 (header + 3 rows)", len(lines))
	}
}

func TestReadAllMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent.csv"))

	records, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll on missing file: %v", err)
	}
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
}

func TestAppendCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sessions.csv")
	s := NewStore(path)

	if err := s.Append(time.Now(), time.Minute, 0); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("history file not created: %v", err)
	}
}
