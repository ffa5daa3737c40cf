package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/focus-sentry/backend/internal/classify"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"
device:
  path: /dev/ttyUSB1
  baud_rate: 9600
session:
  minutes: 50
habitify:
  api_key: secret-key
  habit_id: habit-7
enforcer:
  blocklist:
    - slack
    - discord
  suspend: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Device.Path != "/dev/ttyUSB1" {
		t.Errorf("Device.Path = %q, want /dev/ttyUSB1", cfg.Device.Path)
	}
	if cfg.Device.BaudRate != 9600 {
		t.Errorf("Device.BaudRate = %d, want 9600", cfg.Device.BaudRate)
	}
	if cfg.Session.Minutes != 50 {
		t.Errorf("Session.Minutes = %v, want 50", cfg.Session.Minutes)
	}
	if len(cfg.Enforcer.Blocklist) != 2 || cfg.Enforcer.Blocklist[0] != "slack" {
		t.Errorf("Enforcer.Blocklist = %v, want [slack discord]", cfg.Enforcer.Blocklist)
	}
	if !cfg.Enforcer.Suspend {
		t.Error("Enforcer.Suspend = false, want true")
	}
	if !cfg.HabitifyEnabled() {
		t.Error("HabitifyEnabled() = false, want true")
	}

	// Defaults still apply for unspecified fields.
	if cfg.Session.PollInterval.Std() != 200*time.Millisecond {
		t.Errorf("Session.PollInterval = %v, want 200ms", cfg.Session.PollInterval)
	}
	if cfg.Session.WarningClearDelay.Std() != 3*time.Second {
		t.Errorf("Session.WarningClearDelay = %v, want 3s", cfg.Session.WarningClearDelay)
	}
	if cfg.Device.ReadTimeout.Std() != time.Second {
		t.Errorf("Device.ReadTimeout = %v, want 1s", cfg.Device.ReadTimeout)
	}
	if cfg.Habitify.UnitType != "min" {
		t.Errorf("Habitify.UnitType = %q, want %q", cfg.Habitify.UnitType, "min")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() on missing file should error")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "session: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() on malformed yaml should error")
	}
}

func TestLoadDurationFormats(t *testing.T) {
	path := writeConfig(t, `
session:
  poll_interval: 250ms
  warning_clear_delay: 1.5s
device:
  read_timeout: 2000000000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got := cfg.Session.PollInterval.Std(); got != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", got)
	}
	if got := cfg.Session.WarningClearDelay.Std(); got != 1500*time.Millisecond {
		t.Errorf("WarningClearDelay = %v, want 1.5s", got)
	}
	// Plain integers are nanoseconds, matching time.Duration's own unit.
	if got := cfg.Device.ReadTimeout.Std(); got != 2*time.Second {
		t.Errorf("ReadTimeout = %v, want 2s", got)
	}
}

func TestLoadDurationRejectsGarbage(t *testing.T) {
	path := writeConfig(t, "session:\n  poll_interval: soonish\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted a malformed duration")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero minutes", "session:\n  minutes: 0\n"},
		{"negative minutes", "session:\n  minutes: -5\n"},
		{"zero poll interval", "session:\n  poll_interval: 0s\n"},
		{"empty device path", "device:\n  path: \"\"\n"},
		{"zero baud rate", "device:\n  baud_rate: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			if _, err := Load(path); err == nil {
				t.Errorf("Load() accepted %s", tt.name)
			}
		})
	}
}

func TestSessionDuration(t *testing.T) {
	cfg := defaultConfig()
	if got := cfg.SessionDuration(); got != 25*time.Minute {
		t.Errorf("SessionDuration() = %v, want 25m", got)
	}

	cfg.Session.Minutes = 0.5
	if got := cfg.SessionDuration(); got != 30*time.Second {
		t.Errorf("SessionDuration() = %v, want 30s", got)
	}
}

func TestHabitifyEnabled(t *testing.T) {
	cfg := defaultConfig()
	if cfg.HabitifyEnabled() {
		t.Error("HabitifyEnabled() = true with no credentials")
	}

	cfg.Habitify.APIKey = "key"
	if cfg.HabitifyEnabled() {
		t.Error("HabitifyEnabled() = true with key but no habit id")
	}

	cfg.Habitify.HabitID = "h-1"
	if !cfg.HabitifyEnabled() {
		t.Error("HabitifyEnabled() = false with key and habit id")
	}
}

func TestClassifierRulesDefaults(t *testing.T) {
	cfg := defaultConfig()
	rules := cfg.ClassifierRules()

	want := classify.DefaultRules()
	if len(rules) != len(want) {
		t.Fatalf("ClassifierRules() returned %d rules, want %d", len(rules), len(want))
	}
	for i := range rules {
		if rules[i].Kind != want[i].Kind {
			t.Errorf("rule %d kind = %v, want %v", i, rules[i].Kind, want[i].Kind)
		}
		if len(rules[i].Tokens) != len(want[i].Tokens) {
			t.Errorf("rule %d tokens = %v, want %v", i, rules[i].Tokens, want[i].Tokens)
		}
	}
}

func TestClassifierRulesOverrides(t *testing.T) {
	cfg := defaultConfig()
	cfg.Classifier.StartTokens = []string{"GO"}
	cfg.Classifier.MoveTokens = []string{"JOLT", "BUMP"}

	rules := cfg.ClassifierRules()
	for _, r := range rules {
		switch r.Kind {
		case classify.StartFocus:
			if len(r.Tokens) != 1 || r.Tokens[0] != "GO" {
				t.Errorf("start tokens = %v, want [GO]", r.Tokens)
			}
		case classify.EndFocus:
			// Untouched, keeps defaults.
			if len(r.Tokens) == 0 {
				t.Error("end tokens were lost")
			}
		case classify.SuddenMove:
			if len(r.Tokens) != 2 || r.Tokens[0] != "JOLT" {
				t.Errorf("move tokens = %v, want [JOLT BUMP]", r.Tokens)
			}
		}
	}
}
