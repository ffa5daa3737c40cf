package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/focus-sentry/backend/internal/classify"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Device     DeviceConfig     `yaml:"device"`
	Session    SessionConfig    `yaml:"session"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Habitify   HabitifyConfig   `yaml:"habitify"`
	History    HistoryConfig    `yaml:"history"`
	Enforcer   EnforcerConfig   `yaml:"enforcer"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// AuthToken, when set, is required on every HTTP and WebSocket request.
	AuthToken string `yaml:"auth_token"`
}

// Duration is a time.Duration that unmarshals from yaml duration strings
// ("200ms", "1.5s") or plain integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type DeviceConfig struct {
	Path         string   `yaml:"path"`
	BaudRate     int      `yaml:"baud_rate"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	RetryBackoff Duration `yaml:"retry_backoff"`
}

type SessionConfig struct {
	Minutes           float64  `yaml:"minutes"`
	PollInterval      Duration `yaml:"poll_interval"`
	WarningClearDelay Duration `yaml:"warning_clear_delay"`
	BroadcastThrottle Duration `yaml:"broadcast_throttle"`
	SnapshotInterval  Duration `yaml:"snapshot_interval"`
}

// ClassifierConfig overrides the built-in token tables. Empty lists keep the
// defaults; the tables are data so new sensor firmware variants don't need a
// code change.
type ClassifierConfig struct {
	StartTokens []string `yaml:"start_tokens"`
	EndTokens   []string `yaml:"end_tokens"`
	MoveTokens  []string `yaml:"move_tokens"`
}

type HabitifyConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	HabitID  string `yaml:"habit_id"`
	UnitType string `yaml:"unit_type"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type EnforcerConfig struct {
	Blocklist []string `yaml:"blocklist"`
	Suspend   bool     `yaml:"suspend"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
		Device: DeviceConfig{
			Path:         "/dev/ttyACM0",
			BaudRate:     115200,
			ReadTimeout:  Duration(time.Second),
			RetryBackoff: Duration(time.Second),
		},
		Session: SessionConfig{
			Minutes:           25,
			PollInterval:      Duration(200 * time.Millisecond),
			WarningClearDelay: Duration(3 * time.Second),
			BroadcastThrottle: Duration(100 * time.Millisecond),
			SnapshotInterval:  Duration(5 * time.Second),
		},
		Habitify: HabitifyConfig{
			UnitType: "min",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Session.Minutes <= 0 {
		return fmt.Errorf("session minutes must be positive, got %v", c.Session.Minutes)
	}
	if c.Session.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.Session.PollInterval.Std())
	}
	if c.Device.Path == "" {
		return fmt.Errorf("device path must not be empty")
	}
	if c.Device.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", c.Device.BaudRate)
	}
	return nil
}

// SessionDuration returns the configured session length.
func (c *Config) SessionDuration() time.Duration {
	return time.Duration(c.Session.Minutes * float64(time.Minute))
}

// HabitifyEnabled reports whether habit logging is configured at all.
func (c *Config) HabitifyEnabled() bool {
	return c.Habitify.APIKey != "" && c.Habitify.HabitID != ""
}

// ClassifierRules builds the rule table, substituting any configured token
// overrides into the defaults.
func (c *Config) ClassifierRules() []classify.Rule {
	rules := classify.DefaultRules()
	for i := range rules {
		switch rules[i].Kind {
		case classify.StartFocus:
			if len(c.Classifier.StartTokens) > 0 {
				rules[i].Tokens = c.Classifier.StartTokens
			}
		case classify.EndFocus:
			if len(c.Classifier.EndTokens) > 0 {
				rules[i].Tokens = c.Classifier.EndTokens
			}
		case classify.SuddenMove:
			if len(c.Classifier.MoveTokens) > 0 {
				rules[i].Tokens = c.Classifier.MoveTokens
			}
		}
	}
	return rules
}
