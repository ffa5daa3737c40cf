package classify

import (
	"encoding/json"
	"strings"
)

// EventKind is a canonical sensor event recognized from a raw line.
type EventKind int

const (
	StartFocus EventKind = iota
	EndFocus
	SuddenMove
)

var kindNames = map[EventKind]string{
	StartFocus: "start_focus",
	EndFocus:   "end_focus",
	SuddenMove: "sudden_move",
}

var kindFromName = map[string]EventKind{
	"start_focus": StartFocus,
	"end_focus":   EndFocus,
	"sudden_move": SuddenMove,
}

func (k EventKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

func (k EventKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *EventKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := kindFromName[s]; ok {
		*k = v
	}
	return nil
}

// Rule maps a set of token variants to an event kind. A line matches when it
// contains Requires (if non-empty) and at least one entry from Tokens. Rules
// are evaluated in order and the first match wins, so more specific rules
// must come before broader ones.
type Rule struct {
	Kind     EventKind
	Requires string
	Tokens   []string
}

// DefaultRules returns the token tables for the micro:bit sensor firmware.
// The variants cover transmission noise seen in practice (dropped characters
// in "START", truncated suffixes).
func DefaultRules() []Rule {
	return []Rule{
		{Kind: StartFocus, Requires: "FOCUS", Tokens: []string{"START", "STRT", "SART", "STAT", "TART"}},
		{Kind: EndFocus, Requires: "FOCUS", Tokens: []string{"END", "STOP", "FINISH"}},
		{Kind: SuddenMove, Tokens: []string{"MOVE", "MOTION", "SHAKE"}},
	}
}

// Classifier maps raw sensor lines to event kinds. Matching is
// case-insensitive and whitespace-trimmed. A zero rule set means no line
// ever classifies.
type Classifier struct {
	rules []Rule
}

// New creates a Classifier with the given rules. Passing nil uses
// DefaultRules. Tokens are matched case-insensitively, so rules loaded from
// configuration may use any case.
func New(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		nr := Rule{Kind: r.Kind, Requires: strings.ToUpper(r.Requires)}
		nr.Tokens = make([]string, len(r.Tokens))
		for j, tok := range r.Tokens {
			nr.Tokens[j] = strings.ToUpper(tok)
		}
		normalized[i] = nr
	}
	return &Classifier{rules: normalized}
}

// Classify normalizes line and evaluates the rules in order. It returns the
// matched kind and true, or false when no rule matches (the line is ignored).
func (c *Classifier) Classify(line string) (EventKind, bool) {
	s := strings.ToUpper(strings.TrimSpace(line))
	if s == "" {
		return 0, false
	}

	for _, r := range c.rules {
		if r.Requires != "" && !strings.Contains(s, r.Requires) {
			continue
		}
		for _, tok := range r.Tokens {
			if strings.Contains(s, tok) {
				return r.Kind, true
			}
		}
	}
	return 0, false
}
