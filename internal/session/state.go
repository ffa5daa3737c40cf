package session

import (
	"encoding/json"
	"time"
)

// State is the focus-timer position in its lifecycle. Completed is a
// transient display state: the controller folds it back to Idle immediately
// after broadcasting the completion.
type State int

const (
	Idle State = iota
	Active
	Completed
)

var stateNames = map[State]string{
	Idle:      "idle",
	Active:    "active",
	Completed: "completed",
}

var stateFromName = map[string]State{
	"idle":      Idle,
	"active":    Active,
	"completed": Completed,
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := stateFromName[name]; ok {
		*s = v
	}
	return nil
}

// Session is the single focus-timer session. It is owned exclusively by the
// Controller goroutine; everyone else sees value copies.
type Session struct {
	State              State         `json:"state"`
	ConfiguredDuration time.Duration `json:"configuredDuration"`
	Remaining          time.Duration `json:"remaining"`
	StartedAt          time.Time     `json:"startedAt"` // zero unless started at least once
	MoveCount          int           `json:"moveCount"`
	Warning            bool          `json:"warning"`

	// actionID is the opaque habit-tracker marker for the running session.
	// Set when the create call returns an id, cleared once completion is
	// dispatched.
	actionID string
}
