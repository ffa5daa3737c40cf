package session

import "time"

// Task is a scheduled callback owned by the controller loop. Cancel prevents
// a pending task from firing; cancelling an already-fired task is a no-op.
type Task struct {
	at        time.Time
	fn        func(now time.Time)
	cancelled bool
}

func (t *Task) Cancel() {
	if t != nil {
		t.cancelled = true
	}
}

// scheduler is a small delayed-task queue drained by the controller's poll
// loop. All callbacks run on the controller goroutine, which is what keeps
// the Session free of locking: there is exactly one thread of execution
// touching it.
type scheduler struct {
	tasks []*Task
}

// After registers fn to run once now+d has passed.
func (s *scheduler) After(now time.Time, d time.Duration, fn func(now time.Time)) *Task {
	t := &Task{at: now.Add(d), fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// RunDue fires every non-cancelled task whose deadline has passed. Tasks
// scheduled by a firing callback (e.g. a countdown tick rescheduling itself)
// are picked up on the next call, not this one.
func (s *scheduler) RunDue(now time.Time) {
	var due, pending []*Task
	for _, t := range s.tasks {
		switch {
		case t.cancelled:
		case !t.at.After(now):
			due = append(due, t)
		default:
			pending = append(pending, t)
		}
	}
	s.tasks = pending

	for _, t := range due {
		t.fn(now)
	}
}
