package session

import (
	"context"
	"log"
	"time"

	"github.com/focus-sentry/backend/internal/classify"
)

// HabitLogger records sessions in an external habit tracker. All calls are
// best-effort: the controller never retries, blocks on, or rolls back a
// transition because of a logger failure.
type HabitLogger interface {
	// CreateSessionMarker registers a pending action for the session that
	// just started. The returned id may be empty; trackers are not required
	// to hand one back.
	CreateSessionMarker(ctx context.Context) (string, error)

	// CompleteSessionMarker marks a previously created action as done.
	CompleteSessionMarker(ctx context.Context, id string) error

	// RecordSession logs the finished session's elapsed time.
	RecordSession(ctx context.Context, elapsed time.Duration, endedAt time.Time) error
}

// HistoryRecorder appends finished sessions to local history.
type HistoryRecorder interface {
	Append(endedAt time.Time, elapsed time.Duration, moveCount int) error
}

// FocusEnforcer nudges the desktop toward distraction-free work while a
// session runs.
type FocusEnforcer interface {
	EnforceFocus(ctx context.Context)
	ReleaseFocus(ctx context.Context)
}

// Renderer receives display updates. Implementations must not block; the
// WebSocket broadcaster queues internally.
type Renderer interface {
	RenderSession(s Session)
	RenderWarning(active bool)
	RenderCompletion(endedAt time.Time, elapsed time.Duration, moveCount int)
}

// Collaborators are the optional external systems driven by session
// transitions. Any field may be nil.
type Collaborators struct {
	Habit    HabitLogger
	History  HistoryRecorder
	Enforcer FocusEnforcer
	Renderer Renderer
}

// Options configure the controller.
type Options struct {
	// Duration is the configured session length.
	Duration time.Duration

	// PollInterval is how often the controller drains the event queue and
	// runs due scheduled tasks.
	PollInterval time.Duration

	// WarningClearDelay is how long a sudden-move warning stays visible.
	WarningClearDelay time.Duration

	// TickInterval is the countdown step. Defaults to one second.
	TickInterval time.Duration
}

// Controller is the single-goroutine session state machine. It drains the
// event queue on a fixed cadence, applies transitions in arrival order, and
// drives the cooperative countdown. The Session is touched only from the
// Run/step goroutine, so it needs no lock.
type Controller struct {
	opts   Options
	queue  *Queue
	collab Collaborators

	sess  Session
	sched scheduler
	tick  *Task

	// results carries deferred outcomes of fire-and-forget calls (the habit
	// marker id) back onto the controller goroutine.
	results chan func(now time.Time)

	// enforceDone is the completion signal of the most recently dispatched
	// enforcer call. Each new call waits on it, so EnforceFocus and
	// ReleaseFocus run in dispatch order even when a scan is slow.
	enforceDone chan struct{}

	// gen counts sessions. Deferred marker results are tagged with it so a
	// create that straggles in after a later session started is not
	// attributed to the wrong session.
	gen uint64

	// now and dispatch are injection points for tests.
	now      func() time.Time
	dispatch func(fn func())
}

func NewController(opts Options, queue *Queue, collab Collaborators) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 200 * time.Millisecond
	}
	if opts.WarningClearDelay <= 0 {
		opts.WarningClearDelay = 3 * time.Second
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}

	c := &Controller{
		opts:    opts,
		queue:   queue,
		collab:  collab,
		results: make(chan func(now time.Time), 16),
		now:     time.Now,
		dispatch: func(fn func()) {
			go fn()
		},
	}
	c.sess = Session{
		State:              Idle,
		ConfiguredDuration: opts.Duration,
	}
	return c
}

// Snapshot returns a copy of the current session. Safe only from the
// controller goroutine or before Run starts; concurrent readers go through
// the renderer.
func (c *Controller) Snapshot() Session {
	return c.sess
}

// Run polls until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	log.Printf("[session] controller started (duration=%s, poll=%s)", c.opts.Duration, c.opts.PollInterval)
	c.render()

	for {
		select {
		case <-ctx.Done():
			log.Println("[session] controller stopped")
			return
		case <-ticker.C:
			c.step(c.now())
		}
	}
}

// step is one poll iteration: apply deferred results, drain the queue in
// arrival order, then fire due scheduled tasks.
func (c *Controller) step(now time.Time) {
	for deferred := true; deferred; {
		select {
		case fn := <-c.results:
			fn(now)
		default:
			deferred = false
		}
	}

	for _, ev := range c.queue.Drain() {
		c.apply(ev, now)
	}

	c.sched.RunDue(now)
}

func (c *Controller) apply(ev Event, now time.Time) {
	switch ev.Kind {
	case classify.StartFocus:
		c.startFocus(now)
	case classify.EndFocus:
		c.endFocus(now)
	case classify.SuddenMove:
		c.suddenMove(now)
	}
}

func (c *Controller) startFocus(now time.Time) {
	if c.sess.State == Active {
		// At most one concurrent session; duplicate starts are ignored.
		log.Println("[session] start ignored: session already active")
		return
	}

	c.sess.State = Active
	c.sess.StartedAt = now
	c.sess.Remaining = c.opts.Duration
	c.sess.MoveCount = 0
	c.sess.Warning = false

	c.gen++
	log.Printf("[session] started (duration=%s)", c.opts.Duration)

	if habit := c.collab.Habit; habit != nil {
		gen := c.gen
		c.dispatch(func() {
			id, err := habit.CreateSessionMarker(context.Background())
			if err != nil {
				log.Printf("[session] habit marker create failed: %v", err)
				return
			}
			if id == "" {
				return
			}
			c.deliver(func(time.Time) { c.markerCreated(id, gen) })
		})
	}
	if enf := c.collab.Enforcer; enf != nil {
		c.dispatchEnforcer(enf.EnforceFocus)
	}

	c.tick = c.sched.After(now, c.opts.TickInterval, c.countdownTick)
	c.render()
}

func (c *Controller) endFocus(now time.Time) {
	if c.sess.State != Active {
		log.Println("[session] end ignored: no active session")
		return
	}
	c.finish(now, false)
}

func (c *Controller) suddenMove(now time.Time) {
	if c.sess.State != Active {
		return
	}

	c.sess.MoveCount++
	c.sess.Warning = true
	log.Printf("[session] sudden move (count=%d)", c.sess.MoveCount)

	if r := c.collab.Renderer; r != nil {
		r.RenderWarning(true)
	}

	// The clear fires on schedule even if the session has ended by then.
	c.sched.After(now, c.opts.WarningClearDelay, func(time.Time) {
		c.sess.Warning = false
		if r := c.collab.Renderer; r != nil {
			r.RenderWarning(false)
		}
	})
	c.render()
}

// countdownTick is the cooperative one-step countdown. It reschedules itself
// only while the session stays active; leaving Active by any path orphans it.
func (c *Controller) countdownTick(now time.Time) {
	if c.sess.State != Active {
		return
	}

	c.sess.Remaining -= c.opts.TickInterval
	if c.sess.Remaining < 0 {
		c.sess.Remaining = 0
	}
	c.render()

	if c.sess.Remaining <= 0 {
		c.finish(now, true)
		return
	}
	c.tick = c.sched.After(now, c.opts.TickInterval, c.countdownTick)
}

// finish applies the shared end-of-session side effects. Elapsed time comes
// from the wall clock, not tick counts: cooperative scheduling does not
// guarantee exact one-second granularity.
func (c *Controller) finish(now time.Time, completed bool) {
	elapsed := now.Sub(c.sess.StartedAt)
	endedAt := now
	moveCount := c.sess.MoveCount
	actionID := c.sess.actionID
	c.sess.actionID = ""

	if habit := c.collab.Habit; habit != nil {
		c.dispatch(func() {
			if err := habit.RecordSession(context.Background(), elapsed, endedAt); err != nil {
				log.Printf("[session] habit log failed: %v", err)
			}
			if actionID != "" {
				if err := habit.CompleteSessionMarker(context.Background(), actionID); err != nil {
					log.Printf("[session] habit marker complete failed: %v", err)
				}
			}
		})
	}
	if hist := c.collab.History; hist != nil {
		c.dispatch(func() {
			if err := hist.Append(endedAt, elapsed, moveCount); err != nil {
				log.Printf("[session] history append failed: %v", err)
			}
		})
	}
	if enf := c.collab.Enforcer; enf != nil {
		c.dispatchEnforcer(enf.ReleaseFocus)
	}

	c.tick.Cancel()
	c.tick = nil
	c.sess.StartedAt = time.Time{}
	c.sess.Remaining = 0

	if completed {
		c.sess.State = Completed
		log.Printf("[session] complete (elapsed=%s, moves=%d)", elapsed.Round(time.Millisecond), moveCount)
		if r := c.collab.Renderer; r != nil {
			r.RenderCompletion(endedAt, elapsed, moveCount)
		}
		c.render()
	} else {
		log.Printf("[session] ended (elapsed=%s, moves=%d)", elapsed.Round(time.Millisecond), moveCount)
	}

	c.sess.State = Idle
	c.render()
}

// markerCreated stores the habit marker id, or completes it straight away if
// its session already ended before the create call returned. gen identifies
// the session the marker belongs to; a stale marker must not be stored, or a
// later session's end would complete it in place of its own.
func (c *Controller) markerCreated(id string, gen uint64) {
	if gen != c.gen || c.sess.State != Active {
		habit := c.collab.Habit
		if habit == nil {
			return
		}
		c.dispatch(func() {
			if err := habit.CompleteSessionMarker(context.Background(), id); err != nil {
				log.Printf("[session] habit marker complete failed: %v", err)
			}
		})
		return
	}
	c.sess.actionID = id
}

// dispatchEnforcer fires fn like dispatch does, but chained behind the
// previously dispatched enforcer call. Suspending and resuming processes must
// not reorder: a release overtaking a slow suspend would leave blocklisted
// processes stopped with no session left to resume them.
func (c *Controller) dispatchEnforcer(fn func(ctx context.Context)) {
	prev := c.enforceDone
	done := make(chan struct{})
	c.enforceDone = done

	c.dispatch(func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		fn(context.Background())
	})
}

// deliver hands fn back to the controller goroutine. Blocking here is fine:
// deliver is only called from dispatched goroutines, never from the loop.
func (c *Controller) deliver(fn func(now time.Time)) {
	c.results <- fn
}

func (c *Controller) render() {
	if r := c.collab.Renderer; r != nil {
		r.RenderSession(c.sess)
	}
}
