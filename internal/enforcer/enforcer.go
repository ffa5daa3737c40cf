// Package enforcer nudges the desktop toward distraction-free work while a
// focus session runs. It scans the process table for configured distracting
// applications and, when allowed to, suspends them for the duration of the
// session. Everything here is best-effort: a scan failure is logged and the
// session carries on.
package enforcer

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

// Blocker matches process names against a blocklist.
type Blocker struct {
	mu        sync.Mutex
	blocklist []string
	suspend   bool
	suspended []target

	// processes is swapped in tests to avoid scanning the real machine.
	processes func(ctx context.Context) ([]target, error)
}

type target struct {
	pid     int32
	name    string
	suspend func(ctx context.Context) error
	resume  func(ctx context.Context) error
}

// New creates a Blocker for the given application names (matched
// case-insensitively as substrings of the process name). With suspend set,
// matching processes are SIGSTOPped until ReleaseFocus.
func New(blocklist []string, suspend bool) *Blocker {
	lowered := make([]string, 0, len(blocklist))
	for _, name := range blocklist {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			lowered = append(lowered, name)
		}
	}
	return &Blocker{
		blocklist: lowered,
		suspend:   suspend,
		processes: systemProcesses,
	}
}

func systemProcesses(ctx context.Context) ([]target, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	targets := make([]target, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue // gone or inaccessible, skip
		}
		targets = append(targets, target{
			pid:     p.Pid,
			name:    name,
			suspend: p.SuspendWithContext,
			resume:  p.ResumeWithContext,
		})
	}
	return targets, nil
}

// EnforceFocus scans for distracting applications. Matches are logged and,
// in suspend mode, stopped.
func (b *Blocker) EnforceFocus(ctx context.Context) {
	if len(b.blocklist) == 0 {
		return
	}

	targets, err := b.processes(ctx)
	if err != nil {
		log.Printf("[enforcer] process scan failed: %v", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, tg := range targets {
		if !b.matches(tg.name) {
			continue
		}
		if !b.suspend {
			log.Printf("[enforcer] distracting app running: %s (pid %d)", tg.name, tg.pid)
			continue
		}
		if err := tg.suspend(ctx); err != nil {
			log.Printf("[enforcer] could not suspend %s (pid %d): %v", tg.name, tg.pid, err)
			continue
		}
		log.Printf("[enforcer] suspended %s (pid %d)", tg.name, tg.pid)
		b.suspended = append(b.suspended, tg)
	}
}

// ReleaseFocus resumes everything suspended by the last EnforceFocus.
func (b *Blocker) ReleaseFocus(ctx context.Context) {
	b.mu.Lock()
	suspended := b.suspended
	b.suspended = nil
	b.mu.Unlock()

	for _, tg := range suspended {
		if err := tg.resume(ctx); err != nil {
			log.Printf("[enforcer] could not resume %s (pid %d): %v", tg.name, tg.pid, err)
			continue
		}
		log.Printf("[enforcer] resumed %s (pid %d)", tg.name, tg.pid)
	}
}

func (b *Blocker) matches(name string) bool {
	lowered := strings.ToLower(name)
	for _, blocked := range b.blocklist {
		if strings.Contains(lowered, blocked) {
			return true
		}
	}
	return false
}
