// Package autosave persists the editor state a fixed delay after the last edit.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/machinehq/flowbuilder/pkg/changes"
)

// DefaultDelay is the debounce window used when Config.Delay is zero.
const DefaultDelay = 2 * time.Second

// State of the autosave state machine.
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSaving  State = "saving"
)

// Source returns the current editor state.
type Source func() *changes.Snapshot

// Saver persists a snapshot for a workflow.
type Saver func(ctx context.Context, workflowID string, snapshot *changes.Snapshot) error

// Config tunes an Autosaver. Zero values fall back to defaults.
type Config struct {
	Delay  time.Duration
	Clock  clockwork.Clock
	Logger *slog.Logger

	// SaveLock is held around every save; share it with the manual save path.
	SaveLock sync.Locker

	OnSaved func(snapshot *changes.Snapshot, at time.Time)
	OnError func(err error)
}

// Autosaver debounces edits into remote saves.
//
//	Idle    -> Pending  Touch with changes against the baseline
//	Pending -> Pending  Touch restarts the timer
//	Pending -> Saving   timer fires
//	Saving  -> Idle     save finished (success moves the baseline, failure keeps it)
//	Saving  -> Pending  save finished and edits arrived meanwhile
type Autosaver struct {
	ctx    context.Context
	cfg    Config
	source Source
	saver  Saver

	mu         sync.Mutex
	state      State
	timer      clockwork.Timer
	generation uint64
	workflowID string
	baseline   *changes.Snapshot
	savedAt    time.Time
	dirty      bool
	stopped    bool
}

// New creates a disarmed autosaver. ctx is used for save calls and is not cancelled by Stop:
// a request already sent is allowed to finish.
func New(ctx context.Context, source Source, saver Saver, cfg Config) *Autosaver {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}

	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.SaveLock == nil {
		cfg.SaveLock = &sync.Mutex{}
	}

	return &Autosaver{
		ctx:    ctx,
		cfg:    cfg,
		source: source,
		saver:  saver,
		state:  StateIdle,
	}
}

// Arm enables autosave for a persisted workflow, using baseline as the last saved state.
// A nil baseline treats the current state as unsaved. Switching to another workflow drops
// the pending save.
func (a *Autosaver) Arm(workflowID string, baseline *changes.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}

	if workflowID != a.workflowID {
		a.resetLocked()
	}

	a.workflowID = workflowID
	a.baseline = baseline
}

// Disarm drops any pending save and forgets the workflow until the next Arm.
func (a *Autosaver) Disarm() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.resetLocked()
	a.workflowID = ""
	a.baseline = nil
	a.savedAt = time.Time{}
}

func (a *Autosaver) resetLocked() {
	a.cancelTimerLocked()
	a.dirty = false

	if a.state == StatePending {
		a.state = StateIdle
	}
}

// Armed reports whether the autosaver has a workflow id to save to.
func (a *Autosaver) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.workflowID != "" && !a.stopped
}

// Touch signals an edit. It cancels any pending save and schedules a new one when the
// current state differs from the baseline.
func (a *Autosaver) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped || a.workflowID == "" {
		return
	}

	a.cancelTimerLocked()

	if a.state == StateSaving {
		a.dirty = true

		return
	}

	a.scheduleLocked()
}

// Cancel drops a pending save without disarming.
func (a *Autosaver) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelTimerLocked()

	if a.state == StatePending {
		a.state = StateIdle
	}
}

// Stop cancels any pending save and disarms permanently.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelTimerLocked()
	a.stopped = true
	a.dirty = false

	if a.state == StatePending {
		a.state = StateIdle
	}
}

// MarkSaved records a snapshot persisted by another path as the new baseline.
func (a *Autosaver) MarkSaved(snapshot *changes.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.baseline = snapshot
	a.savedAt = a.cfg.Clock.Now()
}

// State returns the current state.
func (a *Autosaver) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.state
}

// Baseline returns the last saved snapshot.
func (a *Autosaver) Baseline() *changes.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.baseline
}

// SavedAt returns when the baseline was last updated.
func (a *Autosaver) SavedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.savedAt
}

func (a *Autosaver) scheduleLocked() {
	if !changes.HasChanges(a.source(), a.baseline) {
		a.state = StateIdle

		return
	}

	a.generation++
	generation := a.generation

	a.timer = a.cfg.Clock.AfterFunc(a.cfg.Delay, func() { a.fire(generation) })
	a.state = StatePending
}

func (a *Autosaver) cancelTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}

	a.generation++
}

func (a *Autosaver) fire(generation uint64) {
	a.mu.Lock()

	if a.stopped || generation != a.generation {
		a.mu.Unlock()

		return
	}

	a.timer = nil
	a.state = StateSaving
	workflowID := a.workflowID
	a.mu.Unlock()

	a.cfg.SaveLock.Lock()

	// The editor may have switched workflows while this save waited for the lock.
	a.mu.Lock()
	retargeted := a.stopped || a.workflowID != workflowID
	a.mu.Unlock()

	snapshot := a.source()
	skipped := retargeted || !changes.HasChanges(snapshot, a.Baseline())

	var err error
	if !skipped {
		a.cfg.Logger.DebugContext(a.ctx, "Autosaving workflow", "workflow_id", workflowID)
		err = a.saver(a.ctx, workflowID, snapshot)
	}

	a.cfg.SaveLock.Unlock()

	a.mu.Lock()

	var savedAt time.Time

	if err == nil && !skipped && a.workflowID == workflowID {
		a.baseline = snapshot
		a.savedAt = a.cfg.Clock.Now()
		savedAt = a.savedAt
	}

	a.state = StateIdle

	if a.dirty && !a.stopped {
		a.dirty = false
		a.scheduleLocked()
	}

	a.mu.Unlock()

	switch {
	case err != nil:
		a.cfg.Logger.ErrorContext(a.ctx, "Failed to autosave workflow", "workflow_id", workflowID, "error", err)

		if a.cfg.OnError != nil {
			a.cfg.OnError(err)
		}
	case !skipped && a.cfg.OnSaved != nil:
		a.cfg.OnSaved(snapshot, savedAt)
	}
}
