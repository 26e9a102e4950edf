// Package syncer orchestrates drain passes over the operation queue in
// response to connectivity changes and manual triggers.
package syncer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/netmon"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/queue"
)

// Status is the aggregate sync state displayed to consumers.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is a point-in-time snapshot of the coordinator.
type State struct {
	Status           Status     `json:"status"`
	Progress         int        `json:"progress"`
	PendingCount     int        `json:"pending_count"`
	FailedCount      int        `json:"failed_count"`
	LastSyncTime     *time.Time `json:"last_sync_time,omitempty"`
	LastErrorMessage string     `json:"last_error_message,omitempty"`
}

// drainQueue is the slice of the operation queue the coordinator needs.
type drainQueue interface {
	Drain(ctx context.Context, onProgress func(queue.Progress)) queue.DrainSummary
	Counts() (pending, failed int)
}

// connectivity is the slice of the network monitor the coordinator needs.
type connectivity interface {
	IsOnline() bool
	Subscribe() <-chan netmon.StateChange
}

// Option configures optional behaviour for the Coordinator.
type Option func(*Coordinator)

// WithLogger overrides the coordinator logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithStabilizationDelay sets the wait between regaining connectivity and the
// automatic sync pass, riding out flapping connections.
func WithStabilizationDelay(delay time.Duration) Option {
	return func(c *Coordinator) { c.stabilization = delay }
}

// WithIdleResetDelay sets how long a terminal success/error status stays
// visible before the coordinator returns to idle.
func WithIdleResetDelay(delay time.Duration) Option {
	return func(c *Coordinator) { c.idleReset = delay }
}

// Coordinator owns the session-wide sync state. At most one pass is active at
// a time; a re-entrant SyncNow while syncing is a no-op rather than a queued
// second pass.
type Coordinator struct {
	queue   drainQueue
	monitor connectivity
	logger  *log.Logger

	stabilization time.Duration
	idleReset     time.Duration

	mu              sync.Mutex
	status          Status
	progress        int
	lastSync        time.Time
	lastError       string
	syncing         bool
	cancelRequested bool
	passCancel      context.CancelFunc
	generation      int
}

// NewCoordinator constructs a Coordinator bound to the given queue and monitor.
func NewCoordinator(q drainQueue, monitor connectivity, opts ...Option) *Coordinator {
	c := &Coordinator{
		queue:         q,
		monitor:       monitor,
		logger:        log.New(log.Writer(), "[syncer] ", log.LstdFlags),
		stabilization: 2 * time.Second,
		idleReset:     3 * time.Second,
		status:        StatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the coordinator plus derived queue counts.
func (c *Coordinator) State() State {
	pending, failed := c.queue.Counts()

	c.mu.Lock()
	defer c.mu.Unlock()
	state := State{
		Status:           c.status,
		Progress:         c.progress,
		PendingCount:     pending,
		FailedCount:      failed,
		LastErrorMessage: c.lastError,
	}
	if !c.lastSync.IsZero() {
		t := c.lastSync
		state.LastSyncTime = &t
	}
	return state
}

// Run subscribes to connectivity transitions and auto-triggers a sync pass
// after the stabilization delay whenever the connection comes back with work
// pending. It blocks until the context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	changes := c.monitor.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if change.WasOffline {
				go c.autoSync(ctx)
			}
		}
	}
}

func (c *Coordinator) autoSync(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(c.stabilization):
	}

	pending, _ := c.queue.Counts()
	if pending == 0 || !c.monitor.IsOnline() {
		return
	}

	c.logger.Printf("connection stabilized with %d pending operations, starting sync", pending)
	recordAutoSync()
	c.SyncNow(ctx)
}

// SyncNow runs one drain pass synchronously. It is a no-op while a pass is
// already active or while the monitor reports offline; both cases are
// deferrals, not failures.
func (c *Coordinator) SyncNow(ctx context.Context) queue.DrainSummary {
	if !c.monitor.IsOnline() {
		recordPass("skipped_offline")
		return queue.DrainSummary{Skipped: true}
	}

	c.mu.Lock()
	if c.syncing {
		c.mu.Unlock()
		recordPass("skipped_active")
		return queue.DrainSummary{AlreadyDraining: true}
	}
	c.syncing = true
	c.cancelRequested = false
	c.status = StatusSyncing
	c.progress = 0
	c.generation++
	passCtx, cancel := context.WithCancel(ctx)
	c.passCancel = cancel
	c.mu.Unlock()

	summary := c.queue.Drain(passCtx, c.onProgress)
	cancel()

	c.mu.Lock()
	c.syncing = false
	c.passCancel = nil
	if c.cancelRequested || summary.Cancelled {
		c.cancelRequested = false
		c.status = StatusIdle
		c.progress = 0
		c.mu.Unlock()
		recordPass("cancelled")
		return summary
	}

	c.lastSync = time.Now().UTC()
	c.progress = 100
	if summary.Failed > 0 {
		c.status = StatusError
		c.lastError = summary.LastError
		recordPass("error")
	} else {
		c.status = StatusSuccess
		c.lastError = ""
		recordPass("success")
	}
	c.scheduleIdleResetLocked()
	c.mu.Unlock()

	return summary
}

// CancelSync aborts the in-flight pass. The pass context is cancelled, so the
// current action observes the cancellation and the pass stops before the next
// operation; displayed status and progress reset immediately.
func (c *Coordinator) CancelSync() {
	c.mu.Lock()
	if !c.syncing {
		c.mu.Unlock()
		return
	}
	c.cancelRequested = true
	c.status = StatusIdle
	c.progress = 0
	cancel := c.passCancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// onProgress folds per-operation drain updates into the displayed state.
// Progress is monotonically non-decreasing within a pass.
func (c *Coordinator) onProgress(p queue.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.syncing {
		return
	}
	if p.Percent > c.progress {
		c.progress = p.Percent
	}
	if p.Err != nil {
		c.lastError = p.Err.Error()
	}
}

// scheduleIdleResetLocked arms the timer that clears a terminal status back to
// idle. The generation guard keeps a stale timer from clobbering a newer pass.
func (c *Coordinator) scheduleIdleResetLocked() {
	gen := c.generation
	time.AfterFunc(c.idleReset, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen || c.syncing {
			return
		}
		c.status = StatusIdle
		c.progress = 0
	})
}
