// Package queue holds pending local mutations until they can be replayed
// against the plan server.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind tags the mutation type carried by an operation.
type Kind string

const (
	KindSave    Kind = "save"
	KindUpdate  Kind = "update"
	KindDelete  Kind = "delete"
	KindSync    Kind = "sync"
	KindRequest Kind = "request"
)

// Status is the lifecycle state of a queued operation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	// ErrNotFound is returned when an operation id is unknown.
	ErrNotFound = errors.New("operation not found")
	// ErrInProgress is returned when an operation is owned by a running drain pass.
	ErrInProgress = errors.New("operation is in progress")
	// ErrOffline is returned when execution is declined because connectivity is absent.
	// It signals deferral, not failure; queue state is left untouched.
	ErrOffline = errors.New("offline: execution deferred")
)

// Action is a deferred unit of work that performs the remote call for one
// operation. Implementations should be idempotent: a drain pass may re-run an
// action whose previous attempt failed after partial effect.
type Action interface {
	Execute(ctx context.Context) error
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context) error

// Execute implements Action.
func (f ActionFunc) Execute(ctx context.Context) error { return f(ctx) }

// operation is the internal queue record. All access is guarded by Queue.mu.
type operation struct {
	id          string
	kind        Kind
	action      Action
	payload     json.RawMessage
	status      Status
	attempts    int
	maxAttempts int
	lastError   string
	removed     bool
	createdAt   time.Time
	updatedAt   time.Time
}

// Snapshot is the read-only view of an operation exposed to callers.
type Snapshot struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      Status          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Progress describes one resolved operation within a drain pass.
type Progress struct {
	Done      int
	Total     int
	Percent   int
	Operation Snapshot
	Err       error
}

// DrainSummary reports the outcome of one drain pass.
type DrainSummary struct {
	Total           int
	Completed       int
	Failed          int
	LastError       string
	Skipped         bool // connectivity was absent; nothing executed
	AlreadyDraining bool // another pass owned the queue
	Cancelled       bool // the pass context was cancelled mid-drain
}

// Option configures optional behaviour for the Queue.
type Option func(*Queue)

// WithLogger overrides the queue logger.
func WithLogger(logger *log.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

// WithActionTimeout bounds the execution of a single action. A timed-out
// action counts as a failed attempt instead of stalling the pass.
func WithActionTimeout(timeout time.Duration) Option {
	return func(q *Queue) { q.actionTimeout = timeout }
}

// WithDefaultMaxAttempts sets the retry budget used when Add receives a
// non-positive maxAttempts.
func WithDefaultMaxAttempts(attempts int) Option {
	return func(q *Queue) {
		if attempts > 0 {
			q.defaultMaxAttempts = attempts
		}
	}
}

// WithOnlineCheck installs a connectivity gate consulted before any action
// executes. When the gate reports offline, Drain and Retry decline to run.
func WithOnlineCheck(check func() bool) Option {
	return func(q *Queue) { q.onlineCheck = check }
}

// Queue is an ordered collection of pending mutations. Operations execute in
// FIFO insertion order, strictly one at a time.
type Queue struct {
	mu                 sync.Mutex
	ops                []*operation
	draining           bool
	actionTimeout      time.Duration
	defaultMaxAttempts int
	onlineCheck        func() bool
	logger             *log.Logger
}

// NewQueue constructs an empty Queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		actionTimeout:      30 * time.Second,
		defaultMaxAttempts: 3,
		logger:             log.New(log.Writer(), "[queue] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Add appends a new pending operation and returns its id. The queue performs
// no deduplication; callers own avoiding duplicate submissions of the same
// logical mutation.
func (q *Queue) Add(kind Kind, action Action, payload json.RawMessage, maxAttempts int) string {
	if maxAttempts <= 0 {
		maxAttempts = q.defaultMaxAttempts
	}
	now := time.Now().UTC()
	op := &operation{
		id:          uuid.NewString(),
		kind:        kind,
		action:      action,
		payload:     payload,
		status:      StatusPending,
		maxAttempts: maxAttempts,
		createdAt:   now,
		updatedAt:   now,
	}

	q.mu.Lock()
	q.ops = append(q.ops, op)
	q.updateDepthLocked()
	q.mu.Unlock()

	recordEnqueued(kind)
	return op.id
}

// Remove deletes an operation regardless of status. It returns ErrNotFound
// for unknown ids and ErrInProgress when a drain pass owns the operation.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, op := range q.ops {
		if op.id != id {
			continue
		}
		if op.status == StatusInProgress {
			return ErrInProgress
		}
		op.removed = true
		q.ops = append(q.ops[:i], q.ops[i+1:]...)
		q.updateDepthLocked()
		return nil
	}
	return ErrNotFound
}

// Clear empties the queue unconditionally, discarding pending and failed
// operations alike. No actions are invoked. It returns the number of
// operations discarded.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.ops[:0]
	discarded := 0
	for _, op := range q.ops {
		// An in-flight operation is owned by the running pass; it prunes
		// itself when the action resolves.
		if op.status == StatusInProgress {
			kept = append(kept, op)
			continue
		}
		op.removed = true
		discarded++
	}
	q.ops = kept
	q.updateDepthLocked()
	return discarded
}

// Len reports the number of operations currently held.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Counts reports how many operations are pending (retryable) and failed
// (exhausted, waiting on user action).
func (q *Queue) Counts() (pending, failed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, op := range q.ops {
		switch op.status {
		case StatusPending, StatusInProgress:
			pending++
		case StatusFailed:
			failed++
		}
	}
	return pending, failed
}

// Snapshots returns a point-in-time copy of every operation in insertion order.
func (q *Queue) Snapshots() []Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Snapshot, 0, len(q.ops))
	for _, op := range q.ops {
		out = append(out, op.snapshot())
	}
	return out
}

// Retry executes a single operation immediately. A failed operation is given
// another attempt: exhaustion pauses automatic retries but never blocks an
// explicit user request. Success removes the operation; failure books the
// attempt against its budget.
func (q *Queue) Retry(ctx context.Context, id string) error {
	if q.onlineCheck != nil && !q.onlineCheck() {
		return ErrOffline
	}

	q.mu.Lock()
	var op *operation
	for _, candidate := range q.ops {
		if candidate.id == id {
			op = candidate
			break
		}
	}
	if op == nil {
		q.mu.Unlock()
		return ErrNotFound
	}
	if op.status == StatusInProgress {
		q.mu.Unlock()
		return ErrInProgress
	}
	op.status = StatusInProgress
	op.updatedAt = time.Now().UTC()
	action := op.action
	q.mu.Unlock()

	err := q.executeAction(ctx, action)

	q.mu.Lock()
	q.resolveLocked(op, err)
	q.mu.Unlock()
	return err
}

// Drain executes a snapshot of the currently pending operations in FIFO
// order, one at a time. Operations added mid-pass wait for the next pass.
// Action failures are captured per-operation and never abort the pass;
// cancelling ctx stops the pass between operations.
func (q *Queue) Drain(ctx context.Context, onProgress func(Progress)) DrainSummary {
	if q.onlineCheck != nil && !q.onlineCheck() {
		return DrainSummary{Skipped: true}
	}

	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return DrainSummary{AlreadyDraining: true}
	}
	q.draining = true
	batch := make([]*operation, 0, len(q.ops))
	for _, op := range q.ops {
		if op.status == StatusPending {
			batch = append(batch, op)
		}
	}
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	summary := DrainSummary{Total: len(batch)}
	if len(batch) == 0 {
		return summary
	}

	start := time.Now()
	defer func() { drainDuration.Observe(time.Since(start).Seconds()) }()

	for i, op := range batch {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		q.mu.Lock()
		if op.removed || op.status != StatusPending {
			// Removed or cleared while the pass was running.
			q.mu.Unlock()
			continue
		}
		op.status = StatusInProgress
		op.updatedAt = time.Now().UTC()
		action := op.action
		q.mu.Unlock()

		err := q.executeAction(ctx, action)

		q.mu.Lock()
		q.resolveLocked(op, err)
		snap := op.snapshot()
		q.mu.Unlock()

		if err == nil {
			summary.Completed++
		} else {
			summary.Failed++
			summary.LastError = err.Error()
			q.logger.Printf("operation %s (%s) attempt %d/%d failed: %v", op.id, op.kind, snap.Attempts, snap.MaxAttempts, err)
		}

		if onProgress != nil {
			done := i + 1
			onProgress(Progress{
				Done:      done,
				Total:     len(batch),
				Percent:   done * 100 / len(batch),
				Operation: snap,
				Err:       err,
			})
		}
	}

	return summary
}

// executeAction runs one action under the configured timeout, converting
// panics into errors so a misbehaving action cannot take down the pass.
func (q *Queue) executeAction(ctx context.Context, action Action) (err error) {
	if q.actionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.actionTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return action.Execute(ctx)
}

// resolveLocked applies an execution outcome. Success prunes the operation;
// failure books the attempt and marks the operation failed once the budget is
// spent. Callers hold q.mu.
func (q *Queue) resolveLocked(op *operation, err error) {
	now := time.Now().UTC()
	op.updatedAt = now
	op.attempts++

	if err == nil {
		op.status = StatusCompleted
		op.lastError = ""
		for i, candidate := range q.ops {
			if candidate == op {
				q.ops = append(q.ops[:i], q.ops[i+1:]...)
				break
			}
		}
		q.updateDepthLocked()
		recordCompleted(op.kind)
		return
	}

	op.lastError = err.Error()
	if op.attempts >= op.maxAttempts {
		op.status = StatusFailed
		recordExhausted(op.kind)
	} else {
		op.status = StatusPending
	}
	q.updateDepthLocked()
}

func (op *operation) snapshot() Snapshot {
	return Snapshot{
		ID:          op.id,
		Kind:        op.kind,
		Payload:     op.payload,
		Status:      op.status,
		Attempts:    op.attempts,
		MaxAttempts: op.maxAttempts,
		LastError:   op.lastError,
		CreatedAt:   op.createdAt,
		UpdatedAt:   op.updatedAt,
	}
}

// updateDepthLocked refreshes the depth gauges. Callers hold q.mu.
func (q *Queue) updateDepthLocked() {
	pending, failed := 0, 0
	for _, op := range q.ops {
		switch op.status {
		case StatusPending, StatusInProgress:
			pending++
		case StatusFailed:
			failed++
		}
	}
	setDepth(pending, failed)
}
