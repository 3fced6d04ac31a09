// Package audit is the asynchronous logging engine for developer
// operations. The engine validates and authorizes each log call on the
// caller's goroutine, then hands the built record to a single background
// worker that dispatches writes to the storage backend in FIFO order.
// Log calls return before the write is confirmed; queries are synchronous.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/pkg/idgen"
)

// ErrQueueFull is reported through the failure channel when a record is
// dropped because the pending-write buffer is full.
var ErrQueueFull = errors.New("audit queue full")

const defaultQueueSize = 256

// Config configures an Engine.
type Config struct {
	// Backend receives all writes and queries. Required. The engine does
	// not close it; the owner that opened it closes it after Engine.Close.
	Backend Backend

	// AuthorizedDevelopers is the membership set for the access policy.
	AuthorizedDevelopers []string

	// QueueSize bounds the pending-write buffer (default 256).
	QueueSize int

	// OnWriteError, if set, is invoked from the worker goroutine for every
	// record that could not be persisted (backend failure or full queue).
	OnWriteError func(rec Record, err error)

	Logger *slog.Logger
}

// Engine accepts log requests and dispatches them to its backend without
// blocking the caller. Failed asynchronous writes never reach the caller's
// stack; they are counted, logged at warn level, and passed to the
// OnWriteError hook when one is configured.
type Engine struct {
	backend Backend
	policy  *Policy
	logger  *slog.Logger
	onErr   func(Record, error)

	mu     sync.Mutex // serializes enqueue against Close and orders timestamps
	lastTS time.Time
	closed bool

	ch   chan Record
	done chan struct{}
	once sync.Once

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewEngine builds an engine and starts its write worker.
func NewEngine(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	e := &Engine{
		backend: cfg.Backend,
		policy:  NewPolicy(cfg.AuthorizedDevelopers),
		logger:  cfg.Logger,
		onErr:   cfg.OnWriteError,
		ch:      make(chan Record, size),
		done:    make(chan struct{}),
	}
	go e.writeLoop()
	return e
}

// LogMethodCall records a method invocation. cause, when non-nil, is
// normalized into the record's error payload and forces result to failure.
// Validation and authorization errors return synchronously; the backend
// write happens after this call returns.
func (e *Engine) LogMethodCall(developerID, model, method string, result Result, cause error) error {
	return e.Log(ActionMethodCall, developerID, model, method, result, Normalize(cause))
}

// LogDatabaseTransaction records a database transaction.
func (e *Engine) LogDatabaseTransaction(developerID, model, method string, result Result, cause error) error {
	return e.Log(ActionDBTransaction, developerID, model, method, result, Normalize(cause))
}

// LogModelInteraction records a domain-model interaction.
func (e *Engine) LogModelInteraction(developerID, model, method string, result Result, cause error) error {
	return e.Log(ActionModelInteraction, developerID, model, method, result, Normalize(cause))
}

// Log is the underlying operation behind the per-action methods. It takes
// the error already in payload form, which is what transport surfaces have.
func (e *Engine) Log(action Action, developerID, model, method string, result Result, errPayload *ErrorPayload) error {
	if result != ResultSuccess && result != ResultFailure {
		return fmt.Errorf("%w: %q", ErrInvalidResult, result)
	}
	if !e.policy.Allows(developerID) {
		return fmt.Errorf("%w: %q", ErrAccessDenied, developerID)
	}
	if errPayload != nil {
		// Error presence wins over a caller-supplied "success".
		result = ResultFailure
	}

	rec := Record{
		EntryID:     "log_" + idgen.New(),
		DeveloperID: developerID,
		Action:      action,
		Model:       model,
		Method:      method,
		Result:      result,
		Error:       errPayload,
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	rec.Timestamp = e.stampLocked()
	select {
	case e.ch <- rec:
		e.mu.Unlock()
	default:
		e.mu.Unlock()
		e.dropped.Add(1)
		e.logger.Warn("audit queue full, dropping record",
			"developer_id", rec.DeveloperID, "method", rec.Method)
		e.reportFailure(rec, ErrQueueFull)
	}
	return nil
}

// stampLocked returns a wall-clock timestamp that never regresses across
// records from this engine, even if the system clock steps backward.
func (e *Engine) stampLocked() time.Time {
	now := time.Now().UTC()
	if now.Before(e.lastTS) {
		now = e.lastTS
	}
	e.lastTS = now
	return now
}

// GetLogs returns the records matching f, in the backend's natural order.
// Synchronous: a record enqueued just before this call may not be visible
// yet (asynchronous dispatch gives no read-your-writes guarantee).
func (e *Engine) GetLogs(ctx context.Context, f Filter) ([]Record, error) {
	return e.backend.Query(ctx, f)
}

// Dropped reports how many records were discarded on a full queue.
func (e *Engine) Dropped() int64 { return e.dropped.Load() }

// Failed reports how many dispatched writes the backend rejected.
func (e *Engine) Failed() int64 { return e.failed.Load() }

// Close stops accepting new records, drains the pending queue to the
// backend, and waits for the worker to finish. Records that fail during
// the drain go through the normal failure channel. Safe to call twice.
func (e *Engine) Close() error {
	e.once.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		close(e.ch)
		<-e.done
	})
	return nil
}

func (e *Engine) writeLoop() {
	defer close(e.done)
	for rec := range e.ch {
		if err := e.backend.Write(context.Background(), rec); err != nil {
			e.failed.Add(1)
			e.logger.Warn("audit write failed",
				"error", err, "entry_id", rec.EntryID, "developer_id", rec.DeveloperID)
			e.reportFailure(rec, err)
		}
	}
}

func (e *Engine) reportFailure(rec Record, err error) {
	if e.onErr != nil {
		e.onErr(rec, err)
	}
}
