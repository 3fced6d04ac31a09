package audit

import (
	"context"
	"errors"
	"time"
)

// Result classifies the outcome of a logged operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Action names the kind of developer operation being recorded.
type Action string

const (
	ActionMethodCall       Action = "method_call"
	ActionDBTransaction    Action = "db_transaction"
	ActionModelInteraction Action = "model_interaction"
)

// ErrorPayload is the serializable form of a raised error.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

// Record is one persisted log entry. Records are immutable once built;
// the engine hands ownership to the backend and keeps no reference.
type Record struct {
	EntryID     string        `json:"entry_id"`
	Timestamp   time.Time     `json:"timestamp"`
	DeveloperID string        `json:"developer_id"`
	Action      Action        `json:"action"`
	Model       string        `json:"model"`
	Method      string        `json:"method"`
	Result      Result        `json:"result"`
	Error       *ErrorPayload `json:"error"`
}

// Filter selects records during query. Zero-value fields are
// unconstrained; set fields must all match (AND semantics).
type Filter struct {
	DeveloperID string
	Action      Action
	Model       string
	Method      string
	Result      Result
}

// Matches reports whether rec satisfies every constrained field.
func (f Filter) Matches(rec Record) bool {
	if f.DeveloperID != "" && rec.DeveloperID != f.DeveloperID {
		return false
	}
	if f.Action != "" && rec.Action != f.Action {
		return false
	}
	if f.Model != "" && rec.Model != f.Model {
		return false
	}
	if f.Method != "" && rec.Method != f.Method {
		return false
	}
	if f.Result != "" && rec.Result != f.Result {
		return false
	}
	return true
}

// Backend persists records and answers filtered queries. Implementations
// must be safe for concurrent Write and Query calls; the engine's worker
// writes while query callers read. Query order is the backend's natural
// order and is not guaranteed to agree across backends.
type Backend interface {
	Write(ctx context.Context, rec Record) error
	Query(ctx context.Context, f Filter) ([]Record, error)
	Close() error
}

var (
	// ErrInvalidResult rejects a log call whose result is neither
	// "success" nor "failure".
	ErrInvalidResult = errors.New("invalid result value")

	// ErrAccessDenied rejects a log call from a developer outside the
	// authorized set. Distinct from ErrBackendUnavailable so callers can
	// alert on security events separately from infrastructure events.
	ErrAccessDenied = errors.New("developer not authorized")

	// ErrBackendUnavailable wraps any storage-level write or query failure.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrEngineClosed rejects log calls after Close.
	ErrEngineClosed = errors.New("audit engine closed")
)
