// CLAUDE:SUMMARY In-memory append-only backend — test and dev collaborator, not selectable from config
package storage

import (
	"context"
	"sync"

	"github.com/hazyhaar/devaudit/pkg/audit"
)

// Memory is an in-memory append-only backend for tests and dev setups.
type Memory struct {
	mu      sync.Mutex
	records []audit.Record
	failErr error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (b *Memory) Write(_ context.Context, rec audit.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	b.records = append(b.records, rec)
	return nil
}

func (b *Memory) Query(_ context.Context, f audit.Filter) ([]audit.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return nil, b.failErr
	}
	var out []audit.Record
	for _, rec := range b.records {
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (b *Memory) Close() error { return nil }

// FailWith makes every subsequent Write and Query return err (nil to
// restore normal operation). Test-only failure injection.
func (b *Memory) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failErr = err
}
