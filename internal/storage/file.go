// CLAUDE:SUMMARY JSON Lines file backend — mutex-serialized appends, whole-file scan on query, lazy file creation
package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/hazyhaar/devaudit/pkg/audit"
)

// File appends one JSON object per line to a named file and answers
// queries by reading the whole file back. Appends are serialized with a
// mutex; the same mutex covers reads so a query never observes a torn line.
type File struct {
	path string

	mu sync.Mutex
	f  *os.File // opened lazily on first write
}

// NewFile builds a file backend for path. The file is created on first
// write, not here, so an unwritable path surfaces as a write failure.
func NewFile(path string) *File {
	return &File{path: path}
}

func (b *File) Write(_ context.Context, rec audit.Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encoding record: %v", audit.ErrBackendUnavailable, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.f == nil {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("%w: opening %s: %v", audit.ErrBackendUnavailable, b.path, err)
		}
		b.f = f
	}
	if _, err := b.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("%w: appending to %s: %v", audit.ErrBackendUnavailable, b.path, err)
	}
	return nil
}

// Query returns matching records in insertion order. A missing file means
// nothing has been written yet and yields an empty result, not an error.
func (b *File) Query(_ context.Context, f audit.Filter) ([]audit.Record, error) {
	b.mu.Lock()
	data, err := os.ReadFile(b.path)
	b.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", audit.ErrBackendUnavailable, b.path, err)
	}

	var out []audit.Record
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec audit.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: corrupt record in %s: %v", audit.ErrBackendUnavailable, b.path, err)
		}
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %v", audit.ErrBackendUnavailable, b.path, err)
	}
	return out, nil
}

func (b *File) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}
