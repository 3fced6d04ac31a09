// CLAUDE:SUMMARY SQLite backend — audit_log table with WAL, filter-driven WHERE clause, insertion-order queries
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/devaudit/pkg/audit"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	entry_id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	developer_id TEXT NOT NULL,
	action TEXT NOT NULL,
	model TEXT NOT NULL,
	method TEXT NOT NULL,
	result TEXT NOT NULL,
	error_kind TEXT,
	error_message TEXT,
	error_trace TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_log_dev ON audit_log(developer_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_model ON audit_log(model);
`

// SQLite persists records in an audit_log table. This backend goes beyond
// the two storage types the original system shipped; it exists for
// deployments that want queryable local storage without a search cluster.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (b *SQLite) Write(ctx context.Context, rec audit.Record) error {
	var kind, message, trace any
	if rec.Error != nil {
		kind, message, trace = rec.Error.Kind, rec.Error.Message, rec.Error.Trace
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO audit_log (entry_id, timestamp, developer_id, action, model, method,
			result, error_kind, error_message, error_trace)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rec.EntryID, rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.DeveloperID,
		string(rec.Action), rec.Model, rec.Method, string(rec.Result), kind, message, trace)
	if err != nil {
		return fmt.Errorf("%w: inserting audit row: %v", audit.ErrBackendUnavailable, err)
	}
	return nil
}

// Query returns matching records in insertion order.
func (b *SQLite) Query(ctx context.Context, f audit.Filter) ([]audit.Record, error) {
	where := " WHERE 1=1"
	var args []any
	addClause := func(col, val string) {
		if val != "" {
			where += " AND " + col + " = ?"
			args = append(args, val)
		}
	}
	addClause("developer_id", f.DeveloperID)
	addClause("action", string(f.Action))
	addClause("model", f.Model)
	addClause("method", f.Method)
	addClause("result", string(f.Result))

	rows, err := b.db.QueryContext(ctx, `
		SELECT entry_id, timestamp, developer_id, action, model, method,
			result, error_kind, error_message, error_trace
		FROM audit_log`+where+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying audit_log: %v", audit.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var rec audit.Record
		var ts string
		var kind, message, trace sql.NullString
		if err := rows.Scan(&rec.EntryID, &ts, &rec.DeveloperID, &rec.Action, &rec.Model,
			&rec.Method, &rec.Result, &kind, &message, &trace); err != nil {
			return nil, fmt.Errorf("%w: scanning audit row: %v", audit.ErrBackendUnavailable, err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("%w: corrupt timestamp %q: %v", audit.ErrBackendUnavailable, ts, err)
		}
		if kind.Valid {
			rec.Error = &audit.ErrorPayload{Kind: kind.String, Message: message.String, Trace: trace.String}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading audit rows: %v", audit.ErrBackendUnavailable, err)
	}
	return out, nil
}

func (b *SQLite) Close() error {
	return b.db.Close()
}
