// CLAUDE:SUMMARY Backend factory — maps the tagged storage_type config value to a concrete audit.Backend exactly once at startup
package storage

import (
	"fmt"

	"github.com/hazyhaar/devaudit/internal/config"
	"github.com/hazyhaar/devaudit/pkg/audit"
)

// Open builds the backend named by cfg.Type. Selection happens once here;
// the engine holds the returned backend for its whole lifetime.
func Open(cfg config.StorageConfig) (audit.Backend, error) {
	switch cfg.Type {
	case "json_file":
		return NewFile(cfg.Filename), nil
	case "elasticsearch":
		return NewElastic(cfg.Elasticsearch.Host, cfg.Elasticsearch.Index)
	case "sqlite":
		return OpenSQLite(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q (want json_file, elasticsearch, or sqlite)", cfg.Type)
	}
}
