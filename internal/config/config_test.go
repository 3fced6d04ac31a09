package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hazyhaar/devaudit/internal/config"
)

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Type != "json_file" {
		t.Errorf("expected default storage type json_file, got %q", cfg.Storage.Type)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %q", cfg.Server.Addr)
	}
	if cfg.Engine.QueueSize != 256 {
		t.Errorf("expected default queue size 256, got %d", cfg.Engine.QueueSize)
	}
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Type != "json_file" {
		t.Errorf("expected defaults for missing file, got storage type %q", cfg.Storage.Type)
	}
}

func TestLoad_ParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := `
[server]
addr = ":9090"

[storage]
type = "elasticsearch"

[storage.elasticsearch]
host = "http://search.internal:9200"
index = "dev_ops"

[auth]
jwt_secret = "s3cret"
authorized_developers = ["dev_042"]

[engine]
queue_size = 16
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr override not applied: %q", cfg.Server.Addr)
	}
	if cfg.Storage.Type != "elasticsearch" {
		t.Errorf("storage type override not applied: %q", cfg.Storage.Type)
	}
	if cfg.Storage.Elasticsearch.Host != "http://search.internal:9200" {
		t.Errorf("es host override not applied: %q", cfg.Storage.Elasticsearch.Host)
	}
	if cfg.Storage.Elasticsearch.Index != "dev_ops" {
		t.Errorf("es index override not applied: %q", cfg.Storage.Elasticsearch.Index)
	}
	if !reflect.DeepEqual(cfg.Auth.AuthorizedDevelopers, []string{"dev_042"}) {
		t.Errorf("authorized developers override not applied: %v", cfg.Auth.AuthorizedDevelopers)
	}
	if cfg.Engine.QueueSize != 16 {
		t.Errorf("queue size override not applied: %d", cfg.Engine.QueueSize)
	}
	// Untouched sections keep their defaults.
	if cfg.Storage.SQLite.Path != "data/audit.db" {
		t.Errorf("expected sqlite default retained, got %q", cfg.Storage.SQLite.Path)
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\naddr="), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
