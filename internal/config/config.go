// CLAUDE:SUMMARY TOML configuration — server/storage/auth/engine sections with defaults, missing file falls back to defaults
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Auth    AuthConfig    `toml:"auth"`
	Engine  EngineConfig  `toml:"engine"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type StorageConfig struct {
	// Type selects the backend: "json_file", "elasticsearch", or "sqlite".
	Type          string              `toml:"type"`
	Filename      string              `toml:"filename"`
	Elasticsearch ElasticsearchConfig `toml:"elasticsearch"`
	SQLite        SQLiteConfig        `toml:"sqlite"`
}

type ElasticsearchConfig struct {
	Host  string `toml:"host"`
	Index string `toml:"index"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret            string   `toml:"jwt_secret"`
	TokenExpiryMin       int      `toml:"token_expiry_min"`
	AuthorizedDevelopers []string `toml:"authorized_developers"`
}

type EngineConfig struct {
	QueueSize int `toml:"queue_size"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Storage: StorageConfig{
			Type:     "json_file",
			Filename: "data/logs.jsonl",
			Elasticsearch: ElasticsearchConfig{
				Host:  "http://localhost:9200",
				Index: "developer_logs",
			},
			SQLite: SQLiteConfig{
				Path: "data/audit.db",
			},
		},
		Auth: AuthConfig{
			JWTSecret:            "change-me-in-production",
			TokenExpiryMin:       1440, // 24h
			AuthorizedDevelopers: []string{"dev_001", "dev_002"},
		},
		Engine: EngineConfig{
			QueueSize: 256,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
