package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestEnvKey(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"LINK_ANALYZER_PORT", "port"},
		{"LINK_ANALYZER_JSON_LOGS", "json_logs"},
		{"LINK_ANALYZER_NEO4J_URI", "neo4j.uri"},
		{"LINK_ANALYZER_S3_ACCESS_KEY", "s3.access_key"},
		{"LINK_ANALYZER_LLM_BASE_URL", "llm.base_url"},
		{"LINK_ANALYZER_CACHE_TTL", "cache.ttl"},
	}
	for _, tt := range tests {
		if got := envKey(tt.env); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(nil, filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Jobs.Retain != 100 {
		t.Errorf("Jobs.Retain = %d, want 100", cfg.Jobs.Retain)
	}

	nested := []struct {
		key, got, want string
	}{
		{"llm.model", cfg.LLM.Model, "gpt-4o-mini"},
		{"s3.region", cfg.S3.Region, "us-east-1"},
		{"neo4j.user", cfg.Neo4j.User, "neo4j"},
		{"neo4j.database", cfg.Neo4j.Database, "neo4j"},
	}
	for _, tt := range nested {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.key, tt.got, tt.want)
		}
	}
}

func TestLoadKeepsSiblingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link-analyzer.toml")
	content := "[neo4j]\nuri = \"bolt://localhost:7687\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LINK_ANALYZER_CACHE_TTL", "5m")

	cfg, err := load(nil, path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Neo4j.URI != "bolt://localhost:7687" || cfg.Neo4j.User != "neo4j" {
		t.Errorf("Neo4j = %+v, want file URI with default user", cfg.Neo4j)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want env value 5m", cfg.Cache.TTL)
	}
	if cfg.Jobs.Retain != 100 {
		t.Errorf("Jobs.Retain = %d, want default 100", cfg.Jobs.Retain)
	}
}

func TestLoadLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link-analyzer.toml")
	content := "port = 9000\n\n[redis]\naddr = \"localhost:6379\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LINK_ANALYZER_LLM_MODEL", "local-model")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 8080, "")
	if err := flags.Parse([]string{"--port=7000"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := load(flags, path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != 7000 {
		t.Errorf("Port = %d, want flag value 7000", cfg.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want file value", cfg.Redis.Addr)
	}
	if cfg.LLM.Model != "local-model" {
		t.Errorf("LLM.Model = %q, want env value", cfg.LLM.Model)
	}
}
