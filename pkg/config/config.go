package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LINK_ANALYZER_"

// FileName is the optional config file looked up in the working directory.
const FileName = "link-analyzer.toml"

// Config holds all configuration for the application
type Config struct {
	Port     int    `koanf:"port"`
	Verbose  bool   `koanf:"verbose"`
	JSONLogs bool   `koanf:"json_logs"`
	Inbox    string `koanf:"inbox"`

	Redis RedisConfig `koanf:"redis"`
	NATS  NATSConfig  `koanf:"nats"`
	Neo4j Neo4jConfig `koanf:"neo4j"`
	S3    S3Config    `koanf:"s3"`
	LLM   LLMConfig   `koanf:"llm"`
	Cache CacheConfig `koanf:"cache"`
	Jobs  JobsConfig  `koanf:"jobs"`
}

// RedisConfig selects the Redis key-value store. Empty Addr means in-memory.
type RedisConfig struct {
	Addr string `koanf:"addr"`
}

// NATSConfig selects the event bus. Empty URL disables publishing.
type NATSConfig struct {
	URL string `koanf:"url"`
}

// Neo4jConfig selects the graph export sink. Empty URI disables it.
type Neo4jConfig struct {
	URI      string `koanf:"uri"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

// S3Config configures s3:// sources.
type S3Config struct {
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
}

// LLMConfig configures the narrative model. Empty APIKey means the
// rule-based narrative is always used.
type LLMConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
}

type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

type JobsConfig struct {
	Retain int `koanf:"retain"` // finished jobs kept for lookup
}

// sections are the nested config groups. Their env names use the first
// underscore as the separator: LINK_ANALYZER_NEO4J_URI -> neo4j.uri,
// LINK_ANALYZER_S3_ACCESS_KEY -> s3.access_key.
var sections = []string{"redis", "nats", "neo4j", "s3", "llm", "cache", "jobs"}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":           8080,
		"verbose":        false,
		"json_logs":      false,
		"inbox":          "",
		"redis.addr":     "",
		"nats.url":       "",
		"neo4j.uri":      "",
		"neo4j.user":     "neo4j",
		"neo4j.password": "",
		"neo4j.database": "neo4j",
		"s3.region":      "us-east-1",
		"s3.endpoint":    "",
		"s3.access_key":  "",
		"s3.secret_key":  "",
		"llm.base_url":   "",
		"llm.api_key":    "",
		"llm.model":      "gpt-4o-mini",
		"cache.ttl":      "1h",
		"jobs.retain":    100,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return load(f, FileName)
}

func load(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	// We ignore errors here as the file might not exist
	_ = k.Load(file.Provider(path), toml.Parser())

	// 3. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// envKey maps LINK_ANALYZER_LLM_API_KEY to llm.api_key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// mapProvider serves the defaults. Dotted keys are unflattened so that
// "cache.ttl" lands in the cache section.
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return maps.Unflatten(p.m, "."), nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
