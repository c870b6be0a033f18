package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that override file values.
// HOOKGATE_ENGINE__MAX_RETRIES=5 sets engine.max_retries.
const EnvPrefix = "HOOKGATE_"

// DefaultPath is the config file loaded by Load.
const DefaultPath = "config.yaml"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Engine    EngineConfig    `koanf:"engine"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Hooks     HooksConfig     `koanf:"hooks"`
}

type ServerConfig struct {
	Port     int    `koanf:"port"`
	Upstream string `koanf:"upstream"` // Reverse-proxy target; empty serves 204 for allowed requests
	Timeout  string `koanf:"timeout"`  // Duration string like "30s"
}

// EngineConfig configures retry handling for before hooks.
type EngineConfig struct {
	MaxRetries         int    `koanf:"max_retries"` // 0 means 3, -1 disables retries
	DefaultDelay       string `koanf:"default_delay"` // Duration string like "100ms"
	ExponentialBackoff bool   `koanf:"exponential_backoff"`
	MaxDelay           string `koanf:"max_delay"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, none
	SQLite SQLiteConfig `koanf:"sqlite"`
	// Buffer is the number of diagnostic events queued for the writer.
	Buffer int `koanf:"buffer"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	ServiceName string `koanf:"service_name"`
	Exporter    string `koanf:"exporter"` // stdout or none
}

// HooksConfig lists the rules for each lifecycle point, in evaluation order.
type HooksConfig struct {
	Before  []HookRule `koanf:"before"`
	After   []HookRule `koanf:"after"`
	Blocked []HookRule `koanf:"blocked"`
	Failed  []HookRule `koanf:"failed"`
}

// Len returns the total number of rules.
func (h HooksConfig) Len() int {
	return len(h.Before) + len(h.After) + len(h.Blocked) + len(h.Failed)
}

// HookRule declares a single handler. Type selects which of the
// type-specific fields apply.
type HookRule struct {
	Name    string   `koanf:"name"`
	Type    string   `koanf:"type"` // static, cel, ratelimit, apikey, webhook
	Paths   []string `koanf:"paths"`
	Methods []string `koanf:"methods"`

	// static
	Action string         `koanf:"action"` // allow, block, retry, fallback
	Reason string         `koanf:"reason"`
	Delay  string         `koanf:"delay"` // retry delay
	Data   map[string]any `koanf:"data"`  // fallback payload

	// cel
	Expr string `koanf:"expr"`

	// ratelimit
	Rate  float64 `koanf:"rate"` // events per second
	Burst int     `koanf:"burst"`
	Keys  int     `koanf:"keys"` // distinct paths tracked

	// apikey
	Header    string   `koanf:"header"`
	KeyHashes []string `koanf:"key_hashes"`

	// webhook
	URL          string            `koanf:"url"`
	Timeout      string            `koanf:"timeout"`
	OnError      string            `koanf:"on_error"` // allow or block (default: block)
	Retries      int               `koanf:"retries"`
	Headers      map[string]string `koanf:"headers"`
	AllowPrivate bool              `koanf:"allow_private"` // permit loopback and private targets
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads DefaultPath, then environment overrides.
func Load() (*Config, error) {
	return LoadFile(DefaultPath)
}

// LoadFile reads the config file at path, then environment overrides.
// A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("server.timeout") {
		k.Set("server.timeout", "60s")
	}
	if !k.Exists("engine.max_retries") {
		k.Set("engine.max_retries", 3)
	}
	if !k.Exists("engine.max_delay") {
		k.Set("engine.max_delay", "10s")
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "memory")
	}
	if !k.Exists("storage.buffer") {
		k.Set("storage.buffer", 256)
	}

	if !k.Exists("telemetry.service_name") {
		k.Set("telemetry.service_name", "hookgate")
	}
	if !k.Exists("telemetry.exporter") {
		k.Set("telemetry.exporter", "none")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in webhook targets and headers
	for _, rules := range [][]HookRule{cfg.Hooks.Before, cfg.Hooks.After, cfg.Hooks.Blocked, cfg.Hooks.Failed} {
		for i := range rules {
			rules[i].URL = substituteEnvVars(rules[i].URL)
			for name, v := range rules[i].Headers {
				rules[i].Headers[name] = substituteEnvVars(v)
			}
		}
	}

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
