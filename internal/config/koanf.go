package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/abxlearn/config.yaml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			User:         "abx_user",
			Password:     "abx_password",
			Name:         "abx_learn",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		KV: KVConfig{
			Backend:      "memory",
			SQLitePath:   "data",
			BadgerPath:   "",
			RedisAddr:    "localhost:6379",
			RedisChannel: "abx:kv:changes",
			HistoryKey:   "quizHistory",
			BookmarkKey:  "bookmarkedConditions",
		},
		Security: SecurityConfig{
			AuthMode:    AuthModeNone,
			TokenTTL:    72 * time.Hour,
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Coach: CoachConfig{
			Enabled: true,
			Mock:    false,
			Model:   "claude-sonnet-4-5",
			Timeout: 60 * time.Second,
		},
	}
}

// Load reads configuration from defaults, the first config file found and
// the environment. path, when non-empty, replaces the file search.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to config paths.
// DB_* and PORT keep their historical names.
var envMappings = map[string]string{
	"port":             "server.port",
	"http_host":        "server.host",
	"shutdown_timeout": "server.shutdown_timeout",

	"db_host":           "database.host",
	"db_port":           "database.port",
	"db_user":           "database.user",
	"db_password":       "database.password",
	"db_name":           "database.name",
	"db_sslmode":        "database.sslmode",
	"db_max_open_conns": "database.max_open_conns",
	"db_max_idle_conns": "database.max_idle_conns",

	"kv_backend":       "kv.backend",
	"kv_sqlite_path":   "kv.sqlite_path",
	"kv_badger_path":   "kv.badger_path",
	"redis_addr":       "kv.redis_addr",
	"kv_redis_channel": "kv.redis_channel",
	"kv_history_key":   "kv.history_key",
	"kv_bookmark_key":  "kv.bookmark_key",

	"auth_mode":    "security.auth_mode",
	"jwt_secret":   "security.jwt_secret",
	"token_ttl":    "security.token_ttl",
	"cors_origins": "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"coach_enabled":     "coach.enabled",
	"mock_generator":    "coach.mock",
	"anthropic_api_key": "coach.api_key",
	"anthropic_model":   "coach.model",
	"coach_timeout":     "coach.timeout",

	"catalog_path": "catalog.path",
}

// envTransformFunc returns "" for variables it does not know, which koanf
// skips.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
