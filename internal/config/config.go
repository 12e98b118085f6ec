// Package config loads service settings from defaults, an optional YAML file
// and the environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	KV       KVConfig       `koanf:"kv"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Coach    CoachConfig    `koanf:"coach"`
	Catalog  CatalogConfig  `koanf:"catalog"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port" validate:"min=1,max=65535"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	Name         string `koanf:"name"`
	SSLMode      string `koanf:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns int    `koanf:"max_idle_conns" validate:"min=0"`
}

// DSN returns a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type KVConfig struct {
	Backend      string `koanf:"backend" validate:"oneof=memory postgres sqlite badger redis"`
	SQLitePath   string `koanf:"sqlite_path"`
	BadgerPath   string `koanf:"badger_path"`
	RedisAddr    string `koanf:"redis_addr"`
	RedisChannel string `koanf:"redis_channel"`
	HistoryKey   string `koanf:"history_key" validate:"required"`
	BookmarkKey  string `koanf:"bookmark_key" validate:"required"`
}

const (
	AuthModeJWT  = "jwt"
	AuthModeNone = "none"
)

type SecurityConfig struct {
	AuthMode    string        `koanf:"auth_mode" validate:"oneof=jwt none"`
	JWTSecret   string        `koanf:"jwt_secret"`
	TokenTTL    time.Duration `koanf:"token_ttl" validate:"gt=0"`
	CORSOrigins []string      `koanf:"cors_origins"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

type CoachConfig struct {
	Enabled bool          `koanf:"enabled"`
	Mock    bool          `koanf:"mock"`
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type CatalogConfig struct {
	Path string `koanf:"path"`
}

const minJWTSecretLength = 32

var validate = validator.New()

// Validate checks field ranges and the rules that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var errs []error
	if c.Security.AuthMode == AuthModeJWT {
		if len(c.Security.JWTSecret) < minJWTSecretLength {
			errs = append(errs, fmt.Errorf("security.jwt_secret must be at least %d characters in jwt mode", minJWTSecretLength))
		}
		if c.KV.Backend != "postgres" {
			errs = append(errs, errors.New("security.auth_mode jwt requires kv.backend postgres"))
		}
	}
	switch c.KV.Backend {
	case "sqlite":
		if c.KV.SQLitePath == "" {
			errs = append(errs, errors.New("kv.sqlite_path is required for the sqlite backend"))
		}
	case "redis":
		if c.KV.RedisAddr == "" {
			errs = append(errs, errors.New("kv.redis_addr is required for the redis backend"))
		}
	}
	return errors.Join(errs...)
}

// NeedsDatabase reports whether the service must connect to postgres.
func (c *Config) NeedsDatabase() bool {
	return c.KV.Backend == "postgres" || c.Security.AuthMode == AuthModeJWT
}
