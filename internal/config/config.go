// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

// Package config loads service configuration from defaults, an optional YAML
// file, and command-line flags, in increasing order of precedence.
package config

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Session  SessionConfig  `koanf:"session"`
	Password PasswordConfig `koanf:"password"`
	Database DatabaseConfig `koanf:"database"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig selects the log format and minimum level.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// SessionConfig configures session lifetime and the session cookie.
// HashKey and BlockKey are hex encoded.
type SessionConfig struct {
	Lifetime      time.Duration `koanf:"lifetime"`
	CookieName    string        `koanf:"cookie_name"`
	CookieSecure  bool          `koanf:"cookie_secure"`
	HashKey       string        `koanf:"hash_key"`
	BlockKey      string        `koanf:"block_key"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// PasswordConfig bounds accepted passwords.
type PasswordConfig struct {
	MaxLength int `koanf:"max_length"`
}

// DatabaseConfig configures the connection pool. The URL comes from the
// DATABASE_URL environment variable, not from the file.
type DatabaseConfig struct {
	URL      string `koanf:"-"`
	MaxConns int32  `koanf:"max_conns"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Session: SessionConfig{
			Lifetime:      7 * 24 * time.Hour,
			CookieName:    "user_token",
			CookieSecure:  true,
			SweepInterval: 10 * time.Minute,
		},
		Password: PasswordConfig{MaxLength: 1024},
		Database: DatabaseConfig{MaxConns: 10},
	}
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"http-addr":              "http.addr",
	"http-shutdown-timeout":  "http.shutdown_timeout",
	"metrics-addr":           "metrics.addr",
	"log-format":             "log.format",
	"log-level":              "log.level",
	"session-lifetime":       "session.lifetime",
	"session-cookie-name":    "session.cookie_name",
	"session-cookie-secure":  "session.cookie_secure",
	"session-hash-key":       "session.hash_key",
	"session-block-key":      "session.block_key",
	"session-sweep-interval": "session.sweep_interval",
	"password-max-length":    "password.max_length",
	"database-max-conns":     "database.max_conns",
}

// RegisterFlags adds a flag for every configuration key, with the default
// shown in help output.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("http-addr", d.HTTP.Addr, "API listen address")
	fs.Duration("http-shutdown-timeout", d.HTTP.ShutdownTimeout, "graceful shutdown deadline")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "minimum log level (debug, info, warn, error)")
	fs.Duration("session-lifetime", d.Session.Lifetime, "session and cookie lifetime")
	fs.String("session-cookie-name", d.Session.CookieName, "session cookie name")
	fs.Bool("session-cookie-secure", d.Session.CookieSecure, "mark the session cookie Secure")
	fs.String("session-hash-key", "", "hex-encoded cookie signing key (32 or 64 bytes)")
	fs.String("session-block-key", "", "hex-encoded cookie encryption key (16, 24 or 32 bytes)")
	fs.Duration("session-sweep-interval", d.Session.SweepInterval, "interval between expired-session sweeps")
	fs.Int("password-max-length", d.Password.MaxLength, "maximum accepted password length in bytes")
	fs.Int32("database-max-conns", d.Database.MaxConns, "maximum database connections")
}

// Load layers defaults, the YAML file at path (skipped when path is empty),
// and any flags explicitly set on fs. databaseURL is copied in verbatim.
func Load(path string, fs *pflag.FlagSet, databaseURL string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load config file").
				With("path", path).
				Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").With("operation", "decode config").Wrap(err)
	}
	cfg.Database.URL = databaseURL

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	d := Defaults()
	defaults := map[string]any{
		"http.addr":              d.HTTP.Addr,
		"http.shutdown_timeout":  d.HTTP.ShutdownTimeout,
		"metrics.addr":           d.Metrics.Addr,
		"log.format":             d.Log.Format,
		"log.level":              d.Log.Level,
		"session.lifetime":       d.Session.Lifetime,
		"session.cookie_name":    d.Session.CookieName,
		"session.cookie_secure":  d.Session.CookieSecure,
		"session.hash_key":       d.Session.HashKey,
		"session.block_key":      d.Session.BlockKey,
		"session.sweep_interval": d.Session.SweepInterval,
		"password.max_length":    d.Password.MaxLength,
		"database.max_conns":     d.Database.MaxConns,
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}
	return nil
}

// Validate checks everything the server needs before it binds a port.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http.addr is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("http.shutdown_timeout must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.Session.Lifetime <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session.lifetime must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session.sweep_interval must be positive")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session.cookie_name is required")
	}
	if c.Password.MaxLength <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("password.max_length must be positive")
	}
	if c.Database.MaxConns <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("database.max_conns must be positive")
	}
	if _, _, err := c.Session.Keys(); err != nil {
		return err
	}
	return nil
}

// Keys decodes the cookie keys. The hash key must be 32 or 64 bytes and the
// block key 16, 24 or 32 bytes.
func (s SessionConfig) Keys() (hashKey, blockKey []byte, err error) {
	if s.HashKey == "" {
		return nil, nil, oops.Code("CONFIG_INVALID").Errorf("session.hash_key is required")
	}
	if s.BlockKey == "" {
		return nil, nil, oops.Code("CONFIG_INVALID").Errorf("session.block_key is required")
	}

	hashKey, err = hex.DecodeString(s.HashKey)
	if err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").With("key", "session.hash_key").Wrapf(err, "hash key is not hex")
	}
	if n := len(hashKey); n != 32 && n != 64 {
		return nil, nil, oops.Code("CONFIG_INVALID").Errorf("session.hash_key must decode to 32 or 64 bytes, got %d", n)
	}

	blockKey, err = hex.DecodeString(s.BlockKey)
	if err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").With("key", "session.block_key").Wrapf(err, "block key is not hex")
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, nil, oops.Code("CONFIG_INVALID").Errorf("session.block_key must decode to 16, 24 or 32 bytes, got %d", len(blockKey))
	}

	return hashKey, blockKey, nil
}
