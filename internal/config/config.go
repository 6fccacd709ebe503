// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package config loads Authcore configuration. Values come from defaults,
// then a YAML config file, then command-line flags, later sources winning.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/authcore/authcore/internal/mail"
	"github.com/authcore/authcore/internal/token"
	"github.com/authcore/authcore/internal/xdg"
)

// Config is the full Authcore configuration tree.
type Config struct {
	Server ServerConfig `koanf:"server"`
	DB     DBConfig     `koanf:"db"`
	JWT    JWTConfig    `koanf:"jwt"`
	SMTP   SMTPConfig   `koanf:"smtp"`
	Sweep  SweepConfig  `koanf:"sweep"`
	Log    LogConfig    `koanf:"log"`
}

// ServerConfig configures the HTTP API and observability listeners.
type ServerConfig struct {
	Addr string `koanf:"addr"`

	// MetricsAddr is the observability listener. Empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`

	// ResetBaseURL is the application base URL placed in reset links.
	ResetBaseURL string `koanf:"reset_base_url"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DBConfig configures the PostgreSQL connection.
type DBConfig struct {
	URL string `koanf:"url"`
}

// JWTConfig configures token signing and lifetimes.
type JWTConfig struct {
	// Secret is a base64url-encoded HMAC key of at least 32 bytes.
	Secret   string `koanf:"secret"`
	Issuer   string `koanf:"issuer"`
	Audience string `koanf:"audience"`

	AccessTokenExpiry  time.Duration `koanf:"access_token_expiry"`
	RefreshTokenExpiry time.Duration `koanf:"refresh_token_expiry"`
	ResetTokenExpiry   time.Duration `koanf:"reset_token_expiry"`

	// RotationBuffer is how close to expiry a refresh token must be before
	// a refresh call rotates it.
	RotationBuffer time.Duration `koanf:"rotation_buffer"`
}

// SMTPConfig configures reset mail delivery.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	AppName  string `koanf:"app_name"`
}

// SweepConfig configures the dead-token sweeper.
type SweepConfig struct {
	Interval time.Duration `koanf:"interval"`
	Timeout  time.Duration `koanf:"timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "text".
	Format string `koanf:"format"`
}

// Default returns the baseline configuration before file and flag overlays.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MetricsAddr:     ":9090",
			ResetBaseURL:    "http://localhost:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		JWT: JWTConfig{
			Issuer:             "authcore",
			Audience:           "authcore-clients",
			AccessTokenExpiry:  10 * time.Minute,
			RefreshTokenExpiry: 24 * time.Hour,
			ResetTokenExpiry:   15 * time.Minute,
			RotationBuffer:     10 * time.Minute,
		},
		SMTP: SMTPConfig{
			Port:    587,
			AppName: "Authcore",
		},
		Sweep: SweepConfig{
			Interval: time.Hour,
			Timeout:  30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigDir(), "config.yaml")
}

// Load builds the configuration from defaults, the YAML file at path (if it
// exists), and any flags changed on the given flag set. An explicit path
// that does not exist is an error; the default path is allowed to be absent.
// Callers that need the full service configuration should also call
// Validate; commands that only touch the database do not.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	} else if explicit {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").
			With("path", path).
			Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "merge flags").
				Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "unmarshal").
			Wrap(err)
	}

	return cfg, nil
}

// Validate checks configuration invariants that would otherwise only fail at
// first use.
func (c *Config) Validate() error {
	if c.DB.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("db.url is required")
	}
	if c.JWT.Secret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("jwt.secret is required")
	}
	if c.JWT.AccessTokenExpiry <= 0 || c.JWT.RefreshTokenExpiry <= 0 || c.JWT.ResetTokenExpiry <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("token lifetimes must be positive")
	}
	if c.JWT.RotationBuffer <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("jwt.rotation_buffer must be positive")
	}
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return oops.Code("CONFIG_INVALID").
			With("level", c.Log.Level).
			Errorf("log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("format", c.Log.Format).
			Errorf("log.format must be json or text")
	}
	return nil
}

// TokenConfig converts the JWT section into the token codec configuration.
func (c *Config) TokenConfig() token.Config {
	return token.Config{
		Secret:     c.JWT.Secret,
		Issuer:     c.JWT.Issuer,
		Audience:   c.JWT.Audience,
		AccessTTL:  c.JWT.AccessTokenExpiry,
		RefreshTTL: c.JWT.RefreshTokenExpiry,
		ResetTTL:   c.JWT.ResetTokenExpiry,
	}
}

// MailConfig converts the SMTP section into the mail sender configuration.
func (c *Config) MailConfig() mail.Config {
	return mail.Config{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		AppName:  c.SMTP.AppName,
	}
}
