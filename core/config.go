package core

import (
	"fmt"
	"strings"
)

type ServerConfig struct {
	Address         string `koanf:"address" mapstructure:"address"`
	SignatureHeader string `koanf:"signature_header" mapstructure:"signature_header"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
}

type Config struct {
	ServiceName   string         `koanf:"service_name" mapstructure:"service_name"`
	WebhookSecret string         `koanf:"webhook_secret" mapstructure:"webhook_secret"`
	Server        ServerConfig   `koanf:"server" mapstructure:"server"`
	Database      DatabaseConfig `koanf:"database" mapstructure:"database"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "inbox",
		Server: ServerConfig{
			Address:         ":8080",
			SignatureHeader: "X-Signature",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "file:inbox.db?_foreign_keys=on",
		},
	}
}

// ValidateBase checks the fields every configuration layer must carry.
// The webhook secret is only enforced on the fully resolved config, so a
// layer that omits it can still merge with one that provides it.
func (c Config) ValidateBase() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	return nil
}

// Validate enforces the startup contract: a missing webhook secret is a
// configuration failure at process start, never a per-request condition.
func (c Config) Validate() error {
	if err := c.ValidateBase(); err != nil {
		return err
	}
	if strings.TrimSpace(c.WebhookSecret) == "" {
		return fmt.Errorf("core: webhook_secret is required")
	}
	if strings.TrimSpace(c.Server.SignatureHeader) == "" {
		return fmt.Errorf("core: server.signature_header is required")
	}
	return nil
}

// SecretConfigured reports whether a non-empty webhook secret is present.
// The readiness endpoint composes this with storage reachability.
func (c Config) SecretConfigured() bool {
	return strings.TrimSpace(c.WebhookSecret) != ""
}
