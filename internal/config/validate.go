package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLookup(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if _, err := c.MatcherConfig(); err != nil {
		return fmt.Errorf("matcher: %w", err)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver (or set SHELFSCAN_DB_DSN)")
		}
	default:
		return fmt.Errorf("storage.driver: unsupported value %q", c.Storage.Driver)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.RequireAuth && c.Server.JWTSecret == "" {
		return errors.New("server.jwt_secret is required when server.require_auth is set (or set SHELFSCAN_JWT_SECRET)")
	}
	return nil
}

func (c *Config) validateLookup() error {
	if c.Lookup.ServerURL != "" {
		u, err := url.Parse(c.Lookup.ServerURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("lookup.server_url: %q is not an http(s) URL", c.Lookup.ServerURL)
		}
	}
	if c.Lookup.RequestsPerSecond < 0 {
		return errors.New("lookup.requests_per_second must not be negative")
	}
	if c.Fetch.RequestsPerSecond < 0 {
		return errors.New("fetch.requests_per_second must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
