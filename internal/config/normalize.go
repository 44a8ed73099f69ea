package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// applyEnv lets SHELFSCAN_* variables override file values.
func (c *Config) applyEnv() {
	overrides := []struct {
		name   string
		target *string
	}{
		{"SHELFSCAN_ADDR", &c.Server.Addr},
		{"SHELFSCAN_JWT_SECRET", &c.Server.JWTSecret},
		{"SHELFSCAN_DB_PATH", &c.Storage.Path},
		{"SHELFSCAN_DB_DSN", &c.Storage.DSN},
		{"SHELFSCAN_SERVER_URL", &c.Lookup.ServerURL},
		{"SHELFSCAN_TOKEN", &c.Lookup.Token},
		{"SHELFSCAN_LOG_LEVEL", &c.Logging.Level},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.name); ok && value != "" {
			*o.target = value
		}
	}
	if c.Storage.DSN != "" && os.Getenv("SHELFSCAN_DB_DSN") != "" {
		c.Storage.Driver = "postgres"
	}
}

func (c *Config) normalize() error {
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeLookup()
	c.normalizeLabels()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.TokenTTLHours <= 0 {
		c.Server.TokenTTLHours = defaultTokenTTLHours
	}
	if c.Server.MaxBatchSize <= 0 {
		c.Server.MaxBatchSize = defaultMaxBatchSize
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaultDriver
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = defaultDBPath
	}

	var err error
	if c.Storage.Path, err = expandPath(c.Storage.Path); err != nil {
		return fmt.Errorf("storage.path: %w", err)
	}
	if strings.TrimSpace(c.Storage.LockPath) == "" {
		c.Storage.LockPath = c.Storage.Path + ".lock"
	}
	if c.Storage.LockPath, err = expandPath(c.Storage.LockPath); err != nil {
		return fmt.Errorf("storage.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLookup() {
	c.Lookup.ServerURL = strings.TrimRight(strings.TrimSpace(c.Lookup.ServerURL), "/")
	if c.Lookup.TimeoutSeconds <= 0 {
		c.Lookup.TimeoutSeconds = defaultLookupTimeout
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeout
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = defaultFetchMaxBytes
	}
	if strings.TrimSpace(c.Fetch.UserAgent) == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeLabels() {
	c.Labels.Primary = strings.TrimSpace(c.Labels.Primary)
	if c.Labels.Primary == "" {
		c.Labels.Primary = defaultPrimaryLabel
	}
	c.Labels.Secondary = strings.TrimSpace(c.Labels.Secondary)
	if c.Labels.Secondary == "" {
		c.Labels.Secondary = defaultSecondaryLabel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path), nil
}
