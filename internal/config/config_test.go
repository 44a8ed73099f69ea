package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/shelfscan/internal/identifier"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SHELFSCAN_ADDR", "SHELFSCAN_JWT_SECRET", "SHELFSCAN_DB_PATH", "SHELFSCAN_DB_DSN",
		"SHELFSCAN_SERVER_URL", "SHELFSCAN_TOKEN", "SHELFSCAN_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shelfscan.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NotEmpty(t, path)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, cfg.Storage.Path+".lock", cfg.Storage.LockPath)
	assert.True(t, cfg.Lookup.CheckBothISBNForms)
	assert.True(t, cfg.Lookup.SecondaryChecks)
	assert.Equal(t, identifier.DefaultIgnorePatterns, cfg.Matcher.IgnorePatterns)
	assert.Equal(t, "primary source", cfg.Labels.Primary)
	assert.Equal(t, "auto", cfg.Logging.Format)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
addr = "127.0.0.1:9000"
require_auth = true
jwt_secret = "s3cret"

[lookup]
server_url = "https://lookup.example/"
secondary_checks = false
extra_headers = { "X-Api-Key" = "abc" }

[matcher]
ignore_patterns = ['www\.goodreads\.com', 'www\.librarything\.com']

[[matcher.site_rules]]
name = "bookshop"
host = 'bookshop\.example'
pattern = '/p/(\d{13})'

[labels]
primary = "the catalogue"

[logging]
level = "DEBUG"
format = "json"
`)

	cfg, _, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.Server.RequireAuth)
	assert.Equal(t, "https://lookup.example", cfg.Lookup.ServerURL)
	assert.False(t, cfg.Lookup.SecondaryChecks)
	assert.True(t, cfg.Lookup.CheckBothISBNForms)
	assert.Equal(t, map[string]string{"X-Api-Key": "abc"}, cfg.Lookup.ExtraHeaders)
	assert.Len(t, cfg.Matcher.IgnorePatterns, 2)
	require.Len(t, cfg.Matcher.SiteRules, 1)
	assert.Equal(t, "bookshop", cfg.Matcher.SiteRules[0].Name)
	assert.Equal(t, "the catalogue", cfg.Labels.Primary)
	assert.Equal(t, "secondary source", cfg.Labels.Secondary)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHELFSCAN_ADDR", ":7000")
	t.Setenv("SHELFSCAN_SERVER_URL", "http://remote.example:8080")
	t.Setenv("SHELFSCAN_DB_DSN", "postgres://u:p@localhost/shelfscan")

	path := writeConfig(t, "[server]\naddr = \":9000\"\n")
	cfg, _, _, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "http://remote.example:8080", cfg.Lookup.ServerURL)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }, "storage.driver"},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = "postgres" }, "storage.dsn"},
		{"auth without secret", func(c *Config) { c.Server.RequireAuth = true }, "server.jwt_secret"},
		{"bad server url", func(c *Config) { c.Lookup.ServerURL = "ftp://example.com" }, "lookup.server_url"},
		{"negative rate", func(c *Config) { c.Lookup.RequestsPerSecond = -1 }, "requests_per_second"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad ignore pattern", func(c *Config) { c.Matcher.IgnorePatterns = []string{"("} }, "matcher"},
		{"site rule without group", func(c *Config) {
			c.Matcher.SiteRules = []identifier.SiteRule{{Name: "x", Host: ".", Pattern: `\d+`}}
		}, "capture group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMatcherConfigAddsSiteRules(t *testing.T) {
	cfg := Default()
	cfg.Matcher.SiteRules = []identifier.SiteRule{{
		Name:    "bookshop",
		Host:    `bookshop\.example`,
		Pattern: `[?&]ean=(\d{13})`,
	}}

	mc, err := cfg.MatcherConfig()
	require.NoError(t, err)
	require.Len(t, mc.Fallbacks, 2)
	assert.Equal(t, "amazon-search", mc.Fallbacks[0].Name)
	assert.Equal(t, "site:bookshop", mc.Fallbacks[1].Name)

	m := identifier.NewMatcher(mc, nil)
	id, ok := m.Match("https://bookshop.example/item?ean=9780306406157")
	assert.True(t, ok)
	assert.Equal(t, "9780306406157", id)

	_, ok = m.Match("https://www.goodreads.com/book/show/0316098094")
	assert.False(t, ok)
}

func TestEnsureDirectories(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("SHELFSCAN_DB_PATH", filepath.Join(dir, "nested", "catalog.db"))

	cfg, _, _, err := Load(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDirectories())

	info, err := os.Stat(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
