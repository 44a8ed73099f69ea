package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/justyntemme/shelfscan/internal/identifier"
)

// Server contains the lookup server's bind address and auth settings.
type Server struct {
	Addr          string `toml:"addr"`
	RequireAuth   bool   `toml:"require_auth"`
	JWTSecret     string `toml:"jwt_secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
	MaxBatchSize  int    `toml:"max_batch_size"`
}

// Storage selects the database holding the catalog.
type Storage struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path"`
	DSN      string `toml:"dsn"`
	LockPath string `toml:"lock_path"`
}

// Lookup configures both sides of a batch check: the client used by scans
// and the catalog answering on the server.
type Lookup struct {
	ServerURL          string            `toml:"server_url"`
	TimeoutSeconds     int               `toml:"timeout_seconds"`
	RequestsPerSecond  float64           `toml:"requests_per_second"`
	Token              string            `toml:"token"`
	ExtraHeaders       map[string]string `toml:"extra_headers"`
	CheckBothISBNForms bool              `toml:"check_both_isbn_forms"`
	SecondaryChecks    bool              `toml:"secondary_checks"`
}

// Matcher configures URL identifier extraction.
type Matcher struct {
	IgnorePatterns []string              `toml:"ignore_patterns"`
	SiteRules      []identifier.SiteRule `toml:"site_rules"`
}

// Labels names the two reference sources in annotation labels.
type Labels struct {
	Primary   string `toml:"primary"`
	Secondary string `toml:"secondary"`
}

// Fetch configures page downloads for command-line scans.
type Fetch struct {
	UserAgent         string  `toml:"user_agent"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	MaxBytes          int64   `toml:"max_bytes"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for shelfscan.
//
// Configuration sections by subsystem:
//   - Server: lookup server bind address and bearer-token auth
//   - Storage: catalog database driver and location
//   - Lookup: batch-check client and catalog behaviour
//   - Matcher: ignore list and extra site rules for URL matching
//   - Labels: source names used in annotation labels
//   - Fetch: page download settings for the scan command
//   - Logging: log format and level
type Config struct {
	Server  Server  `toml:"server"`
	Storage Storage `toml:"storage"`
	Lookup  Lookup  `toml:"lookup"`
	Matcher Matcher `toml:"matcher"`
	Labels  Labels  `toml:"labels"`
	Fetch   Fetch   `toml:"fetch"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shelfscan/config.toml")
}

// Load locates, parses, and validates a configuration file. Values from
// .env files and SHELFSCAN_* environment variables override the file. A
// missing file is not an error; defaults are used instead.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs(defaultFileName)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return projectPath, false, nil
	}
	if info, err := os.Stat(userPath); err == nil && !info.IsDir() {
		return userPath, true, nil
	}
	return projectPath, false, nil
}

// MatcherConfig builds the URL matcher configuration: the ignore list plus
// the built-in heuristics, with any site rules tried after the built-in
// fallbacks.
func (c *Config) MatcherConfig() (identifier.Config, error) {
	ignore, err := identifier.CompileIgnoreList(c.Matcher.IgnorePatterns)
	if err != nil {
		return identifier.Config{}, err
	}

	fallbacks := identifier.DefaultFallbacks()
	for _, rule := range c.Matcher.SiteRules {
		h, err := rule.Compile()
		if err != nil {
			return identifier.Config{}, err
		}
		fallbacks = append(fallbacks, h)
	}

	return identifier.Config{
		Ignore:    ignore,
		Segments:  identifier.DefaultSegmentHeuristics(),
		Fallbacks: fallbacks,
	}, nil
}

// EnsureDirectories creates the directories holding the SQLite database and
// the import lock file.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Storage.LockPath)}
	if c.Storage.Driver == "sqlite" {
		dirs = append(dirs, filepath.Dir(c.Storage.Path))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}
