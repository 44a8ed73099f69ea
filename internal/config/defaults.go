package config

import "github.com/justyntemme/shelfscan/internal/identifier"

const (
	defaultFileName          = "shelfscan.toml"
	defaultAddr              = ":8080"
	defaultDriver            = "sqlite"
	defaultDBPath            = "./data/shelfscan.db"
	defaultServerURL         = "http://localhost:8080"
	defaultTokenTTLHours     = 24 * 90
	defaultMaxBatchSize      = 10000
	defaultLookupTimeout     = 15
	defaultFetchTimeout      = 30
	defaultFetchMaxBytes     = 10 << 20
	defaultUserAgent         = "shelfscan/0.2 (+https://github.com/justyntemme/shelfscan)"
	defaultPrimaryLabel      = "primary source"
	defaultSecondaryLabel    = "secondary source"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultFetchRequestsRate = 1
)

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Server: Server{
			Addr:          defaultAddr,
			TokenTTLHours: defaultTokenTTLHours,
			MaxBatchSize:  defaultMaxBatchSize,
		},
		Storage: Storage{
			Driver: defaultDriver,
			Path:   defaultDBPath,
		},
		Lookup: Lookup{
			ServerURL:          defaultServerURL,
			TimeoutSeconds:     defaultLookupTimeout,
			CheckBothISBNForms: true,
			SecondaryChecks:    true,
		},
		Matcher: Matcher{
			IgnorePatterns: append([]string(nil), identifier.DefaultIgnorePatterns...),
		},
		Labels: Labels{
			Primary:   defaultPrimaryLabel,
			Secondary: defaultSecondaryLabel,
		},
		Fetch: Fetch{
			UserAgent:         defaultUserAgent,
			TimeoutSeconds:    defaultFetchTimeout,
			MaxBytes:          defaultFetchMaxBytes,
			RequestsPerSecond: defaultFetchRequestsRate,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
