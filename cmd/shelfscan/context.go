package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/justyntemme/shelfscan/internal/auth"
	"github.com/justyntemme/shelfscan/internal/config"
	"github.com/justyntemme/shelfscan/internal/identifier"
	"github.com/justyntemme/shelfscan/internal/logging"
	"github.com/justyntemme/shelfscan/internal/lookup"
	"github.com/justyntemme/shelfscan/internal/scanner"
	"github.com/justyntemme/shelfscan/internal/storage"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}

		level := cfg.Logging.Level
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			level = *c.logLevelFlag
		}
		logger, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format})
		if err != nil {
			c.configErr = err
			return
		}
		slog.SetDefault(logger)

		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore(ctx context.Context) (storage.Store, error) {
	cfg := c.config
	store, err := storage.Open(ctx, storage.Options{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		DSN:    cfg.Storage.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	return store, nil
}

func (c *commandContext) catalogOptions() lookup.CatalogOptions {
	return lookup.CatalogOptions{
		CheckBothISBNForms: c.config.Lookup.CheckBothISBNForms,
		SecondaryChecks:    c.config.Lookup.SecondaryChecks,
		Logger:             c.logger,
	}
}

// checker returns the batch checker a command should use: the configured
// lookup server, or with local set, a catalog loaded straight from storage.
// The returned close function releases whatever was opened.
func (c *commandContext) checker(ctx context.Context, local bool) (scanner.BatchChecker, func(), error) {
	if !local {
		return c.client(), func() {}, nil
	}

	store, err := c.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := lookup.LoadCatalog(ctx, store, c.catalogOptions())
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	return catalog, func() { store.Close() }, nil
}

func (c *commandContext) client() *lookup.Client {
	cfg := c.config
	return lookup.NewClient(lookup.ClientOptions{
		ServerURL:         cfg.Lookup.ServerURL,
		Token:             cfg.Lookup.Token,
		ExtraHeaders:      cfg.Lookup.ExtraHeaders,
		Timeout:           time.Duration(cfg.Lookup.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.Lookup.RequestsPerSecond,
	})
}

func (c *commandContext) indexer() (*scanner.Indexer, error) {
	matcherCfg, err := c.config.MatcherConfig()
	if err != nil {
		return nil, err
	}
	return scanner.NewIndexer(identifier.NewMatcher(matcherCfg, c.logger), c.logger), nil
}

func (c *commandContext) labels() scanner.Labels {
	return scanner.Labels{
		Primary:   c.config.Labels.Primary,
		Secondary: c.config.Labels.Secondary,
	}
}

func (c *commandContext) issuer() (*auth.Issuer, error) {
	cfg := c.config
	return auth.NewIssuer(cfg.Server.JWTSecret, time.Duration(cfg.Server.TokenTTLHours)*time.Hour)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
