package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/justyntemme/shelfscan/internal/api"
	"github.com/justyntemme/shelfscan/internal/auth"
	"github.com/justyntemme/shelfscan/internal/lookup"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lookup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			addr := cfg.Server.Addr
			if addrFlag != "" {
				addr = addrFlag
			}
			return runServer(cmd.Context(), ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "Bind address (overrides server.addr)")
	return cmd
}

func runServer(cmdCtx context.Context, ctx *commandContext, addr string) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := ctx.config
	logger := ctx.logger

	store, err := ctx.openStore(signalCtx)
	if err != nil {
		return err
	}
	defer store.Close()

	catalog, err := lookup.LoadCatalog(signalCtx, store, ctx.catalogOptions())
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	stats := catalog.Stats()
	logger.Info("catalog loaded",
		slog.Int("known", stats.Known),
		slog.Int("secondary_isbns", stats.SecondaryISBNs),
		slog.Int("secondary_asins", stats.SecondaryASINs))

	var issuer *auth.Issuer
	if cfg.Server.JWTSecret != "" {
		if issuer, err = ctx.issuer(); err != nil {
			return err
		}
	} else {
		logger.Warn("server.jwt_secret not set; admin routes disabled")
	}

	matcherCfg, err := cfg.MatcherConfig()
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(catalog, api.Options{
		Matcher:      matcherCfg,
		Labels:       ctx.labels(),
		MaxBatchSize: cfg.Server.MaxBatchSize,
		MaxPageBytes: cfg.Fetch.MaxBytes,
		Imports:      store,
		Logger:       logger,
	})
	router := api.NewRouter(handler, api.RouterOptions{
		Issuer:      issuer,
		RequireAuth: cfg.Server.RequireAuth,
		Logger:      logger,
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	logger.Info("lookup server listening",
		slog.String("address", listener.Addr().String()),
		slog.Bool("require_auth", cfg.Server.RequireAuth))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-signalCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}
