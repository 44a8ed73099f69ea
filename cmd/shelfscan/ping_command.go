package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/justyntemme/shelfscan/internal/scanner"
)

func newPingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test connectivity to the lookup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			client := ctx.client()
			status := scanner.StatusOK
			if err := client.Ping(cmd.Context()); err != nil {
				status = scanner.StatusDead
				ctx.logger.Warn("lookup server unreachable", slog.String("server", client.ServerURL()), slog.Any("error", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", client.ServerURL(), status)
			if status == scanner.StatusDead {
				return fmt.Errorf("lookup server %s is not responding", client.ServerURL())
			}
			return nil
		},
	}
}
