package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a lookup client",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			if subject == "" {
				return errors.New("--subject is required")
			}

			issuer, err := ctx.issuer()
			if err != nil {
				return fmt.Errorf("%w (set server.jwt_secret or SHELFSCAN_JWT_SECRET)", err)
			}

			var token string
			if ttl > 0 {
				token, err = issuer.GenerateTokenWithTTL(subject, ttl)
			} else {
				token, err = issuer.GenerateToken(subject)
			}
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Client name recorded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to server.token_ttl_hours)")
	return cmd
}
