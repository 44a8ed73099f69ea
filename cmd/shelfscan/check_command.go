package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justyntemme/shelfscan/internal/identifier"
	"github.com/justyntemme/shelfscan/internal/models"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var local bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check <id>...",
		Short: "Check ISBNs or ASINs against the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}

			ids := make([]string, 0, len(args))
			var invalid []string
			for _, arg := range args {
				id, ok := identifier.Normalize(arg)
				if !ok {
					invalid = append(invalid, arg)
					continue
				}
				ids = append(ids, id)
			}
			if len(invalid) > 0 {
				return fmt.Errorf("not an ISBN or ASIN: %s", strings.Join(invalid, ", "))
			}

			checker, closeChecker, err := ctx.checker(cmd.Context(), local)
			if err != nil {
				return err
			}
			defer closeChecker()

			results, err := checker.BatchCheck(cmd.Context(), ids)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, results)
			}
			printResults(cmd, results)
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Check against the local catalog instead of the lookup server")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func printResults(cmd *cobra.Command, results []models.LookupResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		secondary := r.SecondaryDescription()
		if r.ASINKnownToSecondary != nil {
			secondary = "asin " + yesNo(*r.ASINKnownToSecondary)
		}
		rows = append(rows, []string{r.ID, yesNo(r.Known), r.MatchedID, secondary})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(out, []string{"ID", "Known", "Matched", "Secondary"}, rows, nil))
}
