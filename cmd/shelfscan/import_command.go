package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/justyntemme/shelfscan/internal/storage"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load catalog data into storage",
	}

	importCmd.AddCommand(newImportKnownCommand(ctx))
	importCmd.AddCommand(newImportSecondaryCommand(ctx))
	return importCmd
}

func newImportKnownCommand(ctx *commandContext) *cobra.Command {
	var source string
	var force bool

	cmd := &cobra.Command{
		Use:   "known <file>",
		Short: "Add identifiers the primary source already has (one per line)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withImporter(cmd, ctx, func(im *storage.Importer) ([]storage.ImportResult, error) {
				res, err := im.ImportKnown(cmd.Context(), args[0], source, force)
				return []storage.ImportResult{res}, err
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Source name recorded with the identifiers (defaults to the file path)")
	cmd.Flags().BoolVar(&force, "force", false, "Import even if the file has not changed since the last import")
	return cmd
}

func newImportSecondaryCommand(ctx *commandContext) *cobra.Command {
	var isbnPath string
	var asinPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "secondary",
		Short: "Replace the secondary-source tables from its ISBN and ASIN dumps",
		RunE: func(cmd *cobra.Command, args []string) error {
			if isbnPath == "" && asinPath == "" {
				return errors.New("at least one of --isbns or --asins is required")
			}
			return withImporter(cmd, ctx, func(im *storage.Importer) ([]storage.ImportResult, error) {
				return im.ImportSecondary(cmd.Context(), isbnPath, asinPath, force)
			})
		},
	}

	cmd.Flags().StringVar(&isbnPath, "isbns", "", "Secondary ISBN dump (pipe-separated)")
	cmd.Flags().StringVar(&asinPath, "asins", "", "Secondary ASIN dump (pipe-separated)")
	cmd.Flags().BoolVar(&force, "force", false, "Import even if the files have not changed since the last import")
	return cmd
}

func withImporter(cmd *cobra.Command, ctx *commandContext, run func(*storage.Importer) ([]storage.ImportResult, error)) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	store, err := ctx.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := run(storage.NewImporter(store, cfg.Storage.LockPath, ctx.logger))
	switch {
	case errors.Is(err, storage.ErrUnchanged):
		printImportResults(cmd, results)
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed since the last import (use --force to re-import)")
		return nil
	case errors.Is(err, storage.ErrLocked):
		return fmt.Errorf("%w: lock file %s", err, cfg.Storage.LockPath)
	case err != nil:
		return err
	}

	printImportResults(cmd, results)
	return nil
}

func printImportResults(cmd *cobra.Command, results []storage.ImportResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Kind,
			r.Path,
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Added),
			strconv.Itoa(r.Skipped),
			yesNo(r.Unchanged),
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(out,
		[]string{"Kind", "File", "Rows", "Added", "Skipped", "Unchanged"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}))
}
