package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/justyntemme/shelfscan/internal/fetch"
	"github.com/justyntemme/shelfscan/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var baseURL string
	var local bool
	var annotatePath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan <url|file>",
		Short: "Scan a page for book links and check them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			fetcher := fetch.New(fetch.Config{
				UserAgent:         cfg.Fetch.UserAgent,
				Timeout:           time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
				MaxBytes:          cfg.Fetch.MaxBytes,
				RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
			}, ctx.logger)

			target := args[0]
			var fetched *fetch.Page
			if isHTTPURL(target) {
				fetched, err = fetcher.Fetch(cmd.Context(), target)
			} else {
				fetched, err = fetcher.ReadFile(target)
			}
			if err != nil {
				return fmt.Errorf("load page: %w", err)
			}
			pageURL := fetched.URL
			if baseURL != "" {
				pageURL = baseURL
			}

			page, err := scanner.NewPage(bytes.NewReader(fetched.Body), pageURL)
			if err != nil {
				return err
			}

			indexer, err := ctx.indexer()
			if err != nil {
				return err
			}
			checker, closeChecker, err := ctx.checker(cmd.Context(), local)
			if err != nil {
				return err
			}
			defer closeChecker()

			var status scanner.Status
			pipeline := scanner.NewPipeline(indexer, checker, scanner.Options{
				Labels: ctx.labels(),
				Logger: ctx.logger,
				Status: func(s scanner.Status, message string) {
					status = s
					ctx.logger.Debug("scan status", slog.String("status", string(s)), slog.String("message", message))
				},
			})

			report, err := pipeline.Run(cmd.Context(), page)
			if err != nil {
				return fmt.Errorf("scan %s: %w", target, err)
			}

			if annotatePath != "" {
				page.InjectStyles()
				if err := writeAnnotated(page, annotatePath); err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeJSON(cmd, scanOutput{Status: status, Report: report})
			}
			printReport(cmd, status, report)
			if annotatePath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Annotated page written to %s\n", annotatePath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "URL to resolve relative links against (defaults to the fetched URL)")
	cmd.Flags().BoolVar(&local, "local", false, "Check against the local catalog instead of the lookup server")
	cmd.Flags().StringVar(&annotatePath, "annotate", "", "Write the annotated page to this file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}

type scanOutput struct {
	Status scanner.Status `json:"status"`
	Report scanner.Report `json:"report"`
}

func printReport(cmd *cobra.Command, status scanner.Status, report scanner.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d links with IDs, %d unique IDs, out of %d links\n",
		report.Counts.Matched, report.Counts.Unique, report.Counts.Scanned)
	if status == scanner.StatusIrrelevant {
		fmt.Fprintln(out, "No book identifiers on this page")
		return
	}
	fmt.Fprintf(out, "Checked %d: %d known, %d unknown (%d known to secondary), %d links annotated\n",
		report.Checked, report.Known, report.Unknown, report.Secondary, report.Annotated)
	if len(report.Findings) == 0 {
		return
	}

	rows := make([][]string, 0, len(report.Findings))
	for _, f := range report.Findings {
		rows = append(rows, []string{f.ID, f.Class.String(), f.Label, strconv.Itoa(f.Links)})
	}
	fmt.Fprintln(out, renderTable(out, []string{"ID", "Class", "Label", "Links"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
	if len(report.Orphans) > 0 {
		fmt.Fprintf(out, "Ignored results for IDs not on the page: %s\n", strings.Join(report.Orphans, ", "))
	}
}

func writeAnnotated(page *scanner.Page, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := page.Render(file); err != nil {
		file.Close()
		return fmt.Errorf("render page: %w", err)
	}
	return file.Close()
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
