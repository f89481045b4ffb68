package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"xmlwatch/internal/ledger"
)

const historyTimeLayout = "2006-01-02 15:04:05"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently handled files",
		Long: "Print the most recent outcomes from the ledger, newest first. Output is a table\n" +
			"on a terminal and tab-separated otherwise unless --format is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			mode, err := resolveHistoryFormat(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			store, err := ledger.Open(cmd.Context(), cfg.LedgerPath())
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			counts, err := store.Counts(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No files handled yet")
				return nil
			}
			writeHistory(out, mode, entries)
			fmt.Fprintln(out, formatCounts(counts))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().StringVar(&format, "format", "auto", "Output format: auto, table, or tsv")
	return cmd
}

func resolveHistoryFormat(format string, out io.Writer) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "auto":
		if isTerminal(out) {
			return "table", nil
		}
		return "tsv", nil
	case "table":
		return "table", nil
	case "tsv":
		return "tsv", nil
	default:
		return "", fmt.Errorf("unsupported --format %q (want auto, table, or tsv)", format)
	}
}

var historyHeaders = []string{"ID", "Finished", "Status", "Kind", "Parts", "Duration", "Path", "Error"}

func writeHistory(out io.Writer, mode string, entries []ledger.Entry) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		parts := ""
		if e.Kind == "envelope" {
			parts = fmt.Sprintf("%d/%d", e.Published, e.Parts)
		}
		errText := e.Error
		if e.ErrorKind != "" && errText != "" {
			errText = e.ErrorKind + ": " + errText
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			formatFinished(e.FinishedAt),
			e.Status,
			e.Kind,
			parts,
			e.Duration().Round(time.Millisecond).String(),
			e.Path,
			errText,
		})
	}

	if mode == "table" {
		aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
		fmt.Fprintln(out, renderTable(historyHeaders, rows, aligns))
		return
	}
	fmt.Fprintln(out, strings.Join(historyHeaders, "\t"))
	for _, row := range rows {
		fmt.Fprintln(out, strings.Join(row, "\t"))
	}
}

func formatFinished(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(historyTimeLayout)
}

func formatCounts(counts map[string]int) string {
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, fmt.Sprintf("%s=%d", status, counts[status]))
	}
	return "Totals: " + strings.Join(parts, " ")
}
