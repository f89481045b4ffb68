package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"xmlwatch/internal/daemon"
	"xmlwatch/internal/ingest"
	"xmlwatch/internal/ledger"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var noLedger bool

	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Handle files once without watching",
		Long: "Run the given files through the same dispatch the watcher uses. Refuses to run\n" +
			"while a watcher holds the instance lock.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lock, err := daemon.AcquireLock(cfg.LockPath())
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			logger, err := newRunLogger(cfg, "stderr")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			var recorder ingest.Recorder
			if !noLedger {
				store, err := ledger.Open(cmd.Context(), cfg.LedgerPath())
				if err != nil {
					return err
				}
				defer store.Close()
				recorder = store
			}

			handler := ingest.NewHandler(cfg, recorder, logger)
			out := cmd.OutOrStdout()
			failed := 0
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				outcome := handler.Handle(cmd.Context(), path)
				printOutcome(out, outcome)
				if outcome.Status == ingest.StatusFailed {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "Do not record outcomes in the ledger")
	return cmd
}

func printOutcome(out io.Writer, o ingest.Outcome) {
	var detail []string
	if o.Kind == ingest.KindEnvelope && o.Status == ingest.StatusCompleted {
		detail = append(detail, fmt.Sprintf("%d parts", o.Parts))
	}
	for _, dest := range o.Published {
		detail = append(detail, "-> "+dest)
	}
	if o.Reason != "" && o.Status != ingest.StatusCompleted {
		detail = append(detail, o.Reason)
	}
	if o.Err != nil {
		detail = append(detail, o.Err.Error())
	}
	line := fmt.Sprintf("%-9s %s", o.Status, o.Path)
	if len(detail) > 0 {
		line += "  (" + strings.Join(detail, "; ") + ")"
	}
	fmt.Fprintln(out, line)
}
