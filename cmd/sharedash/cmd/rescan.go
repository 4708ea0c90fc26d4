package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRescanCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "rescan",
		Short: "Reconcile the metadata store with the shared directory",
		Long: `Walk the shared root, diff what is on disk against the stored
metadata, and apply the resulting creates, updates and deletes as one
atomic batch. The analytics snapshot is refreshed before the command
returns.

Only one rescan runs at a time; a second invocation fails fast.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRescan(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runRescan(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.engine.Reconcile(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Rescan complete in %s\n", result.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  created:   %d\n", result.Created)
	fmt.Fprintf(w, "  updated:   %d\n", result.Updated)
	fmt.Fprintf(w, "  deleted:   %d\n", result.Deleted)
	fmt.Fprintf(w, "  unchanged: %d\n", result.Unchanged)

	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "\n%d path(s) skipped:\n", len(result.Warnings))
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  %s: %s\n", warn.Path, warn.Reason)
		}
	}
	return nil
}
