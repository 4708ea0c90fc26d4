package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newAccessCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "access <path>",
		Short: "Record an access event for a tracked file",
		Long: `Increment the access counter of the file at the given path relative
to the shared root. Counters feed the hot-files list; the snapshot
refresh is coalesced in the background rather than written per event.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccess(cmd.Context(), cmd, args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runAccess(ctx context.Context, cmd *cobra.Command, path string, jsonOutput bool) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	rec, err := app.store.GetByPath(ctx, path)
	if err != nil {
		return err
	}

	count, err := app.store.IncrementAccess(ctx, rec.ID)
	if err != nil {
		return err
	}
	app.recomputer.Notify()

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"id":           rec.ID,
			"path":         rec.RelativePath,
			"access_count": count,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d accesses\n", rec.RelativePath, count)
	return nil
}
