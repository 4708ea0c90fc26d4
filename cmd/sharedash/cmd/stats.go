package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharedash/sharedash/internal/analytics"
	derrors "github.com/sharedash/sharedash/internal/errors"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool
	var recompute bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the latest analytics snapshot",
		Long: `Display the latest analytics snapshot: file totals, file type
distribution, and the most frequently accessed files.

The snapshot is recomputed after every rescan and refreshed in the
background after access events; --recompute forces a fresh one now.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), cmd, jsonOutput, recompute)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&recompute, "recompute", false, "Recompute the snapshot before printing")
	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, jsonOutput, recompute bool) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if recompute {
		if err := app.recomputer.Sync(ctx); err != nil {
			return err
		}
	}

	snap, err := app.analytics.ReadLatest(ctx)
	if derrors.GetCode(err) == derrors.ErrCodeFileNotFound {
		// First run: nothing computed yet. Compute on demand.
		if err := app.recomputer.Sync(ctx); err != nil {
			return err
		}
		snap, err = app.analytics.ReadLatest(ctx)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	printStats(cmd, snap)
	return nil
}

func printStats(cmd *cobra.Command, snap *analytics.Snapshot) {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "Shared Directory Statistics")
	fmt.Fprintln(w, "===========================")
	fmt.Fprintf(w, "Computed:    %s\n", snap.ComputedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Total files: %d\n", snap.TotalFiles)
	fmt.Fprintf(w, "Total size:  %s\n", humanBytes(snap.TotalSizeBytes))
	fmt.Fprintln(w)

	if len(snap.FileTypeDistribution) > 0 {
		fmt.Fprintln(w, "File types:")
		for _, tc := range snap.FileTypeDistribution {
			fmt.Fprintf(w, "  %-10s %d\n", tc.FileType, tc.Count)
		}
		fmt.Fprintln(w)
	}

	if len(snap.HotFiles) > 0 {
		fmt.Fprintln(w, "Hot files:")
		for i, hf := range snap.HotFiles {
			fmt.Fprintf(w, "  %2d. %s (%d accesses, last modified by %s)\n",
				i+1, hf.RelativePath, hf.AccessCount, hf.ModifiedBy)
		}
	} else {
		fmt.Fprintln(w, "Hot files: (none yet)")
	}
}

// humanBytes formats a byte count for display.
func humanBytes(n int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case n < kib:
		return fmt.Sprintf("%d B", n)
	case n < mib:
		return fmt.Sprintf("%.2f KB", float64(n)/kib)
	case n < gib:
		return fmt.Sprintf("%.2f MB", float64(n)/mib)
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/gib)
	}
}
