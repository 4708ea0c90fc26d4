package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharedash/sharedash/internal/metadata"
)

func newListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tracked files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// listEntry is the JSON output shape for one record.
type listEntry struct {
	ID           string    `json:"id"`
	RelativePath string    `json:"relative_path"`
	FileType     string    `json:"file_type"`
	SizeBytes    int64     `json:"size_bytes"`
	ModifiedAt   time.Time `json:"modified_at"`
	ModifiedBy   string    `json:"modified_by"`
	AccessCount  int64     `json:"access_count"`
	Team         string    `json:"team,omitempty"`
}

func runList(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := app.store.List(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		entries := make([]listEntry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, listEntry{
				ID:           rec.ID,
				RelativePath: rec.RelativePath,
				FileType:     rec.FileType,
				SizeBytes:    rec.SizeBytes,
				ModifiedAt:   rec.ModifiedAt,
				ModifiedBy:   rec.ModifiedBy.String(),
				AccessCount:  rec.AccessCount,
				Team:         rec.Team,
			})
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tracked files. Run 'sharedash rescan' first.")
		return nil
	}

	printRecordTable(cmd, records)
	return nil
}

func printRecordTable(cmd *cobra.Command, records []*metadata.FileRecord) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tTYPE\tSIZE\tACCESSES\tMODIFIED\tBY")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			rec.RelativePath,
			rec.FileType,
			rec.HumanSize(),
			rec.AccessCount,
			rec.ModifiedAt.Format("2006-01-02 15:04"),
			rec.ModifiedBy.String())
	}
	_ = tw.Flush()
}
