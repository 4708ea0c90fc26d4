package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharedash/sharedash/internal/metadata"
)

func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Read and write editable file content",
		Long: `Read or replace the content of a tracked file. Only files on the
editable extension allowlist and under the configured size cap can be
touched.`,
	}

	cmd.AddCommand(newContentReadCmd())
	cmd.AddCommand(newContentWriteCmd())
	return cmd
}

func newContentReadCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "read <path>",
		Short: "Print the content of an editable file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContentRead(cmd.Context(), cmd, args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false,
		"Output content with metadata as JSON (includes the mtime to pass back on write)")
	return cmd
}

func runContentRead(ctx context.Context, cmd *cobra.Command, path string, jsonOutput bool) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	rec, err := app.store.GetByPath(ctx, path)
	if err != nil {
		return err
	}

	fc, err := app.accessor.Read(ctx, rec.ID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"id":          fc.Record.ID,
			"path":        fc.Record.RelativePath,
			"size_bytes":  fc.SizeBytes,
			"modified_at": fc.ModifiedAt.Format(time.RFC3339Nano),
			"content":     fc.Content,
		})
	}

	_, err = io.WriteString(cmd.OutOrStdout(), fc.Content)
	return err
}

func newContentWriteCmd() *cobra.Command {
	var fromFile string
	var expectedMTime string
	var userID string

	cmd := &cobra.Command{
		Use:   "write <path>",
		Short: "Replace the content of an editable file",
		Long: `Replace the content of a tracked file with data read from --file or
stdin. The write is rejected when the file changed on disk since the
mtime given by --expected-mtime (default: the mtime currently stored
for the record), so concurrent external edits are never clobbered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContentWrite(cmd.Context(), cmd, args[0], fromFile, expectedMTime, userID)
		},
	}

	cmd.Flags().StringVar(&fromFile, "file", "", "Read new content from this file instead of stdin")
	cmd.Flags().StringVar(&expectedMTime, "expected-mtime", "",
		"RFC3339 mtime observed at read time; the write fails if disk moved past it")
	cmd.Flags().StringVar(&userID, "user", "cli", "User recorded as the editor")
	return cmd
}

func runContentWrite(ctx context.Context, cmd *cobra.Command, path, fromFile, expectedMTime, userID string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	rec, err := app.store.GetByPath(ctx, path)
	if err != nil {
		return err
	}

	var data []byte
	if fromFile != "" {
		data, err = os.ReadFile(fromFile)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return err
	}

	expected := rec.ModifiedAt
	if expectedMTime != "" {
		expected, err = time.Parse(time.RFC3339Nano, expectedMTime)
		if err != nil {
			return fmt.Errorf("invalid --expected-mtime %q: %w", expectedMTime, err)
		}
	}

	actor := metadata.UserActor(userID)
	if err := app.accessor.Write(ctx, rec.ID, string(data), expected, actor); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(data), rec.RelativePath)
	return nil
}
