// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sieve/internal/ingest"
	"github.com/pdiddy/sieve/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir|-]",
	Short: "Load curation records from YAML or JSON documents",
	Long: `Ingest reads every *.yaml, *.yml and *.json document under the inbox
(default from ingest.inbox) and stores the records it finds. Records whose
id is already stored are skipped, so re-running ingest is safe. A failing
document is reported and the rest of the batch continues.

Pass "-" to read a single record from stdin; an existing id is an error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	in := ingest.New(e.store, e.cfg.Ingest, ingest.WithLogger(e.log), ingest.WithMetrics(e.metrics))
	ctx := context.Background()

	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		rec, err := in.IngestOne(ctx, data)
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("record already exists: %w", err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ingested %s (score %+.2f)\n", rec.ID, rec.EvidenceScore)
		return nil
	}

	dir := e.cfg.Ingest.Inbox
	if len(args) == 1 {
		dir = args[0]
	}
	summary, err := in.IngestDirectory(ctx, dir, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Errors > 0 {
		return fmt.Errorf("%d document(s) failed ingest", summary.Errors)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
