// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sieve/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export accepted assertions as RDF",
	Long: `Export writes every ACCEPTED assertion to a timestamped file
(export_YYYYMMDD_HHMMSS.<ttl|nt|jsonld>) under export.dir. With provenance
on, each assertion becomes an owl:Axiom annotated with the deciding
curator's ORCID and the curation record id.

Use --stdout to stream the graph instead of writing a file.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	dir, _ := cmd.Flags().GetString("dir")
	toStdout, _ := cmd.Flags().GetBool("stdout")
	showMetrics, _ := cmd.Flags().GetBool("metrics")

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if formatFlag == "" {
		formatFlag = string(e.cfg.Export.Format)
	}
	format, err := export.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	provenance := e.cfg.Export.Provenance
	if cmd.Flags().Changed("provenance") {
		provenance, _ = cmd.Flags().GetBool("provenance")
	}
	if dir == "" {
		dir = e.cfg.Export.Dir
	}

	ex := export.New(e.store, e.cfg.Export, export.WithLogger(e.log), export.WithMetrics(e.metrics))
	ctx := context.Background()

	var res export.Result
	if toStdout {
		res, err = ex.Render(ctx, os.Stdout, format, provenance)
	} else {
		res, err = ex.Export(ctx, dir, format, provenance)
	}
	if err != nil {
		return err
	}

	if !toStdout {
		fmt.Printf("exported %d accepted assertion(s), %d triples to %s\n", res.Records, res.Triples, res.Path)
	}
	if showMetrics {
		text, err := e.metrics.Text()
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stderr, text)
	}
	return nil
}

func init() {
	exportCmd.Flags().String("format", "", "output format: turtle, ntriples, jsonld (default from export.format)")
	exportCmd.Flags().String("dir", "", "output directory (default from export.dir)")
	exportCmd.Flags().Bool("provenance", true, "wrap each assertion in an annotated owl:Axiom")
	exportCmd.Flags().Bool("stdout", false, "write the graph to stdout instead of a file")
	exportCmd.Flags().Bool("metrics", false, "print export counters to stderr")

	rootCmd.AddCommand(exportCmd)
}
