// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/export"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/taxonomy"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Generate a Markdown taxonomy of the collection",
	Long: `Taxonomy sends a digest of every complete record to the model and
prints a Markdown narrative that groups the papers under the research
profile's sections, compares their design dimensions, and lists gaps
against the citation goals. Papers are cited by the same keys the CSL and
Markdown exports use.`,
	RunE: runTaxonomy,
}

func init() {
	taxonomyCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(taxonomyCmd)
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	provider, err := llm.NewProvider(cfg.AI, secretSource())
	if err != nil {
		return err
	}
	coll, err := openCollection(ctx, cfg.Collection)
	if err != nil {
		return err
	}
	defer coll.Close()

	records := coll.Records()
	text, err := taxonomy.Generate(ctx, provider, cfg.Profile, records, export.CitationKeys(records))
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	return writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, text)
		return err
	}, func() {
		fmt.Fprintf(os.Stderr, "wrote taxonomy of %d paper(s) to %s\n", len(records), output)
	})
}
