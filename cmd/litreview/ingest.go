// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/pipeline"
	"github.com/pdiddy/litreview/internal/registry"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE|DIR...",
	Short: "Screen PDFs for relevance and analyze the accepted ones",
	Long: `Ingest reads each PDF, scores its first pages against the research
profile, and asks whether to keep it. Accepted papers are analyzed in the
background: the full text is turned into a structured record, bibliographic
fields are checked against CrossRef, and the result is committed to the
collection. A paper whose DOI is already in the collection is flagged as a
duplicate.

Papers left analyzing by an earlier ingest that exited early are marked
as failed ("analysis interrupted") before new files are read. Run one
ingest at a time against a collection.

Directories are expanded to the *.pdf files they contain. With --auto the
relevance gate (score >= 40, or --min-score) decides without prompting.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("auto", false, "decide without prompting using the relevance gate")
	ingestCmd.Flags().Bool("force", false, "accept every paper, including low scores and known filenames")
	ingestCmd.Flags().Int("min-score", 0, "minimum relevance score for --auto (default: the gate, 40)")
	ingestCmd.Flags().Bool("allow-duplicate-files", false, "with --auto, resubmit filenames already in the collection")
	ingestCmd.Flags().Int("concurrency", 0, "papers processed at once (default from config, 4)")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		cfg.Concurrency = n
	}

	paths, err := expandPDFs(args)
	if err != nil {
		return err
	}
	var uploads []pipeline.Upload
	for _, p := range paths {
		up, err := pipeline.ReadUpload(p)
		if err != nil {
			return err
		}
		uploads = append(uploads, up)
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
	n, err := coll.FailInterrupted(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "marked %d unfinished paper(s) from an earlier run as failed\n", n)
	}

	p := pipeline.New(cfg, provider, registry.New(cfg.Registry), coll, zap.L())

	var decider pipeline.Decider
	auto, _ := cmd.Flags().GetBool("auto")
	force, _ := cmd.Flags().GetBool("force")
	if auto || force {
		minScore, _ := cmd.Flags().GetInt("min-score")
		allowDup, _ := cmd.Flags().GetBool("allow-duplicate-files")
		decider = pipeline.AutoDecider{MinScore: minScore, Force: force, AllowDuplicateFiles: allowDup}
	} else {
		// Interactive prompts are asked one at a time.
		p.Concurrency = 1
		decider = &pipeline.PromptDecider{In: os.Stdin, Out: cmd.ErrOrStderr()}
	}

	summary := p.Run(ctx, uploads, decider, cmd.OutOrStdout())
	if summary.HasFailures() {
		return fmt.Errorf("%d paper(s) failed", summary.Failed)
	}
	return nil
}

// expandPDFs replaces each directory argument with the PDFs inside it.
func expandPDFs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				out = append(out, filepath.Join(arg, e.Name()))
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no PDF files found")
	}
	return out, nil
}
