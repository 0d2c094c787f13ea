// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/pkg/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the papers in the collection",
	RunE:  runList,
}

func init() {
	listCmd.Flags().String("status", "", "only show papers with this status (analyzing, complete, error)")
	listCmd.Flags().Bool("duplicates", false, "only show papers flagged as duplicates")
	listCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	coll, err := openCollection(context.Background(), types.CollectionConfig{DataDir: viper.GetString("data_dir")})
	if err != nil {
		return err
	}
	defer coll.Close()

	status, _ := cmd.Flags().GetString("status")
	if status != "" && !types.Status(status).Valid() {
		return fmt.Errorf("unknown status %q", status)
	}
	onlyDup, _ := cmd.Flags().GetBool("duplicates")

	var papers []types.AnalyzedPaper
	for _, p := range coll.Snapshot() {
		if status != "" && p.Status != types.Status(status) {
			continue
		}
		if onlyDup && !p.IsDuplicate {
			continue
		}
		papers = append(papers, p)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if papers == nil {
			papers = []types.AnalyzedPaper{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}
	return printPapers(cmd.OutOrStdout(), papers)
}

// printPapers renders one line per paper.
func printPapers(w io.Writer, papers []types.AnalyzedPaper) error {
	if len(papers) == 0 {
		fmt.Fprintln(w, "no papers")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tYEAR\tTITLE")
	for _, p := range papers {
		status := string(p.Status)
		if p.IsDuplicate {
			status += " (dup)"
		}
		title, year := p.FileName, ""
		if p.Record != nil {
			title, year = p.Record.Title, p.Record.Year
		}
		if p.Status == types.StatusError {
			title = p.FileName + ": " + p.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortID(p.ID), status, year, truncate(title, 80))
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
