// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/internal/export"
	"github.com/pdiddy/litreview/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export complete records as JSON, YAML, CSV, RIS, CSL-YAML or Markdown",
	Long: `Export writes every complete record in the collection. Papers still
analyzing or in error are left out. RIS packs the analysis categories into
a single N1 note; CSL-YAML is ready for Pandoc citeproc.`,
	RunE: runExport,
}

func init() {
	names := make([]string, len(export.Formats))
	for i, f := range export.Formats {
		names[i] = string(f)
	}
	exportCmd.Flags().String("format", "json", "output format: "+strings.Join(names, ", "))
	exportCmd.Flags().StringP("output", "o", "", "output file, or a directory to write collection.<ext> into (default: stdout)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}

	coll, err := openCollection(context.Background(), types.CollectionConfig{DataDir: viper.GetString("data_dir")})
	if err != nil {
		return err
	}
	defer coll.Close()
	records := coll.Records()

	output, _ := cmd.Flags().GetString("output")
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		output = filepath.Join(output, "collection"+format.Extension())
	}
	return writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
		return export.Write(w, format, records)
	}, func() {
		fmt.Fprintf(os.Stderr, "exported %d record(s) to %s\n", len(records), output)
	})
}

// writeOutput runs write against path, or against stdout when path is
// empty. done runs after a successful file write.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error, done func()) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if done != nil {
		done()
	}
	return nil
}
