// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/internal/collection"
	"github.com/pdiddy/litreview/pkg/types"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write the whole collection as a JSON array",
	Long: `Backup writes every paper, in every state, with its lifecycle fields.
The file can be loaded again with restore.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		coll, err := openCollection(context.Background(), types.CollectionConfig{DataDir: viper.GetString("data_dir")})
		if err != nil {
			return err
		}
		defer coll.Close()

		output, _ := cmd.Flags().GetString("output")
		return writeOutput(cmd.OutOrStdout(), output, coll.Backup, func() {
			fmt.Fprintf(os.Stderr, "backed up %d paper(s) to %s\n", len(coll.Snapshot()), output)
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore FILE",
	Short: "Load a backup into the collection",
	Long: `Restore reads a JSON array written by backup (or an export of
AnalyzedPapers). With --mode replace the collection is discarded first.
With --mode merge existing papers are kept and backup entries whose id is
already present are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	backupCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	restoreCmd.Flags().String("mode", string(collection.ImportMerge), "import mode: replace or merge")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	modeName, _ := cmd.Flags().GetString("mode")
	mode, err := collection.ParseImportMode(modeName)
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	ctx := context.Background()
	coll, err := openCollection(ctx, types.CollectionConfig{DataDir: viper.GetString("data_dir")})
	if err != nil {
		return err
	}
	defer coll.Close()

	sum, err := coll.Restore(ctx, r, mode)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored (%s): %d added, %d skipped (id already present)\n", mode, sum.Added, sum.Skipped)
	return nil
}
