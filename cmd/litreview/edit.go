// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/internal/collection"
	"github.com/pdiddy/litreview/pkg/types"
)

var editCmd = &cobra.Command{
	Use:   "edit ID --file RECORD.yaml",
	Short: "Replace the structured record of a complete paper",
	Long: `Edit replaces a paper's record with the YAML in --file (see show --record).
Editing clears the duplicate flag. If the new DOI is already used by another
paper you are asked to confirm; --yes confirms without asking.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringP("file", "f", "", "YAML file with the new record (required)")
	editCmd.Flags().BoolP("yes", "y", false, "confirm DOI conflicts without prompting")
	editCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading record: %w", err)
	}
	var rec types.PaperRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parsing record %s: %w", path, err)
	}
	rec.DOI = types.TrimDOI(rec.DOI)
	if rec.URL == "" {
		rec.URL = types.DOIURL(rec.DOI)
	}

	ctx := context.Background()
	coll, err := openCollection(ctx, types.CollectionConfig{DataDir: viper.GetString("data_dir")})
	if err != nil {
		return err
	}
	defer coll.Close()

	p, err := coll.Resolve(args[0])
	if err != nil {
		return err
	}

	yes, _ := cmd.Flags().GetBool("yes")
	confirm := func(conflicts []types.AnalyzedPaper) bool {
		if yes {
			return true
		}
		out := cmd.ErrOrStderr()
		fmt.Fprintf(out, "DOI %s is already used by:\n", rec.DOI)
		for _, c := range conflicts {
			fmt.Fprintf(out, "  [%s] %s\n", shortID(c.ID), c.Record.Title)
		}
		fmt.Fprint(out, "Save anyway? [y/N] ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}

	if err := coll.Edit(ctx, p.ID, &rec, collection.ConfirmFunc(confirm)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", shortID(p.ID))
	return nil
}
