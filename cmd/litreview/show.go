// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/pkg/types"
)

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print one paper as YAML",
	Long: `Show prints a paper and its structured record as YAML. The id may be
abbreviated to any unique prefix. With --record only the PaperRecord is
printed, in the form edit --file expects.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().Bool("record", false, "print only the structured record")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	coll, err := openCollection(context.Background(), types.CollectionConfig{DataDir: viper.GetString("data_dir")})
	if err != nil {
		return err
	}
	defer coll.Close()

	p, err := coll.Resolve(args[0])
	if err != nil {
		return err
	}

	var v any = p
	if onlyRecord, _ := cmd.Flags().GetBool("record"); onlyRecord {
		if p.Record == nil {
			return fmt.Errorf("paper %s is %s and has no record", shortID(p.ID), p.Status)
		}
		v = p.Record
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}
