// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/pkg/types"
)

var removeCmd = &cobra.Command{
	Use:     "remove ID...",
	Aliases: []string{"rm"},
	Short:   "Delete papers from the collection in any state",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		coll, err := openCollection(ctx, types.CollectionConfig{DataDir: viper.GetString("data_dir")})
		if err != nil {
			return err
		}
		defer coll.Close()

		for _, arg := range args {
			p, err := coll.Resolve(arg)
			if err != nil {
				return err
			}
			if err := coll.Remove(ctx, p.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s %s\n", shortID(p.ID), p.FileName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
