// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Find complete records by title, author, abstract or finding",
	Long: `Search matches complete records whose title, authors, venue, DOI,
abstract, core problem, design dimensions or key finding contain every
query term, ignoring case.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coll, err := openCollection(context.Background(), types.CollectionConfig{DataDir: viper.GetString("data_dir")})
		if err != nil {
			return err
		}
		defer coll.Close()
		return printPapers(cmd.OutOrStdout(), coll.Search(strings.Join(args, " ")))
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
