// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the collection by status and year",
	RunE: func(cmd *cobra.Command, args []string) error {
		coll, err := openCollection(context.Background(), types.CollectionConfig{DataDir: viper.GetString("data_dir")})
		if err != nil {
			return err
		}
		defer coll.Close()

		st := coll.Stats()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "papers:     %d\n", st.Total)
		fmt.Fprintf(w, "complete:   %d (duplicates: %d)\n", st.Complete, st.Duplicates)
		fmt.Fprintf(w, "analyzing:  %d\n", st.Analyzing)
		fmt.Fprintf(w, "error:      %d\n", st.Error)
		if len(st.Years) > 0 {
			fmt.Fprintln(w, "\nby year:")
			for _, y := range st.SortedYears() {
				fmt.Fprintf(w, "  %s  %d\n", y, st.Years[y])
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
