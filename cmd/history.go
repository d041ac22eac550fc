package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var (
	historyUser  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored delivery outcomes for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.ListEntries(ctx, historyUser, historyLimit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyUser, "user", "", "user uid (required)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 500, "maximum entries to list")
	_ = historyCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(historyCmd)
}
