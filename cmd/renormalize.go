package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	renormUser  string
	renormLimit int
	renormApply bool
)

var renormalizeCmd = &cobra.Command{
	Use:   "renormalize",
	Short: "Re-apply outcome normalization rules to stored history",
	Long:  "Scans a user's stored entries and fixes outcome fields left inconsistent by older runs: non-targets get an explicit not-sent marker, code 200 becomes a success outcome, bare codes get the undefined-code message. Dry run by default.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := eng.RenormalizeHistory(ctx, renormUser, renormLimit, renormApply)
		if err != nil {
			return err
		}

		zap.L().Info("renormalize complete",
			zap.String("user", renormUser),
			zap.Int("scanned", result.Scanned),
			zap.Int("to_update", len(result.Changed)),
			zap.Int("applied", result.Applied),
			zap.Bool("dry_run", !renormApply),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	renormalizeCmd.Flags().StringVar(&renormUser, "user", "", "user uid (required)")
	renormalizeCmd.Flags().IntVar(&renormLimit, "limit", 1000, "maximum entries to scan")
	renormalizeCmd.Flags().BoolVar(&renormApply, "yes", false, "apply changes (default is dry run)")
	_ = renormalizeCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(renormalizeCmd)
}
