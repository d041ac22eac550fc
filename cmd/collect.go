package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aozora-apps/sms-cli/internal/model"
)

var (
	collectUser string
	collectFile string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Process a batch of harvested contact records",
	Long:  "Reads raw contact records from a JSON file, resolves SMS targeting per record, delivers where eligible, and stores the enriched entries.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		data, err := os.ReadFile(collectFile)
		if err != nil {
			return eris.Wrapf(err, "read records file %s", collectFile)
		}
		var records []model.RawRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return eris.Wrap(err, "parse records file")
		}

		userCfg, err := st.GetUserConfig(ctx, collectUser)
		if err != nil {
			return eris.Wrap(err, "load user config")
		}
		if userCfg == nil {
			userCfg = &model.UserConfig{}
			zap.L().Warn("no user config found, delivery will be skipped",
				zap.String("user", collectUser),
			)
		}

		result := eng.ProcessBatch(ctx, collectUser, records, *userCfg)

		zap.L().Info("batch complete",
			zap.String("user", collectUser),
			zap.Int("records", len(records)),
			zap.Int("saved", result.SavedCount),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectUser, "user", "", "user uid owning the batch (required)")
	collectCmd.Flags().StringVar(&collectFile, "file", "", "JSON file with raw contact records (required)")
	_ = collectCmd.MarkFlagRequired("user")
	_ = collectCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(collectCmd)
}
