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
	userConfigUser string
	userConfigFile string
)

var userConfigCmd = &cobra.Command{
	Use:   "userconfig",
	Short: "Manage per-user targeting rules and gateway credentials",
}

var userConfigGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print a user's stored configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		userCfg, err := st.GetUserConfig(ctx, userConfigUser)
		if err != nil {
			return err
		}
		if userCfg == nil {
			return eris.Errorf("no config stored for user %s", userConfigUser)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(userCfg)
	},
}

var userConfigSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a user's configuration from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		data, err := os.ReadFile(userConfigFile)
		if err != nil {
			return eris.Wrapf(err, "read config file %s", userConfigFile)
		}
		var userCfg model.UserConfig
		if err := json.Unmarshal(data, &userCfg); err != nil {
			return eris.Wrap(err, "parse config file")
		}

		if err := st.PutUserConfig(ctx, userConfigUser, userCfg); err != nil {
			return err
		}

		zap.L().Info("user config stored", zap.String("user", userConfigUser))
		return nil
	},
}

func init() {
	userConfigCmd.PersistentFlags().StringVar(&userConfigUser, "user", "", "user uid (required)")
	_ = userConfigCmd.MarkPersistentFlagRequired("user")

	userConfigSetCmd.Flags().StringVar(&userConfigFile, "file", "", "JSON file with target_rules and sms_config (required)")
	_ = userConfigSetCmd.MarkFlagRequired("file")

	userConfigCmd.AddCommand(userConfigGetCmd)
	userConfigCmd.AddCommand(userConfigSetCmd)
	rootCmd.AddCommand(userConfigCmd)
}
