package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aozora-apps/sms-cli/internal/model"
)

var (
	sendUser    string
	sendPhone   string
	sendMessage string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single test SMS",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		userCfg, err := st.GetUserConfig(ctx, sendUser)
		if err != nil {
			return eris.Wrap(err, "load user config")
		}
		smsCfg := model.SmsConfig{}
		if userCfg != nil {
			smsCfg = userCfg.SmsConfig
		}

		outcome := eng.Send(ctx, smsCfg, sendPhone, sendMessage)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendUser, "user", "", "user uid whose gateway credentials to use (required)")
	sendCmd.Flags().StringVar(&sendPhone, "phone", "", "recipient phone number (required)")
	sendCmd.Flags().StringVar(&sendMessage, "message", "", "message text (required)")
	_ = sendCmd.MarkFlagRequired("user")
	_ = sendCmd.MarkFlagRequired("phone")
	_ = sendCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(sendCmd)
}
