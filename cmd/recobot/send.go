package main

import (
	"github.com/spf13/cobra"

	"recobot/internal/app"
)

type requestFlags struct {
	input       string
	mode        string
	format      string
	message     string
	messageFile string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "spreadsheet (.xlsx) with one row per recommendation or group")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "tabular", "tabular or broadcast")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "table or narrative (default from config)")
	cmd.Flags().StringVar(&f.message, "message", "", "broadcast text")
	cmd.Flags().StringVar(&f.messageFile, "message-file", "", "file holding the broadcast text")
	_ = cmd.MarkFlagRequired("input")
	cmd.MarkFlagsMutuallyExclusive("message", "message-file")
}

func (f *requestFlags) request(trigger string) app.Request {
	return app.Request{
		Input:       f.input,
		Mode:        f.mode,
		Format:      f.format,
		Message:     f.message,
		MessageFile: f.messageFile,
		Trigger:     trigger,
	}
}

var sendFlags requestFlags

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Run one dispatch and print the JSON result",
	Long: `Stages the input, opens the browser, waits for the WhatsApp Web login
and delivers one message per group. Interrupting stops after the group in
flight; the remaining groups are reported as cancelled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ctx, cancel := signalContext()
		defer cancel()

		res, runErr := a.Trigger(ctx, sendFlags.request("cli"))
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	sendFlags.register(sendCmd)
	rootCmd.AddCommand(sendCmd)
}
