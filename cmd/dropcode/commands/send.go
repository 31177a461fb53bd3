package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dropcode/dropcode/cmd/dropcode/config"
	"github.com/dropcode/dropcode/cmd/dropcode/tui/app"
	"github.com/dropcode/dropcode/internal/file"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// -------------------------------------------------------- Send -------------------------------------------------------

func Send() *cobra.Command {
	sendCmd := &cobra.Command{
		Use:   "send <file|directory>",
		Short: "Upload a file and get a share code",
		Long:  "The send command uploads a file of at most 10 MB and prints the code it can be received with. Directories are archived and compressed before sending.",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindTransferFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			file.RemoveTemporaryFiles(os.TempDir(), file.SEND_TEMP_FILE_NAME_PREFIX)

			lgr, err := setupLoggingFromViper("send")
			if err != nil {
				return err
			}
			defer func() { _ = lgr.Sync() }()

			copyCode, _ := cmd.Flags().GetBool("copy")
			switch viper.GetString("tui_style") {
			case config.StyleRich:
				if err := handleSendCommand(cmd.Context(), lgr, args[0]); err != nil {
					return fmt.Errorf("running rich send command: %w", err)
				}
			case config.StyleRaw:
				if err := handleSendCommandRaw(cmd.Context(), lgr, args[0], copyCode); err != nil {
					return fmt.Errorf("running raw send command: %w", err)
				}
			default:
				return errors.New("invalid tui style provided")
			}
			return nil
		},
	}
	sendCmd.Flags().StringP("backend", "b", "", backendFlagDesc)
	sendCmd.Flags().StringP("tui-style", "s", "", tuiStyleFlagDesc)
	sendCmd.Flags().BoolP("copy", "c", false, "Copy the share code to the clipboard (raw style only)")
	return sendCmd
}

// ------------------------------------------------------ Handlers -----------------------------------------------------

// handleSendCommand is the interactive sender application.
func handleSendCommand(ctx context.Context, lgr *zap.Logger, path string) error {
	ctrl, client, err := newController(lgr)
	if err != nil {
		return err
	}
	opts := append(appOptions(ctx), app.WithInitialUpload(path))
	return app.Run(app.New(ctrl, client, opts...))
}

func handleSendCommandRaw(ctx context.Context, lgr *zap.Logger, path string, copyCode bool) error {
	ctrl, _, err := newController(lgr)
	if err != nil {
		return err
	}
	ctrl.SetPresenter(newLinePresenter(os.Stderr))

	code, err := ctrl.UploadPath(ctx, path)
	if err != nil {
		return err
	}
	fmt.Println(code)
	if info := ctrl.Snapshot().Upload; info.DisplayDuration > 0 {
		fmt.Fprintf(os.Stderr, "valid for %s\n", info.DisplayDuration)
	}
	if copyCode {
		ctrl.CopyText(code)
	}
	return nil
}
