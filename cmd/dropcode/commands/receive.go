package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dropcode/dropcode/cmd/dropcode/config"
	"github.com/dropcode/dropcode/cmd/dropcode/tui"
	"github.com/dropcode/dropcode/cmd/dropcode/tui/app"
	"github.com/dropcode/dropcode/internal/file"
	"github.com/dropcode/dropcode/internal/session"
	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ------------------------------------------------------ Receive ------------------------------------------------------

func Receive() *cobra.Command {
	receiveCmd := &cobra.Command{
		Use:   "receive [code]",
		Short: "Receive a file",
		Long:  "The receive command looks up the file shared under the code and downloads it into the output directory.",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindTransferFlags(cmd); err != nil {
				return err
			}

			// Reverse the --yes/-y flag value as it has an inverse relationship
			// with the configuration value 'prompt_overwrite_files'.
			overwriteFlag := cmd.Flags().Lookup("yes")
			if overwriteFlag.Changed {
				shouldOverwrite, _ := strconv.ParseBool(overwriteFlag.Value.String())
				_ = overwriteFlag.Value.Set(strconv.FormatBool(!shouldOverwrite))
			}

			if err := viper.BindPFlag("prompt_overwrite_files", overwriteFlag); err != nil {
				return fmt.Errorf("binding yes flag: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir, _ := cmd.Flags().GetString("output")
			if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
				return fmt.Errorf("output directory (%s) does not exist", outputDir)
			}
			file.RemoveTemporaryFiles(outputDir, file.RECEIVE_TEMP_FILE_NAME_PREFIX)

			lgr, err := setupLoggingFromViper("receive")
			if err != nil {
				return err
			}
			defer func() { _ = lgr.Sync() }()

			var code string
			if len(args) > 0 {
				code = session.NormalizeCode(args[0])
			}
			switch viper.GetString("tui_style") {
			case config.StyleRich:
				if err := handleReceiveCommand(cmd.Context(), lgr, code, outputDir); err != nil {
					return fmt.Errorf("running rich receive command: %w", err)
				}
				return nil
			case config.StyleRaw:
				if code == "" {
					return errors.New("a code is required with the raw tui style")
				}
				if err := handleReceiveCommandRaw(cmd.Context(), lgr, code, outputDir); err != nil {
					return fmt.Errorf("running raw receive command: %w", err)
				}
				return nil
			default:
				return errors.New("invalid tui style provided")
			}
		},
	}
	receiveCmd.Flags().StringP("backend", "b", "", backendFlagDesc)
	receiveCmd.Flags().StringP("output", "o", ".", "Directory the received file is saved to")
	receiveCmd.Flags().BoolP("yes", "y", false, "Overwrite existing files without [Y/n] prompts")
	receiveCmd.Flags().StringP("tui-style", "s", "", tuiStyleFlagDesc)
	return receiveCmd
}

// ------------------------------------------------------ Handlers -----------------------------------------------------

// handleReceiveCommand is the interactive receiver application.
func handleReceiveCommand(ctx context.Context, lgr *zap.Logger, code, outputDir string) error {
	ctrl, client, err := newController(lgr)
	if err != nil {
		return err
	}
	opts := append(appOptions(ctx), app.WithOutputDir(outputDir))
	if code != "" {
		opts = append(opts, app.WithInitialCode(code))
	}
	return app.Run(app.New(ctrl, client, opts...))
}

func handleReceiveCommandRaw(ctx context.Context, lgr *zap.Logger, code, outputDir string) error {
	ctrl, client, err := newController(lgr)
	if err != nil {
		return err
	}
	ctrl.SetPresenter(newLinePresenter(os.Stderr))

	result, err := ctrl.ResolveCode(ctx, code)
	if err != nil {
		return err
	}
	name := result.Filename
	if name == "" {
		name = file.NameFromURL(result.URL)
	}

	overwrite := !viper.GetBool("prompt_overwrite_files")
	if !overwrite && file.Exists(outputDir, name) {
		prompt := confirmation.New(fmt.Sprintf("Overwrite file '%s'?", name), confirmation.Yes)
		prompt.Template = confirmation.TemplateYN
		prompt.ResultTemplate = confirmation.ResultTemplateYN
		ok, err := prompt.RunPrompt()
		if err != nil {
			return fmt.Errorf("reading overwrite prompt: %w", err)
		}
		if !ok {
			fmt.Fprintln(os.Stderr, tui.WarningText("Kept existing "+name))
			return nil
		}
		overwrite = true
	}

	body, size, err := client.Fetch(ctx, result.URL)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", name, err)
	}
	defer body.Close()

	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetDescription(tui.Truncate(name, 32)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
	path, written, err := file.Save(outputDir, name, io.TeeReader(body, bar), overwrite)
	if err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	_ = bar.Finish()
	lgr.Info("download saved", zap.String("path", path), zap.Int64("size", written))
	fmt.Println(path)
	return nil
}
