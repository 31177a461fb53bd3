package commands

import (
	"fmt"
	"os"

	"github.com/dropcode/dropcode/cmd/dropcode/tui/app"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Open starts the interactive client with both panels closed. Without a
// terminal on stdout there is nothing to draw on, so the usage is printed.
func Open(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return cmd.Help()
	}
	lgr, err := setupLoggingFromViper("app")
	if err != nil {
		return err
	}
	defer func() { _ = lgr.Sync() }()

	ctrl, client, err := newController(lgr)
	if err != nil {
		return err
	}
	program := app.New(ctrl, client, appOptions(cmd.Context())...)
	if err := app.Run(program); err != nil {
		return fmt.Errorf("running interactive client: %w", err)
	}
	return nil
}
