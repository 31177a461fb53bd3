package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dropcode/dropcode/cmd/dropcode/commands"
	"github.com/dropcode/dropcode/cmd/dropcode/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// injected at build time.
var version = "v0.0.0"

// rootCmd is the top level `dropcode` command on which the other subcommands are attached to.
var rootCmd = &cobra.Command{
	Use:          "dropcode",
	Short:        "Dropcode shares a file through a short code, from any computer to another.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			return err
		}
		if err := viper.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
			return fmt.Errorf("binding verbose flag: %w", err)
		}
		return nil
	},
	RunE: commands.Open,
}

// Entry point of the application.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug information to a file on the format `.dropcode-[command].log` in the current directory")
	rootCmd.AddCommand(commands.Send())
	rootCmd.AddCommand(commands.Receive())
	rootCmd.AddCommand(commands.Feedback())
	rootCmd.AddCommand(commands.Theme())
	rootCmd.AddCommand(commands.Config())
	rootCmd.AddCommand(commands.Version(version))
}
