package commands

import (
	"fmt"

	"github.com/dropcode/dropcode/internal/theme"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const toggleArg = "toggle"

func Theme() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the color theme",
		Long:      "The theme command prints the stored color theme. Given an argument it stores the new theme, which the interactive client picks up on its next start.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: append([]string{toggleArg}, theme.Themes...),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := theme.NewStore(viper.GetViper())
			current, err := store.Load()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), current)
				return nil
			}

			next := current.Toggle()
			if args[0] != toggleArg {
				if next, err = theme.Parse(args[0]); err != nil {
					return err
				}
			}
			if err := store.Save(next); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), next.Icon(), next)
			return nil
		},
	}
}
