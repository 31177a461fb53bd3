package commands

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func Feedback() *cobra.Command {
	feedbackCmd := &cobra.Command{
		Use:   "feedback",
		Short: "Rate dropcode or leave a suggestion",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindTransferFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, _ := cmd.Flags().GetInt("rating")
			comment, _ := cmd.Flags().GetString("comment")
			if rating == 0 && comment == "" {
				return errors.New("provide a --rating, a --comment or both")
			}

			lgr, err := setupLoggingFromViper("feedback")
			if err != nil {
				return err
			}
			defer func() { _ = lgr.Sync() }()

			ctrl, _, err := newController(lgr)
			if err != nil {
				return err
			}
			ctrl.SetPresenter(newLinePresenter(os.Stderr))
			return ctrl.SubmitFeedback(cmd.Context(), rating, comment)
		},
	}
	feedbackCmd.Flags().StringP("backend", "b", "", backendFlagDesc)
	feedbackCmd.Flags().IntP("rating", "r", 0, "Star rating from 1 to 5")
	feedbackCmd.Flags().StringP("comment", "m", "", "Free form suggestion")
	return feedbackCmd
}
