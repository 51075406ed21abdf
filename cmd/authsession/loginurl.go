package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/authsession/internal/application"
	"github.com/ericfisherdev/authsession/internal/config"
)

func newLoginURLCmd() *cobra.Command {
	var profileID string

	cmd := &cobra.Command{
		Use:   "login-url",
		Short: "Print the identity provider login URL for this instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			u, err := application.LoginURL(cfg.LoginURL, cfg.CallbackURL(), profileID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}

	cmd.Flags().StringVar(&profileID, "profile", "", "Profile to select at login")
	return cmd
}
