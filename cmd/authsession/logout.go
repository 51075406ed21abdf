package main

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/authsession/internal/application"
	"github.com/ericfisherdev/authsession/internal/config"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session on the server and clear the persisted tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			a, err := newApp(ctx, cfg, slog.Default())
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.session.LoggedIn() {
				pterm.Info.Println("Not signed in")
				return nil
			}

			application.SignOut(ctx, a.session, a.endpoint, slog.Default())
			pterm.Success.Println("Signed out")
			return nil
		},
	}
}
