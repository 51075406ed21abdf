package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/authsession/internal/application"
	"github.com/ericfisherdev/authsession/internal/config"
)

func newStatusCmd() *cobra.Command {
	var checkPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted session",
		Long: `Show the persisted session's identity and token expiry.

With --get, issue an authenticated GET against the upstream API so that an
expired access token is refreshed and the renewed pair is persisted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), checkPath)
		},
	}

	cmd.Flags().StringVar(&checkPath, "get", "", "Upstream path to GET with the session's credentials")
	return cmd
}

func runStatus(ctx context.Context, checkPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := newApp(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	pterm.DefaultSection.Println("Session")
	printSession(a.session)

	if checkPath == "" {
		return nil
	}

	pterm.DefaultSection.Println("Probe")
	target := strings.TrimRight(cfg.APIBaseURL, "/") + "/" + strings.TrimLeft(checkPath, "/")
	resp, err := a.client.Request(ctx, target, application.RequestOptions{})
	if err != nil {
		return fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		pterm.Success.Printf("GET %s: %s\n", target, resp.Status)
	} else {
		pterm.Warning.Printf("GET %s: %s\n", target, resp.Status)
	}

	// A refresh during the request updates the session through the bridge.
	printSession(a.session)
	return nil
}

func printSession(session *application.SessionState) {
	snap := session.Snapshot()
	if !snap.LoggedIn() {
		pterm.Info.Println("Not signed in")
		return
	}

	pterm.Info.Printf("Signed in as %s\n", snap.Identity.DisplayName)
	if snap.Identity.ProfileID != "" {
		pterm.Info.Printf("Profile: %s\n", snap.Identity.ProfileID)
	}

	cred := snap.Credential
	switch {
	case cred.ExpiresAt == 0:
		pterm.Info.Println("Access token expiry: unknown")
	case cred.IsExpired(time.Now()):
		pterm.Warning.Printf("Access token expired at %s\n", cred.Expiry().Format(time.RFC3339))
	default:
		pterm.Info.Printf("Access token expires at %s\n", cred.Expiry().Format(time.RFC3339))
	}

	if cred.HasRefreshToken() {
		pterm.Info.Println("Refresh token: present")
	} else {
		pterm.Warning.Println("Refresh token: absent, the session ends when the access token expires")
	}
}
