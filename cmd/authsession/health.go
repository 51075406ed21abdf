package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/authsession/internal/adapter/driving/http"
	"github.com/ericfisherdev/authsession/internal/config"
)

const healthTimeout = 2 * time.Second

func newHealthCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe a running server's health endpoint",
		Long: `Probe the health endpoint of a server started with "authsession serve" on
AUTHSESSION_LISTEN_ADDR. Exits non-zero when the server is unreachable or
unhealthy, which makes it usable as a container HEALTHCHECK.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			health, err := fetchHealth(cmd.Context(), loopbackAddr(cfg.ListenAddr))
			if err != nil {
				return err
			}
			if !quiet {
				pterm.Success.Printf("server %s, session %s\n", health.Status, health.Session)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only set the exit status")
	return cmd
}

func fetchHealth(ctx context.Context, addr string) (*httphandler.HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/api/v1/health", http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check: status %d", resp.StatusCode)
	}

	var health httphandler.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("health check: decode body: %w", err)
	}
	return &health, nil
}

// loopbackAddr rewrites a bind-all listen address to loopback so the check
// can run inside the same container as the server.
func loopbackAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "127.0.0.1:8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
