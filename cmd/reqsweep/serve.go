package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reqsweep/reqsweep/config"
	"github.com/reqsweep/reqsweep/internal/toolserver"
)

// serveCmd starts the MCP tool server on stdio.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP tool server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

The server exposes one tool, send_requests, which sends a batch of HTTP
requests and returns one JSON object per response. Per-call arguments
can set filters, headers, redirect policy, and HTTP version; flags and
the config file provide the defaults.

Calls are processed sequentially with a single attempt per request;
retry, rate-limit, and jitter settings do not apply in this mode.

Example:
  reqsweep serve
  reqsweep serve -c reqsweep.yaml
  reqsweep serve -H "Authorization: Bearer ${API_TOKEN}"`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringP("config", "c", "", "path to YAML config file")
	f.Bool("verbose", false, "enable debug logging")

	f.Int("timeout", 10, "per-request timeout in seconds")
	f.String("proxy", "", "proxy URL for all requests")
	f.Bool("verify-ssl", false, "verify TLS certificates")
	f.Bool("follow-redirect", true, "follow HTTP redirects by default")
	f.Bool("http2", false, "use HTTP/2 by default")
	f.StringArrayP("header", "H", nil, `default request header, "Key: Value" (repeatable)`)
}

func runServe(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	opts := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		opts = loaded
	}

	f := cmd.Flags()
	if f.Changed("timeout") {
		opts.Timeout, _ = f.GetInt("timeout")
	}
	if f.Changed("proxy") {
		opts.Proxy, _ = f.GetString("proxy")
	}
	if f.Changed("verify-ssl") {
		opts.VerifySSL, _ = f.GetBool("verify-ssl")
	}
	if f.Changed("follow-redirect") {
		opts.FollowRedirect, _ = f.GetBool("follow-redirect")
	}
	if f.Changed("http2") {
		opts.HTTP2, _ = f.GetBool("http2")
	}
	if f.Changed("header") {
		headers, _ := f.GetStringArray("header")
		opts.Headers = append(opts.Headers, headers...)
	}

	if err := opts.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := toolserver.New(opts, version, logger)
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("tool server error: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
