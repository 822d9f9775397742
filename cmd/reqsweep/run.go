package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reqsweep/reqsweep/config"
	"github.com/reqsweep/reqsweep/internal/httpclient"
	"github.com/reqsweep/reqsweep/internal/output"
	"github.com/reqsweep/reqsweep/internal/pipeline"
)

// runCmd reads requests from stdin and probes them.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send requests read from stdin",
	Long: `Send HTTP requests read from stdin, one per line.

Each line is a bare URL or "METHOD URL BODY". Results stream to stdout
(or a file with -o) as they complete.

Options may come from flags, a YAML config file (-c), or both. Flags
set on the command line win over the file.

Examples:
  cat urls.txt | reqsweep run
  cat urls.txt | reqsweep run --concurrency 50 --rate-limit 100
  cat urls.txt | reqsweep run -f csv -o results.csv --title
  cat urls.txt | reqsweep run --filter-status 200 --filter-status 301`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringP("config", "c", "", "path to YAML config file")
	f.Bool("verbose", false, "enable debug logging")

	f.Int("timeout", 10, "per-request timeout in seconds")
	f.Int("retry", 0, "number of additional attempts for failed requests")
	f.Int("delay", 0, "pause between retry attempts in milliseconds")
	f.IntP("concurrency", "n", 0, "max simultaneous requests (0 = unbounded)")
	f.Int("rate-limit", 0, "max request starts per second (0 = unlimited)")
	f.String("random-delay", "", "per-request jitter range in ms, as min:max")

	f.String("proxy", "", "proxy URL for all requests")
	f.Bool("verify-ssl", false, "verify TLS certificates")
	f.Bool("follow-redirect", true, "follow HTTP redirects")
	f.Bool("http2", false, "use HTTP/2 instead of HTTP/1.1")
	f.StringArrayP("header", "H", nil, `default request header, "Key: Value" (repeatable)`)

	f.StringP("output", "o", "", "write results to this file instead of stdout")
	f.StringP("format", "f", config.FormatPlain, "output format: plain, jsonl, or csv")
	f.String("strf", "", "plain output template (%method %url %status %code %size %time %ip %title)")
	f.Bool("include-req", false, "include the raw request in the output")
	f.Bool("include-res", false, "include the response body in the output")
	f.Bool("title", false, "extract and include the HTML <title>")
	f.Bool("no-color", false, "disable colored console output")

	f.IntSlice("filter-status", nil, "only keep responses with these status codes (repeatable)")
	f.String("filter-string", "", "only keep responses whose body contains this text")
	f.String("filter-regex", "", "only keep responses whose body matches this regex")
}

func runRun(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}

	client, err := httpclient.Build(opts)
	if err != nil {
		return fmt.Errorf("failed to build HTTP client: %w", err)
	}
	defer httpclient.Close(client)

	var sink *output.Sink
	if opts.Output != "" {
		sink, err = output.NewFileSink(opts.Output, logger)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
	} else {
		sink = output.NewConsoleSink(logger)
	}

	runner, err := pipeline.NewRunner(opts, client, sink, logger)
	if err != nil {
		return err
	}

	// cancel in-flight requests on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runner.Run(ctx, os.Stdin)
}

// buildOptions layers the run configuration: defaults, then the YAML
// file when -c is given, then any flag the user actually set.
func buildOptions(cmd *cobra.Command) (*config.Options, error) {
	opts := config.Default()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		opts = loaded
	}

	applyFlags(cmd, opts)

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// applyFlags copies every flag the user explicitly set onto opts, so
// command-line settings override the config file.
func applyFlags(cmd *cobra.Command, opts *config.Options) {
	f := cmd.Flags()

	if f.Changed("timeout") {
		opts.Timeout, _ = f.GetInt("timeout")
	}
	if f.Changed("retry") {
		opts.Retry, _ = f.GetInt("retry")
	}
	if f.Changed("delay") {
		opts.Delay, _ = f.GetInt("delay")
	}
	if f.Changed("concurrency") {
		opts.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("rate-limit") {
		opts.RateLimit, _ = f.GetInt("rate-limit")
	}
	if f.Changed("random-delay") {
		opts.RandomDelay, _ = f.GetString("random-delay")
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
	if f.Changed("output") {
		opts.Output, _ = f.GetString("output")
	}
	if f.Changed("format") {
		opts.Format, _ = f.GetString("format")
	}
	if f.Changed("strf") {
		opts.Strf, _ = f.GetString("strf")
	}
	if f.Changed("include-req") {
		opts.IncludeReq, _ = f.GetBool("include-req")
	}
	if f.Changed("include-res") {
		opts.IncludeRes, _ = f.GetBool("include-res")
	}
	if f.Changed("title") {
		opts.IncludeTitle, _ = f.GetBool("title")
	}
	if f.Changed("no-color") {
		opts.NoColor, _ = f.GetBool("no-color")
	}
	if f.Changed("filter-status") {
		opts.FilterStatus, _ = f.GetIntSlice("filter-status")
	}
	if f.Changed("filter-string") {
		opts.FilterString, _ = f.GetString("filter-string")
	}
	if f.Changed("filter-regex") {
		opts.FilterRegex, _ = f.GetString("filter-regex")
	}
}
