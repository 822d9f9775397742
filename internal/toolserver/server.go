// Package toolserver exposes the probing pipeline as an MCP (Model
// Context Protocol) tool over stdio.
//
// One tool is served, send_requests: it accepts a batch of request
// strings plus per-call overrides for filters, headers, redirect
// policy, and HTTP version, and returns one JSON object per processed
// request. Unlike the stdin pipeline, requests are processed
// sequentially with a single attempt each; retry, rate-limit, and
// jitter controls do not apply.
package toolserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/reqsweep/reqsweep/config"
	"github.com/reqsweep/reqsweep/internal/filter"
	"github.com/reqsweep/reqsweep/internal/httpclient"
	"github.com/reqsweep/reqsweep/internal/pipeline"
	"github.com/reqsweep/reqsweep/internal/request"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const toolName = "send_requests"

// Server wraps an MCP server whose send_requests tool runs the probing
// pipeline. The CLI-level options act as defaults for every call.
type Server struct {
	opts   *config.Options
	logger *slog.Logger
	mcp    *server.MCPServer
}

// New builds a [Server] with the send_requests tool registered.
func New(opts *config.Options, version string, logger *slog.Logger) *Server {
	s := &Server{opts: opts, logger: logger}

	m := server.NewMCPServer("reqsweep", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Send HTTP requests and return response metadata."),
	)
	m.AddTool(sendRequestsTool(), s.handleSendRequests)

	s.mcp = m
	return s
}

// Serve runs the MCP server over stdio until the context is cancelled
// or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("tool server starting", "tool", toolName)
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

func sendRequestsTool() mcp.Tool {
	return mcp.NewTool(toolName,
		mcp.WithDescription("Send HTTP requests and return response metadata. "+
			"Accepts a list of requests with optional filters (filter_status, filter_string, filter_regex), "+
			"HTTP options (follow_redirect, http2, headers), and output options (include_req, include_res)."),
		mcp.WithArray("requests",
			mcp.Required(),
			mcp.Description("List of HTTP requests. Each request can be a simple URL or a string in "+
				"METHOD URL BODY form (e.g., 'POST https://example.com data=value')."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("filter_status",
			mcp.Description("Only return responses with these HTTP status codes (e.g., [200, 404])."),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithString("filter_string",
			mcp.Description("Only return responses whose body contains this string."),
		),
		mcp.WithString("filter_regex",
			mcp.Description("Only return responses whose body matches this regex pattern."),
		),
		mcp.WithBoolean("include_req",
			mcp.Description("Include raw HTTP request details in the output."),
		),
		mcp.WithBoolean("include_res",
			mcp.Description("Include the response body in the output."),
		),
		mcp.WithBoolean("follow_redirect",
			mcp.Description("Whether to follow HTTP redirects. Defaults to the CLI setting."),
		),
		mcp.WithBoolean("http2",
			mcp.Description("Use HTTP/2 for requests. Defaults to the CLI setting."),
		),
		mcp.WithArray("headers",
			mcp.Description("Custom headers to add to the requests (e.g., [\"User-Agent: my-app\"]). "+
				"Applied on top of CLI-level headers."),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

func (s *Server) handleSendRequests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.processCall(ctx, req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

// toolRecord is the per-request JSON object returned for a completed,
// filter-passing request.
type toolRecord struct {
	Method         string  `json:"method"`
	URL            string  `json:"url"`
	StatusCode     int     `json:"status_code"`
	ContentLength  int64   `json:"content_length"`
	ResponseTimeMs int64   `json:"response_time_ms"`
	IPAddress      string  `json:"ip_address,omitempty"`
	RawRequest     *string `json:"raw_request,omitempty"`
	ResponseBody   *string `json:"response_body,omitempty"`
}

// toolError is the per-request JSON object returned for a failed send.
type toolError struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Error  string `json:"error"`
}

// processCall validates the call arguments, builds a fresh client for
// the call, and processes the batch sequentially. A returned error
// becomes a single structured error response; no partial processing
// happens after a parameter error.
func (s *Server) processCall(ctx context.Context, args map[string]any) (string, error) {
	rawRequests, ok := args["requests"].([]any)
	if !ok {
		return "", fmt.Errorf("requests parameter must be an array")
	}

	callOpts, err := s.callOptions(args)
	if err != nil {
		return "", err
	}

	client, err := httpclient.Build(callOpts)
	if err != nil {
		return "", fmt.Errorf("failed to build HTTP client: %w", err)
	}
	defer httpclient.Close(client)

	exec := pipeline.NewExecutor(client, callOpts, s.logger)

	var results []string
	for _, raw := range rawRequests {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		str = strings.TrimSpace(str)
		if str == "" {
			continue
		}

		d := request.ParseLine(str)
		if d.URL == "" {
			continue
		}
		d.URL = request.NormalizeScheme(d.URL)

		out, err := exec.Attempt(ctx, d)
		if err != nil {
			line, merr := json.MarshalToString(toolError{Method: d.Method, URL: d.URL, Error: err.Error()})
			if merr == nil {
				results = append(results, line)
			}
			continue
		}

		if filter.ShouldReject(out.Record.StatusCode, out.Body,
			callOpts.FilterStatus, callOpts.FilterString, exec.Regex()) {
			continue
		}

		line, merr := json.MarshalToString(toolRecord{
			Method:         out.Record.Method,
			URL:            out.Record.URL,
			StatusCode:     out.Record.StatusCode,
			ContentLength:  out.Record.ContentLength,
			ResponseTimeMs: out.Record.Elapsed.Milliseconds(),
			IPAddress:      out.Record.IP,
			RawRequest:     out.Record.RawRequest,
			ResponseBody:   out.Record.Body,
		})
		if merr == nil {
			results = append(results, line)
		}
	}

	return strings.Join(results, "\n"), nil
}

// callOptions derives the per-call options: CLI-level options as the
// baseline, call arguments overriding filters, header injection,
// redirect policy, and HTTP version. Title extraction, retries, and
// pacing are never exposed on this path.
func (s *Server) callOptions(args map[string]any) (*config.Options, error) {
	opts := *s.opts

	opts.Retry = 0
	opts.RateLimit = 0
	opts.RandomDelay = ""
	opts.IncludeTitle = false

	opts.FilterStatus = nil
	if v, ok := args["filter_status"].([]any); ok {
		for _, item := range v {
			if n, ok := item.(float64); ok {
				opts.FilterStatus = append(opts.FilterStatus, int(n))
			}
		}
	}

	opts.FilterString, _ = args["filter_string"].(string)

	opts.FilterRegex = ""
	if pattern, ok := args["filter_regex"].(string); ok && pattern != "" {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("invalid regex provided for filter_regex: %v", err)
		}
		opts.FilterRegex = pattern
	}

	opts.IncludeReq, _ = args["include_req"].(bool)
	opts.IncludeRes, _ = args["include_res"].(bool)

	if v, ok := args["follow_redirect"].(bool); ok {
		opts.FollowRedirect = v
	}
	if v, ok := args["http2"].(bool); ok {
		opts.HTTP2 = v
	}

	// CLI-level headers apply first; call-level headers override/extend
	opts.Headers = slices.Clone(s.opts.Headers)
	if v, ok := args["headers"].([]any); ok {
		for _, item := range v {
			if h, ok := item.(string); ok {
				opts.Headers = append(opts.Headers, h)
			}
		}
	}

	return &opts, nil
}
