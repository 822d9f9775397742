// Package config provides the shared run configuration for reqsweep.
//
// Options can be populated from CLI flags, from a YAML file, or both
// (flags win). The struct is read-only after construction and is shared
// by pointer across every concurrent unit of work.
//
// Example configuration:
//
//	timeout: 15
//	retry: 2
//	delay: 250
//	concurrency: 20
//	rate_limit: 50
//	format: jsonl
//	headers:
//	  - "User-Agent: reqsweep"
//	  - "Authorization: Bearer ${API_TOKEN}"
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Output format names accepted by the format option.
const (
	FormatPlain = "plain"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

const defaultTimeout = 10 // seconds

// Options is the flat set of recognized run options.
type Options struct {
	// Timeout is the per-request deadline in seconds.
	Timeout int `yaml:"timeout"`

	// Retry is the number of additional attempts for failed requests.
	Retry int `yaml:"retry"`

	// Delay is the fixed pause between retry attempts, in milliseconds.
	Delay int `yaml:"delay"`

	// Concurrency bounds simultaneous in-flight requests; 0 = unbounded.
	Concurrency int `yaml:"concurrency"`

	// RateLimit caps request starts per second; 0 disables the limit.
	RateLimit int `yaml:"rate_limit"`

	// RandomDelay is a per-request jitter range "min:max" in
	// milliseconds; empty disables jitter.
	RandomDelay string `yaml:"random_delay"`

	// Proxy routes all requests through the given proxy URL when set.
	Proxy string `yaml:"proxy"`

	// VerifySSL enables TLS certificate verification. The default is
	// false: certificates are not verified.
	VerifySSL bool `yaml:"verify_ssl"`

	// FollowRedirect controls whether redirects are followed (up to 10).
	FollowRedirect bool `yaml:"follow_redirect"`

	// HTTP2 enables HTTP/2; otherwise requests are pinned to HTTP/1.1.
	HTTP2 bool `yaml:"http2"`

	// Headers are default request headers in "Key: Value" form.
	Headers []string `yaml:"headers"`

	// Output is a file path for results; empty writes to the console.
	Output string `yaml:"output"`

	// Format selects the output encoding: plain, jsonl, or csv.
	Format string `yaml:"format"`

	// Strf is an optional template for plain output, substituting
	// %method %url %status %code %size %time %ip %title.
	Strf string `yaml:"strf"`

	IncludeReq   bool `yaml:"include_req"`
	IncludeRes   bool `yaml:"include_res"`
	IncludeTitle bool `yaml:"include_title"`
	NoColor      bool `yaml:"no_color"`

	// FilterStatus keeps only responses with these status codes; empty
	// keeps everything.
	FilterStatus []int `yaml:"filter_status"`

	// FilterString keeps only responses whose body contains this text.
	FilterString string `yaml:"filter_string"`

	// FilterRegex keeps only responses whose body matches this pattern.
	FilterRegex string `yaml:"filter_regex"`
}

// Default returns the baseline options used when no config file is
// given: 10s timeout, redirects followed, plain output, everything else
// off.
func Default() *Options {
	return &Options{
		Timeout:        defaultTimeout,
		FollowRedirect: true,
		Format:         FormatPlain,
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 4 {
			return match
		}

		varName := submatches[1]
		hasDefault := submatches[2] != ""

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return submatches[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML options file.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML options data, applies defaults, expands environment
// variables, and validates the result.
func Parse(data []byte) (*Options, error) {
	opts := Default()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := opts.expandAndValidate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// expandAndValidate expands environment variables and validates the
// options.
func (o *Options) expandAndValidate() error {
	for _, f := range []struct {
		name  string
		field *string
	}{
		{"proxy", &o.Proxy},
		{"output", &o.Output},
	} {
		expanded, err := expandEnvVars(*f.field)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.field = expanded
	}

	for i, h := range o.Headers {
		expanded, err := expandEnvVars(h)
		if err != nil {
			return fmt.Errorf("headers[%d]: %w", i, err)
		}
		o.Headers[i] = expanded
	}

	return o.Validate()
}

// Validate checks option values that must be rejected before any work
// begins. Softer problems (malformed random-delay ranges, bad header
// entries, invalid filter regexes) are reported as warnings at use time
// instead.
func (o *Options) Validate() error {
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", o.Timeout)
	}
	if o.Retry < 0 {
		return fmt.Errorf("retry cannot be negative, got %d", o.Retry)
	}
	if o.Delay < 0 {
		return fmt.Errorf("delay cannot be negative, got %d", o.Delay)
	}
	if o.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative, got %d", o.Concurrency)
	}
	if o.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative, got %d", o.RateLimit)
	}

	switch o.Format {
	case FormatPlain, FormatJSONL, FormatCSV:
	default:
		return fmt.Errorf("format must be plain, jsonl, or csv, got %q", o.Format)
	}

	for _, code := range o.FilterStatus {
		if code < 100 || code > 599 {
			return fmt.Errorf("filter_status contains invalid status code %d", code)
		}
	}

	return nil
}
