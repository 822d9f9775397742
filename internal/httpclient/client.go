// Package httpclient constructs the shared HTTP client from run
// options.
//
// The client carries everything that is fixed for the lifetime of a
// run: redirect policy, proxy, TLS verification, HTTP version, and
// default headers. Per-request deadlines are applied via context by the
// caller, not as a global client timeout, so one slow probe cannot
// inherit another's budget.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/reqsweep/reqsweep/config"
)

const redirectLimit = 10

// connection pooling limits to prevent resource exhaustion when probing
// many hosts
const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 10
	maxConnsPerHost     = 10
	idleConnTimeout     = 60 * time.Second
)

// Build constructs an *http.Client from the given options.
//
// A bad proxy URL is a construction error; the caller is expected to
// treat it as fatal before any work begins. VerifySSL=false (the
// default) disables certificate verification. Unless HTTP2 is set the
// client is pinned to HTTP/1.1.
func Build(opts *config.Options) (*http.Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		MaxConnsPerHost:     maxConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !opts.VerifySSL,
		},
	}

	if opts.HTTP2 {
		transport.ForceAttemptHTTP2 = true
	} else {
		// a non-nil empty TLSNextProto map disables HTTP/2 upgrades
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	checkRedirect := func(req *http.Request, via []*http.Request) error {
		if len(via) >= redirectLimit {
			return fmt.Errorf("stopped after %d redirects", redirectLimit)
		}
		return nil
	}
	if !opts.FollowRedirect {
		checkRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &http.Client{
		Transport:     transport,
		CheckRedirect: checkRedirect,
	}, nil
}

// Close releases idle connections held by a client built with [Build].
func Close(c *http.Client) {
	if c == nil {
		return
	}
	if transport, ok := c.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
