package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/reqsweep/reqsweep/config"
	"github.com/reqsweep/reqsweep/internal/httpclient"
	"github.com/reqsweep/reqsweep/internal/request"
)

func testClient(t *testing.T, opts *config.Options) *http.Client {
	t.Helper()
	client, err := httpclient.Build(opts)
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	t.Cleanup(func() { httpclient.Close(client) })
	return client
}

func TestExecutor_Attempt_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	opts := config.Default()
	exec := NewExecutor(testClient(t, opts), opts, testLogger(&bytes.Buffer{}))

	out, err := exec.Attempt(context.Background(), request.Descriptor{Method: "GET", URL: server.URL})
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}

	rec := out.Record
	if rec.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", rec.StatusCode)
	}
	if rec.ContentLength != 2 {
		t.Errorf("ContentLength = %d, want 2", rec.ContentLength)
	}
	if rec.IP != "127.0.0.1" {
		t.Errorf("IP = %q, want 127.0.0.1", rec.IP)
	}
	if rec.Elapsed <= 0 {
		t.Error("Elapsed must be positive")
	}
	if rec.Body != nil {
		t.Error("body must not be fetched when nothing requests it")
	}
	if out.Body != nil {
		t.Error("Outcome.Body must be nil when nothing requests a body")
	}
}

func TestExecutor_Attempt_MethodAndBody(t *testing.T) {
	var gotMethod, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		gotBody = buf.String()
	}))
	defer server.Close()

	opts := config.Default()
	exec := NewExecutor(testClient(t, opts), opts, testLogger(&bytes.Buffer{}))

	_, err := exec.Attempt(context.Background(), request.Descriptor{
		Method: "POST",
		URL:    server.URL,
		Body:   "data=value",
	})
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}

	if gotMethod != "POST" {
		t.Errorf("method = %q", gotMethod)
	}
	if gotBody != "data=value" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestExecutor_Attempt_LazyBodyFetch(t *testing.T) {
	const page = `<html><head><title>Probe Target</title></head><body>hello</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	tests := []struct {
		name      string
		mutate    func(*config.Options)
		wantFetch bool
		wantOnRec bool
		wantTitle bool
	}{
		{"nothing requested", func(o *config.Options) {}, false, false, false},
		{"include_res", func(o *config.Options) { o.IncludeRes = true }, true, true, false},
		{"filter_string", func(o *config.Options) { o.FilterString = "hello" }, true, false, false},
		{"filter_regex", func(o *config.Options) { o.FilterRegex = "hel+o" }, true, false, false},
		{"include_title", func(o *config.Options) { o.IncludeTitle = true }, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := config.Default()
			tt.mutate(opts)
			exec := NewExecutor(testClient(t, opts), opts, testLogger(&bytes.Buffer{}))

			out, err := exec.Attempt(context.Background(), request.Descriptor{Method: "GET", URL: server.URL})
			if err != nil {
				t.Fatalf("Attempt() error = %v", err)
			}

			if fetched := out.Body != nil; fetched != tt.wantFetch {
				t.Errorf("body fetched = %v, want %v", fetched, tt.wantFetch)
			}
			if tt.wantFetch && *out.Body != page {
				t.Errorf("fetched body = %q", *out.Body)
			}
			if onRec := out.Record.Body != nil; onRec != tt.wantOnRec {
				t.Errorf("record body set = %v, want %v", onRec, tt.wantOnRec)
			}
			if hasTitle := out.Record.Title != nil; hasTitle != tt.wantTitle {
				t.Errorf("title set = %v, want %v", hasTitle, tt.wantTitle)
			}
			if tt.wantTitle && *out.Record.Title != "Probe Target" {
				t.Errorf("title = %q", *out.Record.Title)
			}
		})
	}
}

func TestExecutor_Attempt_RawPreview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	opts := config.Default()
	opts.IncludeReq = true
	opts.Headers = []string{"X-Probe: reqsweep"}
	exec := NewExecutor(testClient(t, opts), opts, testLogger(&bytes.Buffer{}))

	out, err := exec.Attempt(context.Background(), request.Descriptor{
		Method: "POST",
		URL:    server.URL + "/login?a=1",
		Body:   "user=x",
	})
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}

	if out.Record.RawRequest == nil {
		t.Fatal("raw request preview missing")
	}
	preview := *out.Record.RawRequest
	if !strings.HasPrefix(preview, "POST /login?a=1 HTTP/1.1\n") {
		t.Errorf("preview request line:\n%s", preview)
	}
	if !strings.Contains(preview, "X-Probe: reqsweep\n") {
		t.Errorf("preview should carry default headers:\n%s", preview)
	}
	if !strings.HasSuffix(preview, "\nuser=x") {
		t.Errorf("preview should carry the body:\n%s", preview)
	}
}

// A send that fails retry times and then succeeds yields exactly one
// outcome and retry "retrying" diagnostics.
func TestExecutor_Execute_RetryThenSuccess(t *testing.T) {
	var calls atomic.Int32
	listener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			// kill the connection so the client sees a transport error
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer listener.Close()

	var logBuf bytes.Buffer
	opts := config.Default()
	opts.Retry = 2
	exec := NewExecutor(testClient(t, opts), opts, testLogger(&logBuf))

	out := exec.Execute(context.Background(), request.Descriptor{Method: "GET", URL: listener.URL})
	if out == nil {
		t.Fatal("expected a successful outcome after retries")
	}
	if out.Record.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", out.Record.StatusCode)
	}

	if got := int(calls.Load()); got != 3 {
		t.Errorf("server saw %d attempts, want 3", got)
	}
	if got := strings.Count(logBuf.String(), "attempt failed, retrying"); got != 2 {
		t.Errorf("%d retry diagnostics, want 2:\n%s", got, logBuf.String())
	}
}

func TestExecutor_Execute_Exhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer server.Close()

	var logBuf bytes.Buffer
	opts := config.Default()
	opts.Retry = 1
	exec := NewExecutor(testClient(t, opts), opts, testLogger(&logBuf))

	if out := exec.Execute(context.Background(), request.Descriptor{Method: "GET", URL: server.URL}); out != nil {
		t.Fatal("expected nil outcome when all attempts fail")
	}

	log := logBuf.String()
	if !strings.Contains(log, "request failed") || !strings.Contains(log, "attempts=2") {
		t.Errorf("final diagnostic should report the total attempt count:\n%s", log)
	}
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}
