package output

import (
	stdjson "encoding/json"
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func baseRecord() Record {
	return Record{
		Method:        "GET",
		URL:           "https://example.com",
		IP:            "1.2.3.4",
		StatusCode:    200,
		ContentLength: 1234,
		Elapsed:       time.Second,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"plain", FormatPlain},
		{"jsonl", FormatJSONL},
		{"csv", FormatCSV},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v", tt.name, got, err)
		}
	}

	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

// Template rendering is a pure substitution with nothing added beyond
// the trailing newline.
func TestRenderPlain_Template(t *testing.T) {
	f := &Formatter{Format: FormatPlain, Template: "%method %url -> %code"}

	got := f.Render(baseRecord())
	if got != "GET https://example.com -> 200\n" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderPlain_TemplateAllTokens(t *testing.T) {
	rec := baseRecord()
	rec.Title = strPtr("Home")
	f := &Formatter{Format: FormatPlain, Template: "%status|%size|%time|%ip|%title"}

	got := f.Render(rec)
	if got != "200 OK|1234|1s|1.2.3.4|Home\n" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderPlain_TemplateMissingTitle(t *testing.T) {
	f := &Formatter{Format: FormatPlain, Template: "t=%title."}

	if got := f.Render(baseRecord()); got != "t=.\n" {
		t.Errorf("missing title should substitute empty string, got %q", got)
	}
}

func TestRenderPlain_Default(t *testing.T) {
	got := (&Formatter{}).Render(baseRecord())

	want := "[GET] [https://example.com] [1.2.3.4] -> 200 OK | Size: 1234 | Time: 1s\n"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderPlain_DefaultWithTitle(t *testing.T) {
	rec := baseRecord()
	rec.Title = strPtr("Example Domain")

	got := (&Formatter{}).Render(rec)
	if !strings.Contains(got, "| Title: Example Domain|") {
		t.Errorf("Render() = %q, expected a title segment", got)
	}
}

func TestRenderPlain_Blocks(t *testing.T) {
	rec := baseRecord()
	rec.RawRequest = strPtr("GET / HTTP/1.1\nHost: example.com\n")
	rec.Body = strPtr("<html></html>")

	got := (&Formatter{}).Render(rec)

	if !strings.Contains(got, "[Raw Request]\nGET / HTTP/1.1\n") {
		t.Errorf("missing raw request block:\n%s", got)
	}
	if !strings.HasSuffix(got, "[Response Body]\n<html></html>\n") {
		t.Errorf("missing response body block:\n%s", got)
	}
}

func TestRenderJSONL(t *testing.T) {
	rec := baseRecord()
	rec.Title = strPtr("Example")
	f := &Formatter{Format: FormatJSONL}

	got := f.Render(rec)
	if !strings.HasSuffix(got, "\n") {
		t.Fatalf("JSONL record must be newline-terminated: %q", got)
	}

	var decoded map[string]any
	if err := stdjson.Unmarshal([]byte(strings.TrimSuffix(got, "\n")), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if decoded["method"] != "GET" || decoded["url"] != "https://example.com" {
		t.Errorf("unexpected method/url: %v", decoded)
	}
	if decoded["ip_address"] != "1.2.3.4" {
		t.Errorf("ip_address = %v", decoded["ip_address"])
	}
	if decoded["status_code"] != float64(200) {
		t.Errorf("status_code = %v", decoded["status_code"])
	}
	if decoded["content_length"] != float64(1234) {
		t.Errorf("content_length = %v", decoded["content_length"])
	}
	if decoded["response_time_ms"] != float64(1000) {
		t.Errorf("response_time_ms = %v", decoded["response_time_ms"])
	}
	if decoded["title"] != "Example" {
		t.Errorf("title = %v", decoded["title"])
	}
	if _, present := decoded["response_body"]; present {
		t.Error("response_body must be omitted when nil")
	}
	if _, present := decoded["raw_request"]; present {
		t.Error("raw_request must be omitted when nil")
	}
}

func TestRenderCSV(t *testing.T) {
	f := &Formatter{Format: FormatCSV}

	got := f.Render(baseRecord())
	want := `"GET","https://example.com","1.2.3.4","200","1234","1s"` + "\n"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}

	if f.CSVHeader() != "method,url,ip_address,status_code,content_length,response_time_ms\n" {
		t.Errorf("CSVHeader() = %q", f.CSVHeader())
	}
}

func TestRenderCSV_WithTitleColumn(t *testing.T) {
	f := &Formatter{Format: FormatCSV, IncludeTitle: true}

	rec := baseRecord()
	got := f.Render(rec)
	if !strings.HasSuffix(got, `,""`+"\n") {
		t.Errorf("absent title should render as an empty column: %q", got)
	}

	rec.Title = strPtr("T")
	if got := f.Render(rec); !strings.HasSuffix(got, `,"T"`+"\n") {
		t.Errorf("title column = %q", got)
	}

	if !strings.HasSuffix(f.CSVHeader(), ",title\n") {
		t.Errorf("header should carry the title column: %q", f.CSVHeader())
	}
}
