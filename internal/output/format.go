package output

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	jsoniter "github.com/json-iterator/go"

	"github.com/reqsweep/reqsweep/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format is the closed set of output encodings.
type Format int

const (
	FormatPlain Format = iota
	FormatJSONL
	FormatCSV
)

// ParseFormat maps a format name from the options to a [Format].
func ParseFormat(name string) (Format, error) {
	switch name {
	case config.FormatPlain:
		return FormatPlain, nil
	case config.FormatJSONL:
		return FormatJSONL, nil
	case config.FormatCSV:
		return FormatCSV, nil
	default:
		return FormatPlain, fmt.Errorf("unknown output format %q", name)
	}
}

// status-class and field styles for colorized plain output
var (
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	redirectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	methodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	urlStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	ipStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	sizeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// Formatter renders records in one configured encoding. The zero value
// renders uncolored plain output.
type Formatter struct {
	// Format selects the encoding.
	Format Format

	// Template, when non-empty, replaces the default plain line with a
	// token substitution over %method %url %status %code %size %time
	// %ip %title.
	Template string

	// Color enables status-class colorizing of the default plain line.
	Color bool

	// IncludeTitle adds the title column to CSV output.
	IncludeTitle bool
}

// Render produces the serialized form of one record, always terminated
// by a newline. The result is written to the sink in a single call, so
// it must be a complete, self-contained chunk.
func (f *Formatter) Render(rec Record) string {
	switch f.Format {
	case FormatJSONL:
		return f.renderJSONL(rec)
	case FormatCSV:
		return f.renderCSV(rec)
	default:
		return f.renderPlain(rec)
	}
}

// statusLine is the "200 OK" form of a status code.
func statusLine(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return strconv.Itoa(code)
	}
	return fmt.Sprintf("%d %s", code, text)
}

func (f *Formatter) renderPlain(rec Record) string {
	if f.Template != "" {
		r := strings.NewReplacer(
			"%method", rec.Method,
			"%url", rec.URL,
			"%status", statusLine(rec.StatusCode),
			"%code", strconv.Itoa(rec.StatusCode),
			"%size", strconv.FormatInt(rec.ContentLength, 10),
			"%time", rec.Elapsed.String(),
			"%ip", rec.IP,
			"%title", deref(rec.Title),
		)
		return r.Replace(f.Template) + "\n"
	}

	method, url, ip := rec.Method, rec.URL, rec.IP
	status := statusLine(rec.StatusCode)
	size := strconv.FormatInt(rec.ContentLength, 10)
	titleStr := ""
	if rec.Title != nil {
		titleStr = " | Title: " + *rec.Title
	}

	if f.Color {
		method = methodStyle.Render(method)
		url = urlStyle.Render(url)
		ip = ipStyle.Render(ip)
		size = sizeStyle.Render(size)
		if rec.Title != nil {
			titleStr = " | Title: " + titleStyle.Render(*rec.Title)
		}
		switch {
		case rec.StatusCode >= 200 && rec.StatusCode < 300:
			status = successStyle.Render(status)
		case rec.StatusCode >= 300 && rec.StatusCode < 400:
			status = redirectStyle.Render(status)
		default:
			status = errorStyle.Render(status)
		}
	}

	s := fmt.Sprintf("[%s] [%s] [%s] -> %s | Size: %s %s| Time: %s\n",
		method, url, ip, status, size, titleStr, rec.Elapsed)

	if rec.RawRequest != nil {
		s += "[Raw Request]\n" + *rec.RawRequest + "\n"
	}
	if rec.Body != nil {
		s += "[Response Body]\n" + *rec.Body + "\n"
	}

	return s
}

// jsonRecord is the JSONL wire form of a record.
type jsonRecord struct {
	Method         string  `json:"method"`
	URL            string  `json:"url"`
	IPAddress      string  `json:"ip_address"`
	StatusCode     int     `json:"status_code"`
	ContentLength  int64   `json:"content_length"`
	ResponseTimeMs int64   `json:"response_time_ms"`
	Title          *string `json:"title,omitempty"`
	RawRequest     *string `json:"raw_request,omitempty"`
	ResponseBody   *string `json:"response_body,omitempty"`
}

func (f *Formatter) renderJSONL(rec Record) string {
	out, err := json.MarshalToString(jsonRecord{
		Method:         rec.Method,
		URL:            rec.URL,
		IPAddress:      rec.IP,
		StatusCode:     rec.StatusCode,
		ContentLength:  rec.ContentLength,
		ResponseTimeMs: rec.Elapsed.Milliseconds(),
		Title:          rec.Title,
		RawRequest:     rec.RawRequest,
		ResponseBody:   rec.Body,
	})
	if err != nil {
		return ""
	}
	return out + "\n"
}

// CSVHeader returns the header row matching [Formatter.renderCSV]'s
// column order. The sink guarantees it is written at most once.
func (f *Formatter) CSVHeader() string {
	header := "method,url,ip_address,status_code,content_length,response_time_ms"
	if f.IncludeTitle {
		header += ",title"
	}
	return header + "\n"
}

func (f *Formatter) renderCSV(rec Record) string {
	line := fmt.Sprintf("%q,%q,%q,%q,%q,%q",
		rec.Method,
		rec.URL,
		rec.IP,
		strconv.Itoa(rec.StatusCode),
		strconv.FormatInt(rec.ContentLength, 10),
		rec.Elapsed.String(),
	)
	if f.IncludeTitle {
		line += fmt.Sprintf(",%q", deref(rec.Title))
	}
	return line + "\n"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
