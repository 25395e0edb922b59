package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/restfile/restfile/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary   `json:"summary"`
	Requests []JSONRequest `json:"requests"`
	Duration float64       `json:"duration"`
	Time     string        `json:"time"`
}

// JSONSummary totals the run
type JSONSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// JSONRequest represents a single executed request
type JSONRequest struct {
	Name        string        `json:"name,omitempty"`
	File        string        `json:"file"`
	Success     bool          `json:"success"`
	FailureKind string        `json:"failureKind,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    float64       `json:"duration"`
	Request     *JSONExchange `json:"request,omitempty"`
	Response    *JSONStatus   `json:"response,omitempty"`
}

// JSONExchange holds the resolved request details
type JSONExchange struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// JSONStatus holds response details
type JSONStatus struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
}

// JSONFormatter accumulates results and emits one JSON document on Flush
type JSONFormatter struct {
	writer  io.Writer
	results []JSONRequest
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONRequest, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *runner.DocumentResult) {
	for _, r := range result.Results {
		entry := JSONRequest{
			Name:     r.Name,
			File:     result.Path,
			Success:  r.Success,
			Duration: float64(r.Duration.Milliseconds()),
		}

		if !r.Success {
			entry.FailureKind = r.FailureKind.String()
			entry.Error = r.Error
		}

		if r.Request != nil {
			entry.Request = &JSONExchange{
				Method:  r.Request.Method,
				URL:     r.Request.URL,
				Headers: r.Request.Headers,
			}
		}

		if r.Response != nil {
			entry.Response = &JSONStatus{
				StatusCode: r.Response.StatusCode,
				Status:     r.Response.Status,
				Headers:    r.Response.Headers,
				Body:       r.Response.Text,
			}
		}

		f.results = append(f.results, entry)
	}
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors surface in individual request entries
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var completed, failed int
	for _, r := range f.results {
		if r.Success {
			completed++
		} else {
			failed++
		}
	}

	output := JSONOutput{
		Summary: JSONSummary{
			Total:     len(f.results),
			Completed: completed,
			Failed:    failed,
		},
		Requests: f.results,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
