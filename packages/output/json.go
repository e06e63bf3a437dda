package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitscript/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary   JSONSummary    `json:"summary"`
	Exchanges []JSONExchange `json:"exchanges"`
	Errors    []string       `json:"errors,omitempty"`
	Duration  float64        `json:"duration"`
	Time      string         `json:"time"`
}

// JSONSummary counts exchanges and the script tests inside them
type JSONSummary struct {
	Total       int `json:"total"`
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	Tests       int `json:"tests"`
	TestsFailed int `json:"testsFailed"`
}

// JSONExchange represents one replayed exchange
type JSONExchange struct {
	Name       string        `json:"name"`
	File       string        `json:"file"`
	Tags       []string      `json:"tags,omitempty"`
	Passed     bool          `json:"passed"`
	Skipped    bool          `json:"skipped,omitempty"`
	SkipReason string        `json:"skipReason,omitempty"`
	Duration   float64       `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Request    *JSONRequest  `json:"request,omitempty"`
	Unresolved []string      `json:"unresolved,omitempty"`
	Response   *JSONResponse `json:"response,omitempty"`
	Tests      []JSONTest    `json:"tests,omitempty"`
	Output     string        `json:"output,omitempty"`
	Exited     bool          `json:"exited,omitempty"`
}

// JSONRequest represents the request after placeholder resolution
type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// JSONResponse represents the recorded response
type JSONResponse struct {
	StatusCode  int                 `json:"statusCode"`
	Status      string              `json:"status"`
	Success     bool                `json:"success"`
	ContentType string              `json:"contentType,omitempty"`
	Headers     map[string][]string `json:"headers,omitempty"`
}

// JSONTest represents one client.test call
type JSONTest struct {
	Name     string  `json:"name"`
	Passed   bool    `json:"passed"`
	Error    string  `json:"error,omitempty"`
	Duration float64 `json:"duration"`
}

// JSONFormatter formats results as JSON
type JSONFormatter struct {
	writer    io.Writer
	exchanges []JSONExchange
	errors    []string
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:    os.Stdout,
		exchanges: make([]JSONExchange, 0),
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

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		ex := JSONExchange{
			Name:     r.Name,
			File:     result.File,
			Tags:     r.Tags,
			Passed:   r.Passed,
			Skipped:  r.Skipped,
			Duration: float64(r.Duration.Milliseconds()),
			Output:   r.Output,
			Exited:   r.Exited,
		}

		if r.SkipReason != "" && r.SkipReason != skipFiltered {
			ex.SkipReason = r.SkipReason
		}

		if r.Error != nil {
			ex.Error = r.Error.Error()
		}

		if r.Request != nil {
			ex.Request = &JSONRequest{
				Method:  r.Request.Method,
				URL:     r.Request.URL(),
				Headers: r.Request.Headers.Map(),
			}
		}
		ex.Unresolved = r.Unresolved

		if r.Response != nil && !r.Skipped {
			ex.Response = &JSONResponse{
				StatusCode:  r.Response.StatusCode,
				Status:      r.Response.Status,
				Success:     r.Response.IsSuccess(),
				ContentType: r.Response.ContentType().MimeType,
				Headers:     r.Response.Headers,
			}
		}

		for _, t := range r.Tests {
			ex.Tests = append(ex.Tests, JSONTest{
				Name:     t.Name,
				Passed:   t.Passed,
				Error:    t.Error,
				Duration: float64(t.Duration.Microseconds()) / 1000,
			})
		}

		f.exchanges = append(f.exchanges, ex)
	}
}

// FormatError records errors that prevented a fixture from running.
func (f *JSONFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var summary JSONSummary
	summary.Total = len(f.exchanges)
	for _, ex := range f.exchanges {
		switch {
		case ex.Skipped:
			summary.Skipped++
		case ex.Passed:
			summary.Passed++
		default:
			summary.Failed++
		}
		for _, t := range ex.Tests {
			summary.Tests++
			if !t.Passed {
				summary.TestsFailed++
			}
		}
	}

	output := JSONOutput{
		Summary:   summary,
		Exchanges: f.exchanges,
		Errors:    f.errors,
		Duration:  float64(totalDuration.Milliseconds()),
		Time:      time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
