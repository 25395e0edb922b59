package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/restfile/restfile/packages/core/runner"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// displayName labels a request by its @name when present, otherwise by its
// resolved method and URL.
func displayName(r *runner.Result) string {
	if r.Name != "" {
		return r.Name
	}
	if r.Request != nil {
		return r.Request.Method + " " + r.Request.URL
	}
	return "(request)"
}

func (f *ConsoleFormatter) FormatResult(result *runner.DocumentResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Running: "+result.Path))
	fmt.Fprintf(f.writer, "\n")

	for _, r := range result.Results {
		if !r.Success {
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), displayName(r), red("("+r.Error+")"))
			continue
		}

		fmt.Fprintf(f.writer, "  %s %s %s %s\n",
			green("✓"), displayName(r),
			statusLabel(r.Response.StatusCode),
			cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))

		if f.verbose {
			if r.Name != "" && r.Request != nil {
				fmt.Fprintf(f.writer, "    %s %s\n", r.Request.Method, r.Request.URL)
			}
			fmt.Fprintf(f.writer, "    Status: %s\n", r.Response.Status)
			fmt.Fprintf(f.writer, "    Size:   %d bytes\n", len(r.Response.Body))
			if t := r.Response.Timings; t.Total > 0 {
				fmt.Fprintf(f.writer, "    Timing: dns=%dms connect=%dms tls=%dms firstByte=%dms\n",
					t.DNS.Milliseconds(), t.Connect.Milliseconds(),
					t.TLS.Milliseconds(), t.FirstByte.Milliseconds())
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Requests: ")
	if result.Succeeded > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d completed", result.Succeeded)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	fmt.Fprintf(f.writer, "%d total\n", len(result.Results))
	fmt.Fprintf(f.writer, "Time:     %dms\n", result.Duration.Milliseconds())
	fmt.Fprintf(f.writer, "\n")
}

// statusLabel colors an HTTP status code by its class.
func statusLabel(code int) string {
	text := fmt.Sprintf("%d", code)
	switch {
	case code >= 200 && code < 300:
		return color.New(color.FgGreen).Sprint(text)
	case code >= 300 && code < 400:
		return color.New(color.FgYellow).Sprint(text)
	default:
		return color.New(color.FgRed).Sprint(text)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("restfile"), version)
}
