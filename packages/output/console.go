package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/hitscript/packages/core/runner"
)

const skipFiltered = "filtered out"

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

// indent prefixes every non-empty line of s.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Running: "+result.File))
	fmt.Fprintf(f.writer, "\n")

	tests, failedTests := 0, 0
	for _, r := range result.Results {
		if r.Skipped {
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), r.Name)
			if r.SkipReason != "" && r.SkipReason != skipFiltered {
				fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
			}
			fmt.Fprintf(f.writer, "\n")
			continue
		}

		symbol := green("✓")
		if !r.Passed {
			symbol = red("✗")
		}
		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.Name, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))

		if f.verbose && r.Request != nil {
			fmt.Fprintf(f.writer, "    %s %s\n", r.Request.Method, r.Request.URL())
		}
		if f.verbose && r.Response != nil {
			status := red(r.Response.Status)
			if r.Response.IsSuccess() {
				status = green(r.Response.Status)
			}
			fmt.Fprintf(f.writer, "    Status: %s\n", status)
		}
		if f.verbose && len(r.Unresolved) > 0 {
			fmt.Fprintf(f.writer, "    %s %s\n", yellow("Unresolved:"), strings.Join(r.Unresolved, ", "))
		}

		for _, t := range r.Tests {
			tests++
			if t.Passed {
				fmt.Fprintf(f.writer, "    %s %s\n", green("✓"), t.Name)
				continue
			}
			failedTests++
			fmt.Fprintf(f.writer, "    %s %s\n", red("✗"), t.Name)
			fmt.Fprintf(f.writer, "      %s\n", red(t.Error))
		}

		if r.Error != nil {
			fmt.Fprintf(f.writer, "    %s %s\n", red("→"), red(r.Error.Error()))
		}

		if r.Output != "" && (f.verbose || !r.Passed) {
			fmt.Fprintf(f.writer, "    %s\n", faint("Output:"))
			fmt.Fprintf(f.writer, "%s\n", faint(indent(r.Output, "      ")))
		}

		if r.Exited {
			fmt.Fprintf(f.writer, "    %s\n", faint("(script called client.exit)"))
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Exchanges: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	total := result.Passed + result.Failed + result.Skipped
	fmt.Fprintf(f.writer, "%d total\n", total)
	if tests > 0 {
		fmt.Fprintf(f.writer, "Tests:     %d passed, %d failed, %d total\n", tests-failedTests, failedTests, tests)
	}
	fmt.Fprintf(f.writer, "Time:      %dms\n", result.Duration.Milliseconds())
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitscript"), version)
}
