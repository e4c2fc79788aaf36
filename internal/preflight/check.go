package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shkmv/gitlab-search-cli/internal/config"
	"github.com/shkmv/gitlab-search-cli/internal/logging"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status as its name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Instance string      `json:"instance,omitempty"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks.
type Checker struct {
	verbose   bool
	output    io.Writer
	newProber ProberFactory
	logDir    string
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// WithProber sets how instance clients are built.
func WithProber(f ProberFactory) Option {
	return func(c *Checker) {
		c.newProber = f
	}
}

// WithLogDir overrides the log directory checked for write access.
func WithLogDir(dir string) Option {
	return func(c *Checker) {
		c.logDir = dir
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output: os.Stdout,
		logDir: logging.DefaultLogDir(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check and returns the results in a stable order:
// local files first, then each instance in configuration order.
func (c *Checker) RunAll(ctx context.Context, configPath string, instances []config.Instance) []CheckResult {
	var results []CheckResult

	results = append(results, c.CheckConfigFile(configPath))
	results = append(results, c.CheckLogDir())

	if len(instances) == 0 {
		results = append(results, CheckResult{
			Name:     "instances",
			Status:   StatusFail,
			Message:  "no GitLab instances configured",
			Details:  "run: gitlab-search config add --name NAME --url URL --token TOKEN",
			Required: true,
		})
		return results
	}

	for _, inst := range instances {
		if ctx.Err() != nil {
			break
		}
		results = append(results, c.CheckInstance(ctx, inst)...)
	}
	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "gitlab-search doctor")
	_, _ = fmt.Fprintln(c.output, "====================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		name := r.Name
		if r.Instance != "" {
			name = r.Instance + "/" + r.Name
		}
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var failures []string
	for _, r := range results {
		if r.IsCritical() && r.Details != "" {
			failures = append(failures, r.Details)
		}
	}
	if len(failures) > 0 && !c.verbose {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintln(c.output, "Hints:")
		for _, f := range failures {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", f)
		}
	}
}
