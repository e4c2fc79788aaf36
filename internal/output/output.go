// Package output formats command results for the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Writer provides formatted status output for CLI commands.
type Writer struct {
	out      io.Writer
	useColor bool

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	cyan   *color.Color
}

// New creates a new output Writer without colors.
func New(out io.Writer) *Writer {
	return NewWithColor(out, false)
}

// NewWithColor creates a Writer with colors switched on or off.
func NewWithColor(out io.Writer, useColor bool) *Writer {
	w := &Writer{
		out:      out,
		useColor: useColor,
		green:    newColor(useColor, color.FgGreen),
		yellow:   newColor(useColor, color.FgYellow),
		red:      newColor(useColor, color.FgRed),
		cyan:     newColor(useColor, color.FgCyan),
	}
	return w
}

// UseColor reports whether the writer emits color codes.
func (w *Writer) UseColor() bool { return w.useColor }

// Out returns the underlying writer.
func (w *Writer) Out() io.Writer { return w.out }

// ColorEnabled decides whether output to w should be colored.
// NO_COLOR, TERM=dumb, and non-terminal writers turn colors off.
func ColorEnabled(w io.Writer, noColor bool) bool {
	if noColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newColor(enabled bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.green.Sprint("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.yellow.Sprint("⚠"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.red.Sprint("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Highlight returns s in the accent color.
func (w *Writer) Highlight(s string) string {
	return w.green.Sprint(s)
}

// Code prints a code block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
