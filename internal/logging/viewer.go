package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

// LogEntry is a parsed JSON log line.
type LogEntry struct {
	Time    time.Time
	Level   string
	Msg     string
	RunID   string
	Attrs   map[string]any
	Raw     string
	IsValid bool
}

// ViewerConfig configures the log viewer.
type ViewerConfig struct {
	Level   string         // Minimum level (debug, info, warn, error)
	Pattern *regexp.Regexp // Match against the raw line
	RunID   string         // Only entries of this run (prefix match)
	NoColor bool
}

// Viewer reads, filters and prints log files.
type Viewer struct {
	config ViewerConfig
	out    io.Writer

	levelColors map[string]*color.Color
	dim         *color.Color
}

// NewViewer creates a viewer writing to out.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	v := &Viewer{
		config: cfg,
		out:    out,
		levelColors: map[string]*color.Color{
			"debug": color.New(color.FgHiBlack),
			"info":  color.New(color.FgGreen),
			"warn":  color.New(color.FgYellow),
			"error": color.New(color.FgRed),
		},
		dim: color.New(color.FgHiBlack),
	}
	for _, c := range v.levelColors {
		v.applyColorMode(c)
	}
	v.applyColorMode(v.dim)
	return v
}

func (v *Viewer) applyColorMode(c *color.Color) {
	if v.config.NoColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
}

// Tail returns the last n matching entries of the file at path.
func (v *Viewer) Tail(path string, n int) ([]LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	var entries []LogEntry
	for scanner.Scan() {
		entry := parseLine(scanner.Text())
		if v.matches(entry) {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Print writes entries to the viewer output.
func (v *Viewer) Print(entries []LogEntry) {
	for _, entry := range entries {
		_, _ = fmt.Fprintln(v.out, v.FormatEntry(entry))
	}
}

// FormatEntry renders an entry as "time LEVEL msg key=value ...".
// Attributes are sorted by key.
func (v *Viewer) FormatEntry(entry LogEntry) string {
	if !entry.IsValid {
		return entry.Raw
	}

	keys := make([]string, 0, len(entry.Attrs))
	for k := range entry.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(v.dim.Sprint(entry.Time.Format("15:04:05.000")))
	sb.WriteString(" ")
	sb.WriteString(v.formatLevel(entry.Level))
	sb.WriteString(" ")
	sb.WriteString(entry.Msg)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(" %s=%v", k, entry.Attrs[k]))
	}
	return sb.String()
}

func (v *Viewer) formatLevel(level string) string {
	label := strings.ToUpper(level)
	if len(label) > 5 {
		label = label[:5]
	}
	label = fmt.Sprintf("%-5s", label)
	if c, ok := v.levelColors[strings.ToLower(level)]; ok {
		return c.Sprint(label)
	}
	return label
}

func (v *Viewer) matches(entry LogEntry) bool {
	if v.config.Level != "" && entry.IsValid {
		if LevelFromString(entry.Level) < LevelFromString(v.config.Level) {
			return false
		}
	}
	if v.config.RunID != "" && !strings.HasPrefix(entry.RunID, v.config.RunID) {
		return false
	}
	if v.config.Pattern != nil && !v.config.Pattern.MatchString(entry.Raw) {
		return false
	}
	return true
}

// parseLine parses one JSON log line. Lines that are not JSON are kept raw.
func parseLine(line string) LogEntry {
	entry := LogEntry{Raw: line}

	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return entry
	}
	entry.IsValid = true

	if t, ok := data["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			entry.Time = parsed
		}
	}
	entry.Level, _ = data["level"].(string)
	entry.Msg, _ = data["msg"].(string)
	entry.RunID, _ = data["run_id"].(string)

	entry.Attrs = make(map[string]any)
	for k, val := range data {
		switch k {
		case "time", "level", "msg", "run_id":
		default:
			entry.Attrs[k] = val
		}
	}
	return entry
}
