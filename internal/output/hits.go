package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/shkmv/gitlab-search-cli/internal/gitlab"
	"github.com/shkmv/gitlab-search-cli/internal/search"
)

// HitPrinter renders search hits as text.
//
//	group/app - src/main.go:12
//	12: func main() {
//	13:     run()
type HitPrinter struct {
	out     io.Writer
	project *color.Color
	path    *color.Color
	line    *color.Color
	failed  *color.Color
}

// NewHitPrinter creates a printer writing to out.
func NewHitPrinter(out io.Writer, useColor bool) *HitPrinter {
	return &HitPrinter{
		out:     out,
		project: newColor(useColor, color.FgGreen),
		path:    newColor(useColor, color.FgCyan),
		line:    newColor(useColor, color.FgYellow),
		failed:  newColor(useColor, color.FgRed),
	}
}

// Print writes every hit followed by a summary of truncated and failed
// projects.
func (p *HitPrinter) Print(res *search.Result) {
	_, _ = fmt.Fprintf(p.out, "Found %d results in %d projects\n", len(res.Hits), res.Projects)

	for _, hit := range res.Hits {
		p.printHit(hit)
	}

	if len(res.Truncated) > 0 {
		_, _ = fmt.Fprintf(p.out, "\nOnly the first %d matches are shown for:\n", gitlab.SearchPageSize)
		for _, path := range res.Truncated {
			_, _ = fmt.Fprintf(p.out, "  %s\n", p.project.Sprint(path))
		}
	}

	if len(res.Failed) > 0 {
		_, _ = fmt.Fprintf(p.out, "\n%s\n", p.failed.Sprintf("%d projects could not be searched:", len(res.Failed)))
		for _, f := range res.Failed {
			_, _ = fmt.Fprintf(p.out, "  %s: %s\n", p.project.Sprint(f.Project.PathWithNamespace), f.Error)
		}
	}
}

func (p *HitPrinter) printHit(hit search.Hit) {
	location := p.path.Sprint(hit.FilePath)
	if hit.LineNumber != nil {
		location += ":" + p.line.Sprint(strconv.Itoa(*hit.LineNumber))
	}
	_, _ = fmt.Fprintf(p.out, "\n%s - %s\n", p.project.Sprint(hit.Project), location)

	lines := strings.Split(strings.TrimRight(hit.Snippet, "\n"), "\n")
	for i, line := range lines {
		if hit.LineNumber == nil {
			_, _ = fmt.Fprintf(p.out, "  %s\n", line)
			continue
		}
		_, _ = fmt.Fprintf(p.out, "%s: %s\n", p.line.Sprint(strconv.Itoa(*hit.LineNumber+i)), line)
	}
}
