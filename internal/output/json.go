package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/shkmv/gitlab-search-cli/internal/search"
)

// SearchReport is the JSON document printed by `search --format json`.
type SearchReport struct {
	Instance   string                 `json:"instance"`
	Query      string                 `json:"query"`
	Projects   int                    `json:"projects"`
	Hits       []search.Hit           `json:"hits"`
	Failed     []search.FailedProject `json:"failed"`
	Truncated  []string               `json:"truncated,omitempty"`
	DurationMS int64                  `json:"duration_ms"`
}

// NewSearchReport builds a report from a result.
func NewSearchReport(instance, query string, res *search.Result, elapsed time.Duration) SearchReport {
	return SearchReport{
		Instance:   instance,
		Query:      query,
		Projects:   res.Projects,
		Hits:       res.Hits,
		Failed:     res.Failed,
		Truncated:  res.Truncated,
		DurationMS: elapsed.Milliseconds(),
	}
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
