// Package search runs a code search across the projects of one GitLab
// instance.
//
// The Orchestrator enumerates projects, hands them to a Dispatcher that
// searches each project on a bounded worker pool, and merges the per-project
// outcomes with Aggregate. A failing project never aborts the run; it is
// reported in Result.Failed instead.
package search

import (
	"github.com/shkmv/gitlab-search-cli/internal/gitlab"
)

// Hit is one matching snippet.
type Hit struct {
	// Project is the path_with_namespace of the project.
	Project   string `json:"project"`
	ProjectID int64  `json:"project_id"`
	FilePath  string `json:"file"`
	Ref       string `json:"ref,omitempty"`

	// LineNumber is the first line of Snippet. Nil when the server did not
	// report one.
	LineNumber *int   `json:"line,omitempty"`
	Snippet    string `json:"snippet"`
}

// Status classifies an Outcome.
type Status int

const (
	StatusHits Status = iota + 1
	StatusEmpty
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusHits:
		return "hits"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of searching one project.
type Outcome struct {
	Project gitlab.Project
	Hits    []Hit
	Err     error

	// Truncated is set when the server returned a full page of matches, so
	// the project may have more than Hits holds.
	Truncated bool
}

// Status reports whether the outcome has hits, is empty, or failed.
func (o Outcome) Status() Status {
	switch {
	case o.Err != nil:
		return StatusFailed
	case len(o.Hits) == 0:
		return StatusEmpty
	default:
		return StatusHits
	}
}

// FailedProject is a project whose search gave up.
type FailedProject struct {
	Project gitlab.Project `json:"project"`
	Error   string         `json:"error"`
}

// Result is the merged output of a search run.
type Result struct {
	// Hits ordered by project path, file path, then line number.
	Hits []Hit `json:"hits"`

	// Failed in enumeration order.
	Failed []FailedProject `json:"failed"`

	// Projects is the number of projects searched.
	Projects int `json:"projects"`

	// Truncated lists, in enumeration order, the paths of projects whose
	// matches were cut at gitlab.SearchPageSize.
	Truncated []string `json:"truncated,omitempty"`
}

// Succeeded returns the number of projects that did not fail.
func (r *Result) Succeeded() int {
	return r.Projects - len(r.Failed)
}
