package search

import (
	"sort"
)

// Aggregate merges outcomes into a Result. Hits are concatenated in outcome
// order and then stably sorted by project path, file path and line number,
// with a missing line number sorting first. Aggregate does no I/O.
func Aggregate(outcomes []Outcome) *Result {
	res := &Result{
		Hits:     []Hit{},
		Failed:   []FailedProject{},
		Projects: len(outcomes),
	}

	for _, o := range outcomes {
		if o.Err != nil {
			res.Failed = append(res.Failed, FailedProject{Project: o.Project, Error: describe(o.Err)})
			continue
		}
		res.Hits = append(res.Hits, o.Hits...)
		if o.Truncated {
			res.Truncated = append(res.Truncated, o.Project.PathWithNamespace)
		}
	}

	sort.SliceStable(res.Hits, func(i, j int) bool {
		return hitLess(res.Hits[i], res.Hits[j])
	})
	return res
}

func hitLess(a, b Hit) bool {
	if a.Project != b.Project {
		return a.Project < b.Project
	}
	if a.FilePath != b.FilePath {
		return a.FilePath < b.FilePath
	}
	switch {
	case a.LineNumber == nil:
		return b.LineNumber != nil
	case b.LineNumber == nil:
		return false
	default:
		return *a.LineNumber < *b.LineNumber
	}
}
