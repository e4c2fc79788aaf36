package ui

import (
	"errors"

	"github.com/shkmv/gitlab-search-cli/internal/progress"
)

// Handler adapts a Renderer to a progress.Sink.
// The returned sink is not safe for concurrent use; feed it through a
// progress.Pump.
func Handler(r Renderer) progress.Sink {
	return progress.SinkFunc(func(e progress.Event) {
		switch e.Kind {
		case progress.Discovered:
			r.UpdateProgress(ProgressEvent{
				Stage:   StageSearching,
				Total:   e.Total,
				Message: pluralize(e.Total, "project") + " to search",
			})
		case progress.Completed:
			r.UpdateProgress(ProgressEvent{
				Stage:   StageSearching,
				Current: e.Done,
				Total:   e.Total,
			})
		case progress.ProjectFailed:
			r.AddError(ErrorEvent{
				Project: e.Project,
				Err:     errors.New(e.Error),
			})
		}
	})
}
