package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/gitlab"
)

// fakeSearcher is an instrumented Searcher. respond receives the 1-based
// call number for the project.
type fakeSearcher struct {
	respond func(projectID int64, call int) ([]gitlab.Blob, error)
	delay   func(projectID int64) time.Duration

	mu    sync.Mutex
	calls map[int64]int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeSearcher) SearchBlobs(ctx context.Context, projectID int64, query string) ([]gitlab.Blob, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[int64]int{}
	}
	f.calls[projectID]++
	call := f.calls[projectID]
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(projectID)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.respond == nil {
		return nil, nil
	}
	return f.respond(projectID, call)
}

func (f *fakeSearcher) callsFor(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func makeProjects(n int) []gitlab.Project {
	out := make([]gitlab.Project, n)
	for i := range out {
		out[i] = gitlab.Project{ID: int64(i + 1), PathWithNamespace: fmt.Sprintf("group/p%02d", i+1)}
	}
	return out
}

func line(n int) *int { return &n }

// blobsFor returns two hits per project, in reverse file order so sorting is
// observable.
func blobsFor(projectID int64) []gitlab.Blob {
	return []gitlab.Blob{
		{Path: "z.go", Data: fmt.Sprintf("z%d", projectID), StartLine: line(3), ProjectID: projectID},
		{Path: "a.go", Data: fmt.Sprintf("a%d", projectID), StartLine: line(10), ProjectID: projectID},
	}
}

func fastRetry() *gserrors.RetryConfig {
	return &gserrors.RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}
