package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/gitlab"
	"github.com/shkmv/gitlab-search-cli/internal/progress"
)

func TestDispatch_PreservesEnumerationOrder(t *testing.T) {
	// Given: projects that finish in reverse order
	projects := makeProjects(6)
	f := &fakeSearcher{
		delay: func(id int64) time.Duration { return time.Duration(7-id) * 5 * time.Millisecond },
		respond: func(id int64, _ int) ([]gitlab.Blob, error) {
			return blobsFor(id), nil
		},
	}

	// When: dispatching
	outcomes, err := NewDispatcher(f, Options{Retry: fastRetry()}).Dispatch(context.Background(), "q", projects)

	// Then: outcomes line up with the input
	require.NoError(t, err)
	require.Len(t, outcomes, 6)
	for i, o := range outcomes {
		assert.Equal(t, projects[i].ID, o.Project.ID)
		assert.Equal(t, StatusHits, o.Status())
	}
}

func TestDispatch_DeterministicUnderRandomLatency(t *testing.T) {
	// Given: the same backend with shuffled latencies on each run
	projects := makeProjects(12)
	run := func(seed int64) []byte {
		rng := rand.New(rand.NewSource(seed))
		delays := map[int64]time.Duration{}
		for _, p := range projects {
			delays[p.ID] = time.Duration(rng.Intn(15)) * time.Millisecond
		}
		f := &fakeSearcher{
			delay:   func(id int64) time.Duration { return delays[id] },
			respond: func(id int64, _ int) ([]gitlab.Blob, error) { return blobsFor(id), nil },
		}
		outcomes, err := NewDispatcher(f, Options{Concurrency: 4, Retry: fastRetry()}).Dispatch(context.Background(), "q", projects)
		require.NoError(t, err)
		data, err := json.Marshal(Aggregate(outcomes))
		require.NoError(t, err)
		return data
	}

	// When: running with different seeds
	first := run(1)

	// Then: every run produces identical output
	for seed := int64(2); seed <= 5; seed++ {
		assert.Equal(t, string(first), string(run(seed)), "seed %d", seed)
	}
}

func TestDispatch_ConcurrencyBound(t *testing.T) {
	// Given: W=3 workers and P=20 slow projects
	f := &fakeSearcher{
		delay: func(int64) time.Duration { return 10 * time.Millisecond },
	}

	// When: dispatching
	outcomes, err := NewDispatcher(f, Options{Concurrency: 3, Retry: fastRetry()}).
		Dispatch(context.Background(), "q", makeProjects(20))

	// Then: never more than W in flight, and the pool was actually used
	require.NoError(t, err)
	assert.Len(t, outcomes, 20)
	assert.LessOrEqual(t, f.maxInFlight.Load(), int32(3))
	assert.Equal(t, int32(3), f.maxInFlight.Load())
}

func TestDispatch_DefaultConcurrency(t *testing.T) {
	f := &fakeSearcher{delay: func(int64) time.Duration { return 5 * time.Millisecond }}

	_, err := NewDispatcher(f, Options{Retry: fastRetry()}).Dispatch(context.Background(), "q", makeProjects(30))

	require.NoError(t, err)
	assert.LessOrEqual(t, f.maxInFlight.Load(), int32(DefaultConcurrency))
}

func TestDispatch_PartialFailureIsolation(t *testing.T) {
	// Given: projects A, B, C where B always fails
	projects := []gitlab.Project{
		{ID: 1, PathWithNamespace: "g/a"},
		{ID: 2, PathWithNamespace: "g/b"},
		{ID: 3, PathWithNamespace: "g/c"},
	}
	f := &fakeSearcher{respond: func(id int64, _ int) ([]gitlab.Blob, error) {
		if id == 2 {
			return nil, gserrors.New(gserrors.ErrCodeServerError, "GET /projects/2/search: Internal Server Error", nil)
		}
		return blobsFor(id), nil
	}}
	var rec progress.Recorder

	// When: dispatching and aggregating
	outcomes, err := NewDispatcher(f, Options{Retry: fastRetry(), Progress: &rec}).
		Dispatch(context.Background(), "q", projects)
	require.NoError(t, err)
	res := Aggregate(outcomes)

	// Then: hits from A and C, one failure for B
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "g/b", res.Failed[0].Project.PathWithNamespace)
	assert.Contains(t, res.Failed[0].Error, "Internal Server Error")
	assert.Len(t, res.Hits, 4)
	for _, h := range res.Hits {
		assert.NotEqual(t, "g/b", h.Project)
	}

	// And: B used the whole retry budget and no more
	assert.Equal(t, 4, f.callsFor(2))
	assert.Equal(t, 1, f.callsFor(1))

	// And: failed + succeeded == projects
	succeeded := 0
	for _, o := range outcomes {
		if o.Status() != StatusFailed {
			succeeded++
		}
	}
	assert.Equal(t, len(projects), len(res.Failed)+succeeded)

	// And: one Completed per project and one ProjectFailed
	assert.Equal(t, 3, rec.Count(progress.Completed))
	assert.Equal(t, 1, rec.Count(progress.ProjectFailed))
	assert.Equal(t, 0, rec.Count(progress.Discovered))
}

func TestDispatch_FlagsFullPageAsTruncated(t *testing.T) {
	// Given: project 1 fills a whole search page, project 2 does not
	projects := makeProjects(2)
	f := &fakeSearcher{respond: func(id int64, _ int) ([]gitlab.Blob, error) {
		if id == 1 {
			full := make([]gitlab.Blob, gitlab.SearchPageSize)
			for i := range full {
				full[i] = gitlab.Blob{Path: fmt.Sprintf("f%03d.go", i), ProjectID: id}
			}
			return full, nil
		}
		return blobsFor(id), nil
	}}

	// When: dispatching and aggregating
	outcomes, err := NewDispatcher(f, Options{Retry: fastRetry()}).Dispatch(context.Background(), "q", projects)
	require.NoError(t, err)
	res := Aggregate(outcomes)

	// Then: only the full project is reported as cut off
	assert.True(t, outcomes[0].Truncated)
	assert.False(t, outcomes[1].Truncated)
	assert.Equal(t, []string{"group/p01"}, res.Truncated)
	assert.Len(t, res.Hits, gitlab.SearchPageSize+2)
}

func TestDispatch_ProjectFailedIdentifiesProject(t *testing.T) {
	// Given: two projects sharing a path-like name where only id 42 fails
	projects := []gitlab.Project{
		{ID: 41, PathWithNamespace: "g/svc"},
		{ID: 42, PathWithNamespace: "g/svc-legacy"},
	}
	f := &fakeSearcher{respond: func(id int64, _ int) ([]gitlab.Blob, error) {
		if id == 42 {
			return nil, gserrors.New(gserrors.ErrCodeHTTPStatus, "GET /projects/42/search: Forbidden", nil)
		}
		return nil, nil
	}}
	var rec progress.Recorder

	// When: dispatching
	_, err := NewDispatcher(f, Options{Retry: fastRetry(), Progress: &rec}).
		Dispatch(context.Background(), "q", projects)
	require.NoError(t, err)

	// Then: the failure event carries both id and path
	var failed []progress.Event
	for _, e := range rec.Events() {
		if e.Kind == progress.ProjectFailed {
			failed = append(failed, e)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, int64(42), failed[0].ProjectID)
	assert.Equal(t, "g/svc-legacy", failed[0].Project)
	assert.Contains(t, failed[0].Error, "Forbidden")
}

func TestDispatch_RetriesTransientFailureExactlyTwice(t *testing.T) {
	// Given: a search failing transiently twice, then succeeding
	f := &fakeSearcher{respond: func(_ int64, call int) ([]gitlab.Blob, error) {
		if call <= 2 {
			return nil, gserrors.TimeoutError("timed out", nil)
		}
		return blobsFor(1), nil
	}}

	// When: dispatching one project
	outcomes, err := NewDispatcher(f, Options{Retry: fastRetry()}).
		Dispatch(context.Background(), "q", makeProjects(1))

	// Then: three calls in total and a successful outcome
	require.NoError(t, err)
	assert.Equal(t, 3, f.callsFor(1))
	assert.Equal(t, StatusHits, outcomes[0].Status())
}

func TestDispatch_PermanentFailureNotRetried(t *testing.T) {
	f := &fakeSearcher{respond: func(int64, int) ([]gitlab.Blob, error) {
		return nil, gserrors.New(gserrors.ErrCodeUnauthorized, "forbidden", nil)
	}}

	outcomes, err := NewDispatcher(f, Options{Retry: fastRetry()}).
		Dispatch(context.Background(), "q", makeProjects(1))

	require.NoError(t, err)
	assert.Equal(t, 1, f.callsFor(1))
	assert.Equal(t, StatusFailed, outcomes[0].Status())
}

func TestDispatch_CompletedCounterIsExact(t *testing.T) {
	// Given: many fast projects, some failing
	f := &fakeSearcher{respond: func(id int64, _ int) ([]gitlab.Blob, error) {
		if id%5 == 0 {
			return nil, errors.New("permanent")
		}
		return nil, nil
	}}
	var rec progress.Recorder

	// When: dispatching
	_, err := NewDispatcher(f, Options{Concurrency: 6, Retry: fastRetry(), Progress: &rec}).
		Dispatch(context.Background(), "q", makeProjects(40))
	require.NoError(t, err)

	// Then: done values are exactly 1..40, each once, with the right total
	var done []int
	for _, e := range rec.Events() {
		if e.Kind == progress.Completed {
			assert.Equal(t, 40, e.Total)
			done = append(done, e.Done)
		}
	}
	sort.Ints(done)
	require.Len(t, done, 40)
	for i, d := range done {
		assert.Equal(t, i+1, d)
	}
	assert.Equal(t, 8, rec.Count(progress.ProjectFailed))
}

func TestDispatch_SingleProjectEmitsCompleted(t *testing.T) {
	var rec progress.Recorder
	f := &fakeSearcher{}

	outcomes, err := NewDispatcher(f, Options{Progress: &rec}).Dispatch(context.Background(), "q", makeProjects(1))

	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, outcomes[0].Status())
	assert.Equal(t, []progress.Event{{Kind: progress.Completed, Done: 1, Total: 1}}, rec.Events())
}

func TestDispatch_ZeroProjects(t *testing.T) {
	var rec progress.Recorder

	outcomes, err := NewDispatcher(&fakeSearcher{}, Options{Progress: &rec}).Dispatch(context.Background(), "q", nil)

	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Empty(t, rec.Events())
}

func TestDispatch_QueryPassedThrough(t *testing.T) {
	var got string
	s := searcherFunc(func(_ context.Context, _ int64, q string) ([]gitlab.Blob, error) {
		got = q
		return nil, nil
	})

	_, err := NewDispatcher(s, Options{}).Dispatch(context.Background(), `  "a b" && <c> `, makeProjects(1))

	require.NoError(t, err)
	assert.Equal(t, `  "a b" && <c> `, got)
}

func TestDispatch_CancellationDiscardsPartialResults(t *testing.T) {
	// Given: slow projects and a context cancelled mid-run
	f := &fakeSearcher{delay: func(int64) time.Duration { return 50 * time.Millisecond }}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(75*time.Millisecond, cancel)

	// When: dispatching more work than can finish
	start := time.Now()
	outcomes, err := NewDispatcher(f, Options{Concurrency: 2, Retry: fastRetry()}).Dispatch(ctx, "q", makeProjects(20))

	// Then: the context error is returned with no partial outcomes
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, outcomes)
	assert.Less(t, time.Since(start), 400*time.Millisecond)

	// And: not every project was started
	started := 0
	for id := int64(1); id <= 20; id++ {
		if f.callsFor(id) > 0 {
			started++
		}
	}
	assert.Less(t, started, 20)
}

type searcherFunc func(ctx context.Context, projectID int64, query string) ([]gitlab.Blob, error)

func (f searcherFunc) SearchBlobs(ctx context.Context, projectID int64, query string) ([]gitlab.Blob, error) {
	return f(ctx, projectID, query)
}
