package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "discovered", Discovered.String())
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "project_failed", ProjectFailed.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestOrNop_NilSinkIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		OrNop(nil).Emit(Event{Kind: Discovered, Total: 3})
	})
}

func TestRecorder_CountsByKind(t *testing.T) {
	// Given: a recorder fed by several goroutines
	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Emit(Event{Kind: Completed})
		}()
	}
	wg.Wait()
	r.Emit(Event{Kind: ProjectFailed, Project: "g/p", Error: "boom"})

	// Then: every event is kept
	assert.Equal(t, 20, r.Count(Completed))
	assert.Equal(t, 1, r.Count(ProjectFailed))
	assert.Len(t, r.Events(), 21)
}

func TestPump_DeliversInOrderOnOneGoroutine(t *testing.T) {
	// Given: a pump over a non-thread-safe slice
	var got []int
	p := NewPump(SinkFunc(func(e Event) { got = append(got, e.Done) }), 4)

	// When: emitting more events than the buffer holds, then closing
	for i := 1; i <= 50; i++ {
		p.Emit(Event{Kind: Completed, Done: i, Total: 50})
	}
	p.Close()

	// Then: all events arrive in emission order
	require.Len(t, got, 50)
	for i, d := range got {
		assert.Equal(t, i+1, d)
	}
}

func TestPump_EmitAfterCloseIsDropped(t *testing.T) {
	var r Recorder
	p := NewPump(&r, 0)
	p.Emit(Event{Kind: Discovered, Total: 1})
	p.Close()

	assert.NotPanics(t, func() { p.Emit(Event{Kind: Completed}) })
	p.Close()
	assert.Len(t, r.Events(), 1)
}
