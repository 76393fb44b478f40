package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowsync/domain/core/aggregates"
)

type flushRecorder struct {
	mu      sync.Mutex
	flushed []aggregates.Workflow
}

func (r *flushRecorder) flush(wf aggregates.Workflow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed = append(r.flushed, wf)
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flushed)
}

func (r *flushRecorder) last() aggregates.Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushed[len(r.flushed)-1]
}

func wfNamed(id, name string) aggregates.Workflow {
	return aggregates.Workflow{ID: id, Name: name}
}

func TestWriteScheduler_CoalescesBurst(t *testing.T) {
	rec := &flushRecorder{}
	s := NewWriteScheduler(30*time.Millisecond, rec.flush, zap.NewNop(), nil)

	// A burst of intents within the window must produce exactly one
	// write, carrying the last state seen.
	for i := 0; i < 10; i++ {
		s.Schedule(wfNamed("w1", string(rune('a'+i))))
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "j", rec.last().Name)

	// No second write after further quiescence.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestWriteScheduler_CancelOnSwitch(t *testing.T) {
	rec := &flushRecorder{}
	s := NewWriteScheduler(30*time.Millisecond, rec.flush, zap.NewNop(), nil)

	s.Schedule(wfNamed("w1", "abandoned"))
	s.Cancel("w1")

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, rec.count(), "cancelled write must never fire")
	assert.False(t, s.Pending())
}

func TestWriteScheduler_CancelIgnoresOtherDocument(t *testing.T) {
	rec := &flushRecorder{}
	s := NewWriteScheduler(20*time.Millisecond, rec.flush, zap.NewNop(), nil)

	s.Schedule(wfNamed("w1", "kept"))
	s.Cancel("w2")

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWriteScheduler_RescheduleAfterCancel(t *testing.T) {
	rec := &flushRecorder{}
	s := NewWriteScheduler(20*time.Millisecond, rec.flush, zap.NewNop(), nil)

	s.Schedule(wfNamed("w1", "first"))
	s.Cancel("")
	s.Schedule(wfNamed("w1", "second"))

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "second", rec.last().Name)
}

func TestWriteScheduler_FlushImmediate(t *testing.T) {
	rec := &flushRecorder{}
	s := NewWriteScheduler(time.Hour, rec.flush, zap.NewNop(), nil)

	s.Schedule(wfNamed("w1", "now"))
	s.Flush()

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, "now", rec.last().Name)

	// Flushing again with nothing pending is a no-op.
	s.Flush()
	assert.Equal(t, 1, rec.count())
}

func TestWriteScheduler_ScheduledStateIsIsolated(t *testing.T) {
	rec := &flushRecorder{}
	s := NewWriteScheduler(20*time.Millisecond, rec.flush, zap.NewNop(), nil)

	wf := wfNamed("w1", "before")
	s.Schedule(wf)
	wf.Name = "mutated-after-schedule"

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "before", rec.last().Name)
}
