// Package scheduler coalesces bursts of local edits into at most one
// outbound write per document per quiescence window.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"flowsync/domain/core/aggregates"
	"flowsync/pkg/observability"
)

// DefaultQuiescenceWindow is the debounce delay measured from the most
// recent save intent.
const DefaultQuiescenceWindow = 500 * time.Millisecond

// FlushFunc receives the last state seen before the window elapsed.
// Intermediate states were discarded: whole-document last-writer-wins
// makes them non-observable anyway.
type FlushFunc func(wf aggregates.Workflow)

// WriteScheduler is a classic debounce, not a throttle: every new intent
// resets the timer, so a drag gesture producing dozens of intents ends in
// exactly one write.
type WriteScheduler struct {
	mu      sync.Mutex
	window  time.Duration
	timer   *time.Timer
	pending *aggregates.Workflow
	gen     uint64

	flush   FlushFunc
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewWriteScheduler creates a scheduler delivering coalesced states to
// flush. A non-positive window falls back to the default.
func NewWriteScheduler(window time.Duration, flush FlushFunc, logger *zap.Logger, metrics *observability.Metrics) *WriteScheduler {
	if window <= 0 {
		window = DefaultQuiescenceWindow
	}
	return &WriteScheduler{
		window:  window,
		flush:   flush,
		logger:  logger,
		metrics: metrics,
	}
}

// Schedule records a save intent carrying the full current document state
// and restarts the quiescence timer.
func (s *WriteScheduler) Schedule(wf aggregates.Workflow) {
	clone := wf.Clone()

	s.mu.Lock()
	if s.pending != nil {
		if s.pending.ID != wf.ID {
			// A pending write for another document should have been
			// cancelled on deselection; superseding it here keeps the
			// one-in-flight invariant.
			s.logger.Warn("superseding pending write for different document",
				zap.String("pending", s.pending.ID),
				zap.String("scheduled", wf.ID),
			)
		}
		s.metrics.WriteCoalesced()
	}
	s.pending = &clone
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.window, func() {
		s.fire(gen)
	})
	s.mu.Unlock()
}

// Cancel suppresses the pending write for the given document id. An empty
// id cancels whatever is pending. Tied to the document-selection
// lifecycle: navigating away must not leave a timer that writes a
// deselected document.
func (s *WriteScheduler) Cancel(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return
	}
	if documentID != "" && s.pending.ID != documentID {
		return
	}
	s.pending = nil
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.metrics.WriteCancelled()
}

// Flush writes the pending state immediately, if any. Used for explicit
// saves and shutdown.
func (s *WriteScheduler) Flush() {
	s.mu.Lock()
	wf := s.pending
	s.pending = nil
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if wf != nil {
		s.flush(*wf)
	}
}

// Pending reports whether a write is waiting for the window to elapse.
func (s *WriteScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// SetWindow updates the quiescence window for subsequent intents. Used by
// the dynamic-config watcher.
func (s *WriteScheduler) SetWindow(window time.Duration) {
	if window <= 0 {
		return
	}
	s.mu.Lock()
	s.window = window
	s.mu.Unlock()
}

func (s *WriteScheduler) fire(gen uint64) {
	s.mu.Lock()
	// A Stop that loses the race with AfterFunc lands here with a stale
	// generation; the write was cancelled or superseded.
	if gen != s.gen || s.pending == nil {
		s.mu.Unlock()
		return
	}
	wf := *s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	// The flush sink owns the issued-write counter; it sees the outcome.
	s.flush(wf)
}
