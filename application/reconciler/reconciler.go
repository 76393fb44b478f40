// Package reconciler folds push-channel notifications into the document
// store. It owns the active subscription scope: switching conversations
// or documents tears down the previous subscription before creating the
// next one, so events for a scope the user has left are never applied.
package reconciler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"flowsync/application/ports"
	"flowsync/application/store"
	"flowsync/domain/events"
	"flowsync/pkg/observability"
)

// Reconciler applies at-least-once, per-scope-FIFO change events
// idempotently. Records are keyed solely by id: an insert for an id the
// store already holds is a duplicate delivery and is dropped, an update
// for an unknown id is treated as an insert, and a delete for an absent
// id is a no-op.
type Reconciler struct {
	channel ports.PushChannel
	store   *store.DocumentStore
	logger  *zap.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	active events.Scope
}

func New(channel ports.PushChannel, docs *store.DocumentStore, logger *zap.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{
		channel: channel,
		store:   docs,
		logger:  logger,
		metrics: metrics,
	}
}

// Watch switches the active subscription to the given scope. The old
// subscription is torn down first; events that were already in flight
// for it are discarded by the stale-scope check in Handle.
func (r *Reconciler) Watch(ctx context.Context, scope events.Scope) error {
	r.mu.Lock()
	previous := r.active
	r.active = scope
	r.mu.Unlock()

	if !previous.IsZero() && previous != scope {
		if err := r.channel.Unsubscribe(previous); err != nil {
			r.logger.Warn("failed to tear down subscription", zap.String("scope", previous.String()), zap.Error(err))
		}
	}
	if scope.IsZero() || scope == previous {
		return nil
	}

	if err := r.channel.Subscribe(ctx, scope, r.Handle); err != nil {
		r.mu.Lock()
		if r.active == scope {
			r.active = events.Scope{}
		}
		r.mu.Unlock()
		return err
	}
	r.logger.Info("watching scope", zap.String("scope", scope.String()))
	return nil
}

// Stop tears down the active subscription, if any.
func (r *Reconciler) Stop() error {
	r.mu.Lock()
	scope := r.active
	r.active = events.Scope{}
	r.mu.Unlock()

	if scope.IsZero() {
		return nil
	}
	return r.channel.Unsubscribe(scope)
}

// Active returns the scope currently watched.
func (r *Reconciler) Active() events.Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Handle folds one change event into the store. Safe to call from the
// channel's reader goroutine.
func (r *Reconciler) Handle(event events.ChangeEvent) {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if event.Scope != active {
		// The user navigated away while this event was in flight.
		r.metrics.PushIgnored()
		r.logger.Debug("dropping event for stale scope",
			zap.String("scope", event.Scope.String()),
			zap.String("active", active.String()))
		return
	}

	switch event.Scope.Table {
	case events.TableMessages:
		r.applyMessage(event)
	case events.TableWorkflows:
		r.applyWorkflow(event)
	default:
		r.metrics.PushIgnored()
		r.logger.Warn("event for unknown table", zap.String("scope", event.Scope.String()))
	}
}

func (r *Reconciler) applyMessage(event events.ChangeEvent) {
	if event.Type == events.ChangeDelete {
		msg, err := event.Message()
		if err != nil {
			r.metrics.PushIgnored()
			r.logger.Warn("undecodable delete event", zap.Error(err))
			return
		}
		r.store.Apply(func(s *store.State) {
			if s.Session == nil || s.Session.ID != event.Scope.Key {
				return
			}
			s.Session.RemoveMessage(msg.ID)
		})
		r.metrics.PushApplied(string(event.Type))
		return
	}

	msg, err := event.Message()
	if err != nil {
		r.metrics.PushIgnored()
		r.logger.Warn("undecodable message event", zap.Error(err))
		return
	}

	duplicate := false
	r.store.Apply(func(s *store.State) {
		if s.Session == nil || s.Session.ID != event.Scope.Key {
			return
		}
		switch event.Type {
		case events.ChangeInsert:
			if !s.Session.InsertMessage(msg) {
				// Redelivery, or the record arrived via the submission
				// response first.
				duplicate = true
			}
		case events.ChangeUpdate:
			// A server record may replace the generating placeholder; an
			// update racing ahead of its insert degrades to an insert.
			if !s.Session.UpdateMessage(msg) {
				s.Session.InsertMessage(msg)
			}
		}
	})

	if duplicate {
		r.metrics.PushDuplicate()
		return
	}
	r.metrics.PushApplied(string(event.Type))
}

func (r *Reconciler) applyWorkflow(event events.ChangeEvent) {
	if event.Type == events.ChangeDelete {
		wf, err := event.Workflow()
		if err != nil {
			r.metrics.PushIgnored()
			r.logger.Warn("undecodable delete event", zap.Error(err))
			return
		}
		r.store.RemoveWorkflow(wf.ID)
		r.metrics.PushApplied(string(event.Type))
		return
	}

	wf, err := event.Workflow()
	if err != nil {
		r.metrics.PushIgnored()
		r.logger.Warn("undecodable workflow event", zap.Error(err))
		return
	}
	r.store.UpsertWorkflow(wf)
	r.metrics.PushApplied(string(event.Type))
}
