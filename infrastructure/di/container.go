package di

import (
	cmdbus "flowsync/application/commands/bus"
	"flowsync/application/ports"
	querybus "flowsync/application/queries/bus"
	"flowsync/application/reconciler"
	"flowsync/application/scheduler"
	"flowsync/application/services"
	"flowsync/application/store"
	"flowsync/infrastructure/config"
	"flowsync/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Store       *store.DocumentStore
	Scheduler   *scheduler.WriteScheduler
	Reconciler  *reconciler.Reconciler
	PushChannel ports.PushChannel
	CommandBus  *cmdbus.CommandBus
	QueryBus    *querybus.QueryBus
	SyncService *services.SyncService
	FlowService *services.FlowService
	Metrics     *observability.Metrics
}

// Close releases long-lived resources in reverse dependency order.
func (c *Container) Close() error {
	var firstErr error
	if c.SyncService != nil {
		firstErr = c.SyncService.Close()
	}
	if c.PushChannel != nil {
		if err := c.PushChannel.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
