//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"flowsync/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideDomainConfig,
	ProvideDocumentStore,
	ProvideTokenSource,
	ProvideSessionRecovery,
	ProvideAPIClient,
	ProvideWorkflowAPI,
	ProvideChatAPI,
	ProvidePushChannel,
	ProvideReconciler,
	ProvideFlowValidator,
	ProvideSaveWorkflowHandler,
	ProvideScheduler,
	ProvideSendMessageHandler,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideFlowService,
	ProvideSyncService,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
