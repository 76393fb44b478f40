package di

import (
	"flowsync/application/commands"
	cmdbus "flowsync/application/commands/bus"
	commands_handlers "flowsync/application/commands/handlers"
	"flowsync/application/ports"
	"flowsync/application/queries"
	querybus "flowsync/application/queries/bus"
	queries_handlers "flowsync/application/queries/handlers"
	"flowsync/application/reconciler"
	"flowsync/application/scheduler"
	"flowsync/application/services"
	"flowsync/application/store"
	domconfig "flowsync/domain/config"
	"flowsync/domain/core/validators"
	"flowsync/infrastructure/api"
	"flowsync/infrastructure/config"
	"flowsync/infrastructure/realtime"
	"flowsync/infrastructure/supabase"
	"flowsync/pkg/auth"
	"flowsync/pkg/observability"

	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideMetrics creates the Prometheus metrics registry
func ProvideMetrics() *observability.Metrics {
	return observability.NewMetrics()
}

// ProvideDomainConfig derives the domain limits from the runtime config
func ProvideDomainConfig(cfg *config.Config) *domconfig.DomainConfig {
	dc := domconfig.DefaultDomainConfig()
	if cfg.QuiescenceWindow > 0 {
		dc.QuiescenceWindow = cfg.QuiescenceWindow
	}
	dc.EnableRealtimeSync = cfg.EnableRealtime
	return dc
}

// ProvideDocumentStore creates the canonical local document store
func ProvideDocumentStore(logger *zap.Logger) *store.DocumentStore {
	return store.NewDocumentStore(logger)
}

// ProvideTokenSource creates the refreshable token source seeded from config
func ProvideTokenSource(cfg *config.Config) *auth.RefreshableTokenSource {
	return auth.NewRefreshableTokenSource(cfg.AccessToken)
}

// ProvideSessionRecovery creates the auth recovery path. Without a Supabase
// project configured there is nothing to recover against, and auth failures
// surface directly to the caller.
func ProvideSessionRecovery(cfg *config.Config, tokens *auth.RefreshableTokenSource, logger *zap.Logger) (ports.SessionRecoverer, error) {
	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		logger.Info("session recovery disabled, no supabase project configured")
		return nil, nil
	}
	return supabase.NewSessionRecovery(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.RefreshToken, tokens, logger)
}

// ProvideAPIClient creates the HTTP client for the workflow service
func ProvideAPIClient(cfg *config.Config, tokens *auth.RefreshableTokenSource, recoverer ports.SessionRecoverer, logger *zap.Logger) *api.Client {
	return api.NewClient(cfg.APIBaseURL, tokens, recoverer, logger, api.Options{
		Timeout:          cfg.RequestTimeout,
		BreakerThreshold: cfg.BreakerThreshold,
	})
}

// ProvideWorkflowAPI exposes the HTTP client as the workflow port
func ProvideWorkflowAPI(client *api.Client) ports.WorkflowAPI {
	return client
}

// ProvideChatAPI exposes the HTTP client as the chat port
func ProvideChatAPI(client *api.Client) ports.ChatAPI {
	return client
}

// ProvidePushChannel creates the realtime websocket channel
func ProvidePushChannel(cfg *config.Config, tokens *auth.RefreshableTokenSource, logger *zap.Logger) ports.PushChannel {
	return realtime.NewClient(cfg.RealtimeEndpoint(), tokens, logger, realtime.Options{
		HeartbeatInterval: cfg.HeartbeatInterval,
		ReconnectBackoff:  cfg.ReconnectBackoff,
		MaxReconnectTries: cfg.MaxReconnectTries,
	})
}

// ProvideReconciler creates the push event reconciler
func ProvideReconciler(channel ports.PushChannel, docs *store.DocumentStore, logger *zap.Logger, metrics *observability.Metrics) *reconciler.Reconciler {
	return reconciler.New(channel, docs, logger, metrics)
}

// ProvideFlowValidator creates the flow structure validator
func ProvideFlowValidator() *validators.FlowValidator {
	return validators.NewFlowValidator()
}

// ProvideSaveWorkflowHandler creates the debounced save handler
func ProvideSaveWorkflowHandler(workflowAPI ports.WorkflowAPI, docs *store.DocumentStore, logger *zap.Logger, metrics *observability.Metrics) *commands_handlers.SaveWorkflowHandler {
	return commands_handlers.NewSaveWorkflowHandler(workflowAPI, docs, logger, metrics)
}

// ProvideScheduler creates the write scheduler flushing through the save handler
func ProvideScheduler(dc *domconfig.DomainConfig, saveHandler *commands_handlers.SaveWorkflowHandler, logger *zap.Logger, metrics *observability.Metrics) *scheduler.WriteScheduler {
	return scheduler.NewWriteScheduler(dc.QuiescenceWindow, saveHandler.FlushFunc(), logger, metrics)
}

// ProvideSendMessageHandler creates the optimistic message pipeline
func ProvideSendMessageHandler(chat ports.ChatAPI, docs *store.DocumentStore, logger *zap.Logger, metrics *observability.Metrics) *commands_handlers.SendMessageHandler {
	return commands_handlers.NewSendMessageHandler(chat, docs, logger, metrics)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	saveHandler *commands_handlers.SaveWorkflowHandler,
	sendHandler *commands_handlers.SendMessageHandler,
	chat ports.ChatAPI,
	workflowAPI ports.WorkflowAPI,
	docs *store.DocumentStore,
	validator *validators.FlowValidator,
	logger *zap.Logger,
) (*cmdbus.CommandBus, error) {
	commandBus := cmdbus.NewCommandBus()

	if err := commandBus.Register(commands.SaveWorkflowCommand{}, saveHandler); err != nil {
		return nil, err
	}
	if err := commandBus.Register(commands.SendMessageCommand{}, sendHandler); err != nil {
		return nil, err
	}
	if err := commandBus.Register(commands.SendFirstMessageCommand{}, sendHandler); err != nil {
		return nil, err
	}

	createHandler := commands_handlers.NewCreateSessionHandler(chat, docs, logger)
	if err := commandBus.Register(commands.CreateSessionCommand{}, createHandler); err != nil {
		return nil, err
	}

	executeHandler := commands_handlers.NewExecuteWorkflowHandler(workflowAPI, docs, validator, logger)
	if err := commandBus.Register(commands.ExecuteWorkflowCommand{}, executeHandler); err != nil {
		return nil, err
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	workflowAPI ports.WorkflowAPI,
	chat ports.ChatAPI,
	docs *store.DocumentStore,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	if err := queryBus.Register(queries.ListWorkflowsQuery{}, queries_handlers.NewListWorkflowsHandler(workflowAPI, docs, logger)); err != nil {
		return nil, err
	}
	if err := queryBus.Register(queries.GetWorkflowQuery{}, queries_handlers.NewGetWorkflowHandler(workflowAPI, docs, logger)); err != nil {
		return nil, err
	}
	if err := queryBus.Register(queries.ListMessagesQuery{}, queries_handlers.NewListMessagesHandler(chat, docs, logger)); err != nil {
		return nil, err
	}

	return queryBus, nil
}

// ProvideFlowService creates the flow editing service
func ProvideFlowService(docs *store.DocumentStore, sched *scheduler.WriteScheduler, dc *domconfig.DomainConfig, logger *zap.Logger) *services.FlowService {
	return services.NewFlowService(docs, sched, dc, logger)
}

// ProvideSyncService creates the synchronization facade
func ProvideSyncService(
	commandBus *cmdbus.CommandBus,
	queryBus *querybus.QueryBus,
	docs *store.DocumentStore,
	sched *scheduler.WriteScheduler,
	rec *reconciler.Reconciler,
	sender *commands_handlers.SendMessageHandler,
	logger *zap.Logger,
) *services.SyncService {
	return services.NewSyncService(commandBus, queryBus, docs, sched, rec, sender, logger)
}
