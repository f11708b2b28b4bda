package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Service orchestrates the ingestion pipeline (verify, validate, persist)
// and serves the read paths from the same store.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	verifier          SignatureVerifier
	store             MessageStore
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	Verifier          SignatureVerifier
	MessageStore      MessageStore
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("inbox", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("inbox"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time {
			return time.Now().UTC()
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.messageStore == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				builder.messageStore = storeProvider.MessageStore()
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			builder.messageStore = storeProvider.MessageStore()
		}
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		verifier:          builder.verifier,
		store:             builder.messageStore,
		now:               builder.now,
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		Verifier:          s.verifier,
		MessageStore:      s.store,
	}
}

// Ingest runs the pipeline for one inbound event. The four terminal
// outcomes come back as values; the error return is reserved for storage
// or wiring failures. Nothing is persisted on invalid_signature or
// validation_error, and a duplicate performs no second write.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	startedAt := time.Now()
	if s == nil {
		return IngestResult{}, goerrors.New("core: service is nil", goerrors.CategoryInternal).
			WithTextCode(InboxErrorInternal)
	}
	if s.verifier == nil {
		return IngestResult{}, s.mapError(s.errorFactory("core: signature verifier is not configured", goerrors.CategoryInternal))
	}
	if s.store == nil {
		return IngestResult{}, s.mapError(s.errorFactory("core: message store is not configured", goerrors.CategoryInternal))
	}

	if err := s.verifier.Verify(ctx, req.Body, req.Signature); err != nil {
		result := IngestResult{Outcome: IngestOutcomeInvalidSignature}
		s.observeIngest(ctx, startedAt, result, nil, map[string]any{})
		return result, nil
	}

	payload, violations := DecodePayload(req.Body)
	var candidate Message
	if len(violations) == 0 {
		candidate, violations = ValidatePayload(payload)
	}
	if len(violations) > 0 {
		result := IngestResult{
			Outcome:     IngestOutcomeValidationError,
			FieldErrors: violations,
		}
		s.observeIngest(ctx, startedAt, result, nil, map[string]any{
			"violations": len(violations),
		})
		return result, nil
	}

	candidate.ID = uuid.NewString()
	candidate.IngestedAt = s.now()

	stored, duplicate, err := s.store.Insert(ctx, candidate)
	if err != nil {
		mapped := s.mapError(err)
		s.observeIngest(ctx, startedAt, IngestResult{}, mapped, map[string]any{
			"message_id": candidate.MessageID,
		})
		return IngestResult{}, mapped
	}

	outcome := IngestOutcomeCreated
	if duplicate {
		outcome = IngestOutcomeDuplicate
	}
	result := IngestResult{Outcome: outcome, Message: stored}
	s.observeIngest(ctx, startedAt, result, nil, map[string]any{
		"message_id": stored.MessageID,
		"dup":        duplicate,
	})
	return result, nil
}

// ListMessages serves the filtered, paginated read path. Callers bound the
// query with a context deadline; reads never mutate, so a timeout fails
// clean.
func (s *Service) ListMessages(ctx context.Context, req ListRequest) (ListPage, error) {
	startedAt := time.Now()
	if s == nil || s.store == nil {
		return ListPage{}, goerrors.New("core: message store is not configured", goerrors.CategoryInternal).
			WithTextCode(InboxErrorNotConfigured)
	}
	if req.Limit <= 0 {
		req.Limit = DefaultListLimit
	}
	if req.Limit > MaxListLimit {
		return ListPage{}, s.mapError(s.errorFactory("core: limit is invalid", goerrors.CategoryBadInput))
	}
	if req.Offset < 0 {
		return ListPage{}, s.mapError(s.errorFactory("core: offset is invalid", goerrors.CategoryBadInput))
	}

	page, err := s.store.List(ctx, req)
	if err != nil {
		mapped := s.mapError(err)
		s.observeOperation(ctx, startedAt, "messages_list", mapped, map[string]any{})
		return ListPage{}, mapped
	}
	s.observeOperation(ctx, startedAt, "messages_list", nil, map[string]any{
		"total":    page.Total,
		"returned": len(page.Items),
	})
	return page, nil
}

func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	startedAt := time.Now()
	if s == nil || s.store == nil {
		return Stats{}, goerrors.New("core: message store is not configured", goerrors.CategoryInternal).
			WithTextCode(InboxErrorNotConfigured)
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		mapped := s.mapError(err)
		s.observeOperation(ctx, startedAt, "stats", mapped, map[string]any{})
		return Stats{}, mapped
	}
	s.observeOperation(ctx, startedAt, "stats", nil, map[string]any{
		"total_messages": stats.TotalMessages,
	})
	return stats, nil
}

// Ready reports storage reachability only; the secret-configured check
// belongs to the health-check collaborator.
func (s *Service) Ready(ctx context.Context) bool {
	if s == nil || s.store == nil {
		return false
	}
	return s.store.Ready(ctx)
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
