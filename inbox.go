package inbox

import "github.com/goliatone/go-inbox/core"

type Config = core.Config
type ServerConfig = core.ServerConfig
type DatabaseConfig = core.DatabaseConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type MessageStore = core.MessageStore
type SignatureVerifier = core.SignatureVerifier
type MetricsRecorder = core.MetricsRecorder

type Message = core.Message
type IngestRequest = core.IngestRequest
type IngestResult = core.IngestResult
type IngestOutcome = core.IngestOutcome
type FieldViolation = core.FieldViolation

type ListFilter = core.ListFilter
type ListRequest = core.ListRequest
type ListPage = core.ListPage
type SenderCount = core.SenderCount
type Stats = core.Stats

const (
	IngestOutcomeCreated          = core.IngestOutcomeCreated
	IngestOutcomeDuplicate        = core.IngestOutcomeDuplicate
	IngestOutcomeInvalidSignature = core.IngestOutcomeInvalidSignature
	IngestOutcomeValidationError  = core.IngestOutcomeValidationError
)

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithSignatureVerifier = core.WithSignatureVerifier
	WithMessageStore      = core.WithMessageStore
	WithClock             = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
