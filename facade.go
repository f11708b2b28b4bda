package inbox

import (
	"fmt"

	inboxcommand "github.com/goliatone/go-inbox/command"
	inboxquery "github.com/goliatone/go-inbox/query"
)

// CommandQueryService is the surface the facade dispatches against. The
// core Service satisfies it, as does any stand-in a host wires instead.
type CommandQueryService interface {
	inboxcommand.MutatingService
	inboxquery.MessageReader
	inboxquery.StatsReader
}

type Commands struct {
	IngestMessage *inboxcommand.IngestMessageCommand
}

type Queries struct {
	ListMessages *inboxquery.ListMessagesQuery
	GetStats     *inboxquery.GetStatsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	messageReader inboxquery.MessageReader
	statsReader   inboxquery.StatsReader
}

// WithMessageReader routes list queries through a dedicated reader, e.g. a
// replica-backed store, instead of the command/query service itself.
func WithMessageReader(reader inboxquery.MessageReader) FacadeOption {
	return func(options *facadeOptions) {
		options.messageReader = reader
	}
}

func WithStatsReader(reader inboxquery.StatsReader) FacadeOption {
	return func(options *facadeOptions) {
		options.statsReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("inbox: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	messageReader := cfg.messageReader
	if messageReader == nil {
		messageReader = service
	}
	statsReader := cfg.statsReader
	if statsReader == nil {
		statsReader = service
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		IngestMessage: inboxcommand.NewIngestMessageCommand(service),
	}
	facade.queries = Queries{
		ListMessages: inboxquery.NewListMessagesQuery(messageReader),
		GetStats:     inboxquery.NewGetStatsQuery(statsReader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
