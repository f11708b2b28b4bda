package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-inbox/core"
)

type MutatingService interface {
	Ingest(ctx context.Context, req core.IngestRequest) (core.IngestResult, error)
}

type IngestMessageCommand struct {
	service MutatingService
}

func NewIngestMessageCommand(service MutatingService) *IngestMessageCommand {
	return &IngestMessageCommand{service: service}
}

func (c *IngestMessageCommand) Execute(ctx context.Context, msg IngestMessageMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: ingest service is required")
	}
	out, err := c.service.Ingest(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
