package command

import (
	"github.com/goliatone/go-inbox/core"
)

const (
	TypeIngestMessage = "inbox.command.message.ingest"
)

// IngestMessageMessage carries one raw webhook delivery through the command
// bus. The body stays opaque here; decoding and field validation happen in
// the ingestion pipeline so every delivery outcome is counted there.
type IngestMessageMessage struct {
	Request core.IngestRequest
}

func (IngestMessageMessage) Type() string { return TypeIngestMessage }

func (m IngestMessageMessage) Validate() error {
	if len(m.Request.Body) == 0 {
		return commandValidationError("body", "request body is required")
	}
	return nil
}
