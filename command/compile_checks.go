package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[IngestMessageMessage] = (*IngestMessageCommand)(nil)
)
