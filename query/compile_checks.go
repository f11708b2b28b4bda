package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-inbox/core"
)

var (
	_ gocmd.Querier[ListMessagesMessage, core.ListPage] = (*ListMessagesQuery)(nil)
	_ gocmd.Querier[GetStatsMessage, core.Stats]        = (*GetStatsQuery)(nil)
)
