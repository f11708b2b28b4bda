package query

import (
	"context"

	"github.com/goliatone/go-inbox/core"
)

type MessageReader interface {
	ListMessages(ctx context.Context, req core.ListRequest) (core.ListPage, error)
}

type StatsReader interface {
	GetStats(ctx context.Context) (core.Stats, error)
}

type ListMessagesQuery struct {
	reader MessageReader
}

func NewListMessagesQuery(reader MessageReader) *ListMessagesQuery {
	return &ListMessagesQuery{reader: reader}
}

func (q *ListMessagesQuery) Query(ctx context.Context, msg ListMessagesMessage) (core.ListPage, error) {
	if q == nil || q.reader == nil {
		return core.ListPage{}, queryDependencyError("query: message reader is required")
	}
	return q.reader.ListMessages(ctx, msg.Request)
}

type GetStatsQuery struct {
	reader StatsReader
}

func NewGetStatsQuery(reader StatsReader) *GetStatsQuery {
	return &GetStatsQuery{reader: reader}
}

func (q *GetStatsQuery) Query(ctx context.Context, _ GetStatsMessage) (core.Stats, error) {
	if q == nil || q.reader == nil {
		return core.Stats{}, queryDependencyError("query: stats reader is required")
	}
	return q.reader.GetStats(ctx)
}
