package query

import (
	"github.com/goliatone/go-inbox/core"
)

const (
	TypeListMessages = "inbox.query.messages.list"
	TypeGetStats     = "inbox.query.stats.get"
)

type ListMessagesMessage struct {
	Request core.ListRequest
}

func (ListMessagesMessage) Type() string { return TypeListMessages }

func (m ListMessagesMessage) Validate() error {
	if m.Request.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	if m.Request.Limit > core.MaxListLimit {
		return queryValidationError("limit", "limit must be <= 100")
	}
	if m.Request.Offset < 0 {
		return queryValidationError("offset", "offset must be >= 0")
	}
	return nil
}

type GetStatsMessage struct{}

func (GetStatsMessage) Type() string { return TypeGetStats }

func (GetStatsMessage) Validate() error { return nil }
