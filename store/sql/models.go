package sqlstore

import (
	"time"

	"github.com/goliatone/go-inbox/core"
	"github.com/uptrace/bun"
)

type messageRecord struct {
	bun.BaseModel `bun:"table:inbox_messages,alias:im"`

	ID         string    `bun:"id,pk"`
	MessageID  string    `bun:"message_id,notnull,unique"`
	From       string    `bun:"from_msisdn,notnull"`
	To         string    `bun:"to_msisdn,notnull"`
	Timestamp  time.Time `bun:"ts,notnull"`
	Text       *string   `bun:"text"`
	IngestedAt time.Time `bun:"ingested_at,nullzero,notnull,default:current_timestamp"`
}

func messageToDomain(record *messageRecord) core.Message {
	if record == nil {
		return core.Message{}
	}
	result := core.Message{
		ID:         record.ID,
		MessageID:  record.MessageID,
		From:       record.From,
		To:         record.To,
		Timestamp:  record.Timestamp.UTC(),
		IngestedAt: record.IngestedAt.UTC(),
	}
	if record.Text != nil {
		value := *record.Text
		result.Text = &value
	}
	return result
}

func messageFromDomain(message core.Message) *messageRecord {
	record := &messageRecord{
		ID:         message.ID,
		MessageID:  message.MessageID,
		From:       message.From,
		To:         message.To,
		Timestamp:  message.Timestamp.UTC(),
		IngestedAt: message.IngestedAt.UTC(),
	}
	if message.Text != nil {
		value := *message.Text
		record.Text = &value
	}
	return record
}
