package transport

import (
	"time"

	"github.com/goliatone/go-inbox/core"
)

type statusResponse struct {
	Status string `json:"status"`
}

type validationResponse struct {
	Status     string                `json:"status"`
	Violations []core.FieldViolation `json:"violations"`
}

type messagePayload struct {
	MessageID string  `json:"message_id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	TS        string  `json:"ts"`
	Text      *string `json:"text"`
}

type listResponse struct {
	Data   []messagePayload `json:"data"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type senderCountPayload struct {
	Sender string `json:"from"`
	Count  int    `json:"count"`
}

type statsResponse struct {
	TotalMessages     int                  `json:"total_messages"`
	SendersCount      int                  `json:"senders_count"`
	MessagesPerSender []senderCountPayload `json:"messages_per_sender"`
	FirstMessageTS    *string              `json:"first_message_ts"`
	LastMessageTS     *string              `json:"last_message_ts"`
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func messageToPayload(message core.Message) messagePayload {
	payload := messagePayload{
		MessageID: message.MessageID,
		From:      message.From,
		To:        message.To,
		TS:        message.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if message.Text != nil {
		value := *message.Text
		payload.Text = &value
	}
	return payload
}

func pageToResponse(page core.ListPage) listResponse {
	data := make([]messagePayload, 0, len(page.Items))
	for _, item := range page.Items {
		data = append(data, messageToPayload(item))
	}
	return listResponse{
		Data:   data,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
}

func statsToResponse(stats core.Stats) statsResponse {
	senders := make([]senderCountPayload, 0, len(stats.TopSenders))
	for _, entry := range stats.TopSenders {
		senders = append(senders, senderCountPayload{
			Sender: entry.Sender,
			Count:  entry.Count,
		})
	}
	return statsResponse{
		TotalMessages:     stats.TotalMessages,
		SendersCount:      stats.DistinctSenders,
		MessagesPerSender: senders,
		FirstMessageTS:    formatOptionalTS(stats.Earliest),
		LastMessageTS:     formatOptionalTS(stats.Latest),
	}
}

func formatOptionalTS(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(time.RFC3339Nano)
	return &formatted
}
