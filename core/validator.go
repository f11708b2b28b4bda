package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// WebhookPayload is the decoded shape of one inbound event. Unknown fields
// in the raw JSON are ignored for forward compatibility.
type WebhookPayload struct {
	MessageID string  `json:"message_id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	TS        string  `json:"ts"`
	Text      *string `json:"text"`
}

// msisdnPattern is the E.164-like contract: a plus sign followed by ASCII
// digits, nothing else.
var msisdnPattern = regexp.MustCompile(`^\+[0-9]+$`)

// DecodePayload parses raw webhook bytes. A body that is not a JSON object
// is reported as a single body-level violation so the caller can surface
// it through the same validation_error outcome as field failures.
func DecodePayload(body []byte) (WebhookPayload, []FieldViolation) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookPayload{}, []FieldViolation{{
			Location: "body",
			Message:  "payload must be a JSON object",
		}}
	}
	return payload, nil
}

// ValidatePayload checks every field rule and collects all violations
// rather than stopping at the first, so one response can report the full
// set. On success it returns the message candidate; IngestedAt is assigned
// later, at the moment of first persistence.
func ValidatePayload(payload WebhookPayload) (Message, []FieldViolation) {
	var violations []FieldViolation

	messageID := payload.MessageID
	if strings.TrimSpace(messageID) == "" {
		violations = append(violations, FieldViolation{
			Location: "message_id",
			Message:  "message_id is required and must be non-empty",
		})
	}

	if !msisdnPattern.MatchString(payload.From) {
		violations = append(violations, FieldViolation{
			Location: "from",
			Message:  "from must be E.164 format: + followed by digits",
		})
	}
	if !msisdnPattern.MatchString(payload.To) {
		violations = append(violations, FieldViolation{
			Location: "to",
			Message:  "to must be E.164 format: + followed by digits",
		})
	}

	timestamp, tsErr := parseUTCTimestamp(payload.TS)
	if tsErr != nil {
		violations = append(violations, FieldViolation{
			Location: "ts",
			Message:  tsErr.Error(),
		})
	}

	if payload.Text != nil && utf8.RuneCountInString(*payload.Text) > MaxTextLength {
		violations = append(violations, FieldViolation{
			Location: "text",
			Message:  fmt.Sprintf("text must be at most %d characters", MaxTextLength),
		})
	}

	if len(violations) > 0 {
		return Message{}, violations
	}

	return Message{
		MessageID: messageID,
		From:      payload.From,
		To:        payload.To,
		Timestamp: timestamp,
		Text:      payload.Text,
	}, nil
}

// ParseTimestamp exposes the ts parsing contract for callers that accept
// instants outside a webhook payload, such as list filters.
func ParseTimestamp(value string) (time.Time, error) {
	return parseUTCTimestamp(value)
}

// parseUTCTimestamp accepts RFC3339 instants carrying an explicit UTC
// designator (trailing Z or a +00:00 offset). Second or finer precision is
// preserved; non-UTC offsets are rejected.
func parseUTCTimestamp(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("ts is required")
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("ts must be an ISO-8601 timestamp, e.g. 2025-01-02T15:04:05Z")
	}
	if _, offset := parsed.Zone(); offset != 0 {
		return time.Time{}, fmt.Errorf("ts must carry an explicit UTC designator")
	}
	return parsed.UTC(), nil
}
