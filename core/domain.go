package core

import "time"

// Message is the persisted representation of a single inbound message.
// Rows are immutable once committed: there is no update or delete path.
type Message struct {
	ID         string
	MessageID  string
	From       string
	To         string
	Timestamp  time.Time
	Text       *string
	IngestedAt time.Time
}

// IngestRequest carries the raw inbound event exactly as received on the
// wire. Body must be the unmodified request bytes; the signature is
// computed over them, not over any re-serialized form.
type IngestRequest struct {
	Body      []byte
	Signature string
}

type IngestOutcome string

const (
	IngestOutcomeCreated          IngestOutcome = "created"
	IngestOutcomeDuplicate        IngestOutcome = "duplicate"
	IngestOutcomeInvalidSignature IngestOutcome = "invalid_signature"
	IngestOutcomeValidationError  IngestOutcome = "validation_error"
)

// IngestResult is the terminal state of one ingestion attempt. Message is
// populated for created and duplicate outcomes; for duplicates it carries
// the previously stored row, never the rejected attempt's fields.
// FieldErrors is populated only for validation_error outcomes.
type IngestResult struct {
	Outcome     IngestOutcome
	Message     Message
	FieldErrors []FieldViolation
}

// FieldViolation is one machine-readable validation failure.
type FieldViolation struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

type ListFilter struct {
	From  string
	Since *time.Time
	Query string
}

type ListRequest struct {
	Filter ListFilter
	Limit  int
	Offset int
}

// ListPage is one window of the deterministically ordered filtered result.
// Total counts every row matching the filter, ignoring the window.
type ListPage struct {
	Items  []Message
	Total  int
	Limit  int
	Offset int
}

type SenderCount struct {
	Sender string
	Count  int
}

// Stats is a consistent snapshot of the store's derived aggregates.
// Earliest and Latest are nil when the store is empty.
type Stats struct {
	TotalMessages   int
	DistinctSenders int
	TopSenders      []SenderCount
	Earliest        *time.Time
	Latest          *time.Time
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
	MaxTextLength    = 4096
	MaxTopSenders    = 10
)
