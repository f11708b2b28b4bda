package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// MessageStore is the durable keyed collection of ingested messages. It
// owns the idempotency guarantee: Insert is an atomic insert-if-absent on
// MessageID, safe under concurrent callers racing on the same id.
type MessageStore interface {
	// Insert attempts to add the candidate row. When the message id is
	// already present it returns the stored row and duplicate=true; the
	// candidate's fields are discarded. Exactly one concurrent caller
	// per id observes duplicate=false.
	Insert(ctx context.Context, candidate Message) (Message, bool, error)
	List(ctx context.Context, req ListRequest) (ListPage, error)
	Stats(ctx context.Context) (Stats, error)
	// Ready reports whether the underlying storage medium answers a
	// trivial round trip.
	Ready(ctx context.Context) bool
}

// SignatureVerifier authenticates raw webhook bytes against the shared
// secret. A nil error means the signature matched.
type SignatureVerifier interface {
	Verify(ctx context.Context, body []byte, signature string) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// StoreProvider is implemented by repository factories that can hand the
// service its message store.
type StoreProvider interface {
	MessageStore() MessageStore
}

// RepositoryStoreFactory builds stores from a persistence client at
// service construction time.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}
