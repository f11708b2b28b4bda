// Package core contains the inbox domain contracts, entities, and the
// ingestion pipeline. Lower-level adapters (storage, transport, metrics)
// must depend on this package; core must not depend on any of them.
package core
