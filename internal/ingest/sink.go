package ingest

import "context"

// Sink mirrors a stored report into a secondary store.
// Sink failures are logged and never fail the ingestion.
type Sink interface {
	Name() string
	Write(ctx context.Context, r *Record) error
}
