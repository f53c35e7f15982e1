// Package persistence writes position snapshots to durable storage. Two
// implementations exist, a JSON file sink and a Postgres sink.
package persistence

import (
	"context"

	"github.com/nightowl-labs/signal-trader/internal/types"
)

// Sink receives position snapshots. Persist is called after every lifecycle
// transition that changes a position; PersistAll is called on shutdown with
// the full book.
type Sink interface {
	Persist(ctx context.Context, position types.Position) error
	PersistAll(ctx context.Context, positions []types.Position) error
	Close() error
}
