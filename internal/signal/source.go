package signal

import (
	"context"
	"time"
)

// Message is a raw chat message delivered by a source. The text may or may
// not contain a signal token; filtering and parsing happen downstream.
type Message struct {
	Text       string
	ReceivedAt time.Time
}

// Source delivers raw chat messages from an external channel. Implementations
// own the transport; consumers only read from the returned channel, which is
// closed when the context is cancelled or the source shuts down.
type Source interface {
	Listen(ctx context.Context) (<-chan Message, error)
	Close() error
}
