package port

import (
	"context"

	"greenlens/internal/domain"
)

// ProgressStream is one open server-push channel for a ticket.
// Events is closed when the stream ends; Err is valid afterwards and is nil
// when the stream was closed by its owner.
type ProgressStream interface {
	Events() <-chan domain.ProgressEvent
	Err() error
	Close()
}

// StreamOpener opens progress streams keyed by upload identifier.
type StreamOpener interface {
	Open(ctx context.Context, identifier string) (ProgressStream, error)
}
