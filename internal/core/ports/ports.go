package ports

import (
	"context"
	"errors"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// ErrScannerExhausted marks a finite source, such as a capture replay, that has
// nothing left to report. It is terminal for the scan loop but not a failure.
var ErrScannerExhausted = errors.New("scanner exhausted")

// Scanner defines the interface for advertisement capture adapters.
type Scanner interface {
	// Scan collects advertisements for at most timeout and returns them.
	// It respects context cancellation and returns what it has seen so far.
	Scan(ctx context.Context, timeout time.Duration) ([]domain.RawAdvertisement, error)

	// Name identifies the scanner in logs, metrics and scan summaries.
	Name() string
}

// LinkDriver performs the transport-level pair/connect/disconnect work for a speaker.
type LinkDriver interface {
	Pair(ctx context.Context, address string) error
	Connect(ctx context.Context, address string) error
	Disconnect(ctx context.Context, address string) error
}

// EventPublisher fans domain events out to interested sinks.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}
