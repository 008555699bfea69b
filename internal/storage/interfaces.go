package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
)

// EventHandler receives one log event from the ledger. It must not block.
type EventHandler func(*models.LedgerLogEvent)

// EventSource defines the interface for ledger log streaming
type EventSource interface {
	// Start begins streaming log events and blocks until ctx is done or Stop is called
	Start(ctx context.Context, handler EventHandler) error

	// Stop stops the event source
	Stop() error
}

// SeenStore records which triggering signatures have already been handled
type SeenStore interface {
	// MarkSeen records the signature and reports whether this is its first sighting
	MarkSeen(ctx context.Context, signature string) (bool, error)

	// Close releases the store
	io.Closer
}

// ReportPublisher fans out finished enrichment reports to other consumers
type ReportPublisher interface {
	// PublishReport publishes a report to the listings channels
	PublishReport(ctx context.Context, report *models.EnrichmentReport) error

	// Close closes the publisher connection
	io.Closer
}
