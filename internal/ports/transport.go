package ports

import (
	"context"
	"net/http"
	"time"

	"github.com/bft-labs/telship/internal/domain"
)

// Transport delivers one batch to the collector.
// Implementations never return errors directly: every failure is classified
// into a domain.Outcome so the scheduler can switch on it exhaustively.
type Transport interface {
	Send(ctx context.Context, data []byte, metadata UploadMetadata) domain.Outcome
}

// UploadMetadata provides context for one upload attempt.
// This information is included in HTTP headers for server-side tracking.
type UploadMetadata struct {
	// RequestID uniquely identifies the attempt.
	RequestID string

	// Feature is the producer stream the batch belongs to (e.g. "logs").
	Feature string

	// ServerTimeOffset is the current server time correction.
	ServerTimeOffset time.Duration
}

// HTTPClient is the part of *http.Client the HTTP transport uses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
