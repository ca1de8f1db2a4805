package telemetry

import (
	"context"
	"time"
)

// Adapter fetches one reading for one location from one provider. It must
// never return an error: provider failures come back as failure readings so
// the orchestrator sees a uniform shape.
type Adapter interface {
	// Name is the stable source id recorded in provenance and cache keys.
	Name() string
	// CacheTTL is how long a reading from this source stays fresh. Zero
	// disables caching for the source.
	CacheTTL() time.Duration
	Fetch(ctx context.Context, loc Location) Reading
}

// Cache stores serialized readings under a TTL. Implementations tolerate
// concurrent writes to the same key; a lost update only costs a later miss.
type Cache interface {
	Get(key string, ttl time.Duration) ([]byte, bool)
	Put(key string, data []byte) error
}

// RetryPolicy decides whether and when a transient failure is retried.
type RetryPolicy interface {
	ShouldRetry(code string, attempt int) bool
	Backoff(attempt int) time.Duration
}

// BlobStore persists run artifacts (CSV snapshots) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes run-completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
