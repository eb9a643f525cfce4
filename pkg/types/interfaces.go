package types

import (
	"context"
	"time"
)

// Cache defines the directory-listing/stat cache interface sitting in front
// of readdir/stat, keyed by (root_key, parent_path).
type Cache interface {
	Get(rootKey, parentPath string) ([]DirEntry, bool)
	Put(rootKey, parentPath string, entries []DirEntry)
	Invalidate(rootKey, parentPath string)
	Size() int64
	Stats() CacheStats
}

// MetricsCollector defines the metrics collection interface shared by the
// VFS engine, DocService, and SigningRelay.
type MetricsCollector interface {
	RecordOperation(operation string, duration time.Duration, size int64, success bool)
	RecordCacheHit(key string, size int64)
	RecordCacheMiss(key string, size int64)
	RecordError(operation string, err error)
	GetMetrics() map[string]interface{}
}

// HealthChecker defines health monitoring interface.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
	RegisterCheck(name string, check func(context.Context) error)
	GetStatus() map[string]HealthStatus
}

// ConnectionManager defines Store connection pool management.
type ConnectionManager interface {
	HealthCheck(ctx context.Context) error
	GetStats() ConnectionStats
}

// Verifier checks a signed chat/signaling message's ECDSA signature. It is
// consumed, not implemented, by SigningRelay: the cryptographic primitive
// lives outside this module's scope (spec.md §1).
type Verifier interface {
	// Verify reports whether signature is a valid ECDSA signature over the
	// canonical JSON encoding of payload (keys sorted, signature/publicKey
	// fields removed) under publicKey.
	Verify(publicKey string, payload []byte, signature string) bool
}
