package storage

import "context"

// ArchiveResult describes a stored snapshot object.
type ArchiveResult struct {
	Key      string
	Location string
	ETag     string
}

// SnapshotArchiver stores final tournament snapshots in object storage.
// Completed brackets are immutable, so a single put per tournament suffices.
type SnapshotArchiver interface {
	Archive(ctx context.Context, key string, body []byte) (*ArchiveResult, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}
