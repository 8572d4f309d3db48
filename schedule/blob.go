/*
blob.go - Persistence boundary for the action store

PURPOSE:
  The engine persists its whole store as one opaque blob under one key. The
  medium behind it (memory, a file, a SQLite row) is a collaborator the
  engine knows nothing about beyond Get and Put.

IMPLEMENTATIONS:
  - schedule/blob/memory.go: In-memory, for tests and dev
  - schedule/blob/file.go: One file per key, atomic rename
  - store/sqlite/sqlite.go: SQLite table of key/value rows

SEE ALSO:
  - records.go: RecordStore, the only caller
*/
package schedule

import "context"

// BlobStore is an opaque key-value store.
type BlobStore interface {
	// Get returns the blob under key. found is false when the key is absent.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)

	// Put replaces the blob under key.
	Put(ctx context.Context, key string, data []byte) error
}
