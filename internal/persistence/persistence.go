// Package persistence stores the serialized records of a chain log.
//
// Records are opaque strings to every backend. Each one is saved together with
// its chain position (Seq) so that Load can always return records in append
// order, whatever the backend's native iteration order is.
//
// Three implementations of the Store interface are provided:
//   - MemoryStore: in-process, for testing and throwaway sessions.
//   - BoltStore: a local key-value file, the default backend.
//   - PostgresStore: a single PostgreSQL table.
package persistence

import (
	"context"
	"errors"
)

// ErrSeqExists is returned by Save when a record already occupies the sequence
// number. Stores never overwrite a record.
var ErrSeqExists = errors.New("sequence number already stored")

// Record is a serialized log entry and its position in the chain.
type Record struct {
	Seq   uint64
	Value string
}

// Store is the durable side of a chain log.
type Store interface {
	// Load returns every stored record ordered by Seq.
	Load(ctx context.Context) ([]Record, error)

	// Save durably stores a new record. It returns ErrSeqExists when the
	// sequence number is taken.
	Save(ctx context.Context, rec Record) error

	// Close releases the backend.
	Close() error
}
