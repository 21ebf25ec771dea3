package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation.
// Nothing survives the process; it is used by tests and by --store memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uint64]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uint64]string)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for seq, v := range s.records {
		out = append(out, Record{Seq: seq, Value: v})
	}
	// map iteration order is random; the sequence number is the ordering key.
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Seq]; ok {
		return fmt.Errorf("save seq %d: %w", rec.Seq, ErrSeqExists)
	}
	s.records[rec.Seq] = rec.Value
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Put stores a raw record without any checks. Tests use it to seed records a
// chain log would never write itself.
func (s *MemoryStore) Put(seq uint64, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[seq] = value
}
