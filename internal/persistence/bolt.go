package persistence

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// recordsBucket holds one key per record: the big-endian Seq. bbolt keeps keys
// sorted bytewise, so a cursor walk yields records in chain order.
var recordsBucket = []byte("records")

// BoltStore persists records to a local bbolt key-value file.
type BoltStore struct {
	db     *bolt.DB
	path   string
	logger *zap.Logger
}

// OpenBoltStore opens (creating if needed) the bbolt file at path.
// It fails after one second if another process holds the file lock.
func OpenBoltStore(path string, logger *zap.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	}); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("create records bucket: %w", err)
	}
	return &BoltStore{db: db, path: path, logger: logger}, nil
}

// Load implements Store.
func (s *BoltStore) Load(_ context.Context) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			if len(k) != 8 {
				s.logger.Debug("skipping foreign key in records bucket", zap.Binary("key", k))
				return nil
			}
			out = append(out, Record{Seq: binary.BigEndian.Uint64(k), Value: string(v)})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return out, nil
}

// Save implements Store. The write is fsynced before Save returns.
func (s *BoltStore) Save(_ context.Context, rec Record) error {
	key := seqKey(rec.Seq)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		if b.Get(key) != nil {
			return ErrSeqExists
		}
		return b.Put(key, []byte(rec.Value))
	})
	if err != nil {
		return fmt.Errorf("save seq %d: %w", rec.Seq, err)
	}
	s.logger.Debug("record saved", zap.Uint64("seq", rec.Seq), zap.String("path", s.path))
	return nil
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
