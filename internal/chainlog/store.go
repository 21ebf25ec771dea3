package chainlog

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmerrifield20/chainlog/internal/persistence"
	"go.uber.org/zap"
)

// Append outcomes passed to a MetricsRecorder.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// MetricsRecorder is an optional callback for recording append outcomes.
type MetricsRecorder func(result string)

// Store is the in-memory chain log backed by a persistence.Store.
type Store struct {
	backend persistence.Store
	logger  *zap.Logger

	// mu serialises Append and Load. entries and nextSeq are owned by the
	// holder of mu; readers only ever see the published view.
	mu      sync.Mutex
	entries []Entry
	nextSeq uint64
	view    atomic.Pointer[[]Entry]

	subMu sync.Mutex
	subs  map[chan []Entry]struct{}

	onMetrics MetricsRecorder
}

// New creates an empty Store on top of backend. Call Load to replay what the
// backend already holds, or use Open.
func New(backend persistence.Store, logger *zap.Logger) *Store {
	s := &Store{
		backend: backend,
		logger:  logger,
		subs:    make(map[chan []Entry]struct{}),
	}
	empty := []Entry{}
	s.view.Store(&empty)
	return s
}

// Open creates a Store and loads the records held by backend.
func Open(ctx context.Context, backend persistence.Store, logger *zap.Logger) (*Store, error) {
	s := New(backend, logger)
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// SetMetricsRecorder configures the append metrics callback.
func (s *Store) SetMetricsRecorder(fn MetricsRecorder) {
	s.onMetrics = fn
}

// Append validates the input, chains a new entry to the current head and
// persists it. The entry is visible to readers only once the backend has
// stored it; on any error the log is unchanged.
func (s *Store) Append(ctx context.Context, text, amount string, now time.Time) (Entry, error) {
	if err := validate(text, amount); err != nil {
		s.record(ResultInvalid)
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := SentinelHash
	if n := len(s.entries); n > 0 {
		prev = s.entries[n-1].Hash
	}

	entry := Entry{
		Seq:          s.nextSeq,
		Timestamp:    now.Format(TimeLayout),
		Text:         text,
		Amount:       amount,
		PreviousHash: prev,
	}
	entry.Hash = hashEntry(entry)

	if err := s.backend.Save(ctx, persistence.Record{Seq: entry.Seq, Value: Encode(entry)}); err != nil {
		s.record(ResultError)
		s.logger.Error("chain log append not persisted", zap.Uint64("seq", entry.Seq), zap.Error(err))
		return Entry{}, &PersistenceError{Op: "save", Err: err}
	}

	s.entries = append(s.entries, entry)
	s.nextSeq++
	s.publish()
	s.record(ResultOK)

	s.logger.Debug("chain log entry appended",
		zap.Uint64("seq", entry.Seq),
		zap.String("hash", entry.Hash),
		zap.String("previous_hash", entry.PreviousHash),
	)
	return entry, nil
}

// Load replaces the in-memory log with the records held by the backend,
// replayed in sequence order. Records that do not decode are dropped.
func (s *Store) Load(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.backend.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	// Backends already return Seq order; sorting keeps the guarantee local.
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })

	entries := make([]Entry, 0, len(recs))
	var next uint64
	dropped := 0
	for _, rec := range recs {
		if rec.Seq >= next {
			next = rec.Seq + 1
		}
		e, ok := Decode(rec.Value)
		if !ok {
			dropped++
			s.logger.Debug("dropping malformed record", zap.Uint64("seq", rec.Seq))
			continue
		}
		e.Seq = rec.Seq
		entries = append(entries, e)
	}

	s.entries = entries
	s.nextSeq = next
	s.publish()

	s.logger.Debug("chain log loaded",
		zap.Int("entries", len(entries)),
		zap.Int("dropped", dropped),
	)
	return slices.Clone(entries), nil
}

// Query returns the entries whose text or amount contains substr, ignoring
// case, oldest first. An empty substr matches every entry.
func (s *Store) Query(substr string) []Entry {
	view := s.snapshot()
	needle := strings.ToLower(substr)

	out := make([]Entry, 0, len(view))
	for _, e := range view {
		if strings.Contains(strings.ToLower(e.Text), needle) ||
			strings.Contains(strings.ToLower(e.Amount), needle) {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns a copy of the whole log, oldest first.
func (s *Store) Entries() []Entry {
	return slices.Clone(s.snapshot())
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.snapshot())
}

// Head returns the hash of the newest entry, or SentinelHash for an empty log.
func (s *Store) Head() string {
	view := s.snapshot()
	if len(view) == 0 {
		return SentinelHash
	}
	return view[len(view)-1].Hash
}

// Get returns the entry with the given sequence number.
func (s *Store) Get(seq uint64) (Entry, bool) {
	view := s.snapshot()
	i := sort.Search(len(view), func(i int) bool { return view[i].Seq >= seq })
	if i == len(view) || view[i].Seq != seq {
		return Entry{}, false
	}
	return view[i], true
}

// Subscribe returns a channel that receives a snapshot of the log now and
// after every successful append or load. A subscriber that falls behind only
// receives the latest snapshot. The channel is closed when ctx is done.
func (s *Store) Subscribe(ctx context.Context) <-chan []Entry {
	ch := make(chan []Entry, 1)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	offer(ch, s.Entries())
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.subMu.Unlock()
	}()
	return ch
}

// snapshot returns the published view. Its capacity equals its length, so an
// append by the caller never writes into the store's backing array.
func (s *Store) snapshot() []Entry {
	return *s.view.Load()
}

// publish swaps in a new view of s.entries and notifies subscribers.
// Callers hold s.mu.
func (s *Store) publish() {
	n := len(s.entries)
	view := s.entries[:n:n]
	s.view.Store(&view)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		offer(ch, slices.Clone(view))
	}
}

// offer delivers snap to ch, replacing a snapshot the subscriber has not read
// yet. Callers hold s.subMu, so no other sender races for the buffer slot.
func offer(ch chan []Entry, snap []Entry) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (s *Store) record(result string) {
	if s.onMetrics != nil {
		s.onMetrics(result)
	}
}
