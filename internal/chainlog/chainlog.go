// Package chainlog implements an append-only, hash-chained log of notes with
// an associated amount.
//
// Every entry records the SHA-256 of its predecessor; the first entry points at
// SentinelHash ("0"). Entries are persisted through a persistence.Store as
// pipe-delimited records keyed by a sequence number, and are replayed in that
// sequence order when the log is opened.
//
// Appends are serialised and only become visible once the backend has stored
// them. Readers work on immutable snapshots and never wait for an append.
package chainlog
