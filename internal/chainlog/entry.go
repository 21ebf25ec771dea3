package chainlog

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

// SentinelHash is the PreviousHash of the first entry in a chain.
const SentinelHash = "0"

// TimeLayout is the format of Entry.Timestamp.
const TimeLayout = "2006-01-02 15:04:05"

const (
	// recordFields is the number of fieldSep-delimited fields in a stored record.
	recordFields = 5
	fieldSep     = "|"
)

// Entry is a single record in the chain log.
type Entry struct {
	// Seq is the storage sequence number. It increases strictly along the
	// chain but may skip values where malformed records were dropped on load.
	// It is not part of the hashed content.
	Seq          uint64 `json:"seq"`
	Timestamp    string `json:"timestamp"`
	Text         string `json:"text"`
	Amount       string `json:"amount"`
	Hash         string `json:"hash"`
	PreviousHash string `json:"previous_hash"`
}

// Digest returns the lowercase hex SHA-256 of s.
func Digest(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// hashEntry computes the chain hash over an entry's content fields.
func hashEntry(e Entry) string {
	return Digest(e.Timestamp + "-" + e.Text + "-" + e.Amount + "-" + e.PreviousHash)
}

// Encode serializes e as "<timestamp>|<text>|<amount>|<hash>|<previousHash>".
// A '|' inside Text is not escaped and makes the record unreadable by Decode.
func Encode(e Entry) string {
	return strings.Join([]string{e.Timestamp, e.Text, e.Amount, e.Hash, e.PreviousHash}, fieldSep)
}

// Decode parses a stored record. It reports false when the record does not
// have exactly five fields.
func Decode(record string) (Entry, bool) {
	parts := strings.Split(record, fieldSep)
	if len(parts) != recordFields {
		return Entry{}, false
	}
	return Entry{
		Timestamp:    parts[0],
		Text:         parts[1],
		Amount:       parts[2],
		Hash:         parts[3],
		PreviousHash: parts[4],
	}, true
}

// Total sums the amounts of entries. Amounts that are not decimal numbers,
// which only a hand-edited store can contain, are skipped.
func Total(entries []Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		d, err := decimal.NewFromString(e.Amount)
		if err != nil {
			continue
		}
		sum = sum.Add(d)
	}
	return sum
}
