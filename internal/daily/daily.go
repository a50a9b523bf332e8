// Package daily derives the shared daily puzzle and records its results.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns a deterministic RNG seed for a date using HMAC(salt, YYYY-MM-DD).
// Every player gets the same board on the same UTC day.
func Seed(date time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes, sign bit cleared so the seed stays positive
	return int64(binary.BigEndian.Uint64(sum[:8]) &^ (1 << 63))
}

// Rand returns the random source for a date's board.
func Rand(date time.Time, salt string) *rand.Rand {
	return rand.New(rand.NewSource(Seed(date, salt)))
}
