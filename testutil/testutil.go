package testutil

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 ,.;:-_"

// Line returns a random printable line of length n. It never contains '\r'
// or '\n'.
func (r *RNG) Line(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.line(n)
}

func (r *RNG) line(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.rand.Intn(len(alphabet))]
	}
	return string(b)
}

// Lines returns count random lines with lengths in [minLen, maxLen].
// Locks only once per call.
func (r *RNG) Lines(count, minLen, maxLen int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, count)
	for i := range out {
		out[i] = r.line(minLen + r.rand.Intn(maxLen-minLen+1))
	}
	return out
}

// Join concatenates lines with sep, appending a final sep when trailing is
// set.
func Join(lines []string, sep string, trailing bool) string {
	s := strings.Join(lines, sep)
	if trailing && len(lines) > 0 {
		s += sep
	}
	return s
}

// SplitRecords returns the records of content: the pieces between
// separators, without an empty record after a trailing separator. An empty
// content has no records.
func SplitRecords(content, sep string) []string {
	if content == "" {
		return []string{}
	}
	parts := strings.Split(content, sep)
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// WriteFile writes content to a new file in a per-test temporary directory
// and returns its path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
