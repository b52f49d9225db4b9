package session

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

// Source yields uniformly distributed integers in [0, n).
type Source interface {
	Intn(n int) int
}

// SecureSource draws from crypto/rand.
type SecureSource struct{}

// NewSecureSource returns the default identity source.
func NewSecureSource() *SecureSource {
	return &SecureSource{}
}

// Intn returns a value in [0, n). On a read failure it returns 0 rather than
// panicking inside a page callback.
func (s *SecureSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return int(binary.LittleEndian.Uint64(buf[:]) % uint64(n))
}

// InsecureSource is a seeded math/rand source. Tests use it for reproducible
// identities.
type InsecureSource struct {
	rnd *mrand.Rand
	mu  sync.Mutex
}

// NewInsecureSource creates a source from seed.
func NewInsecureSource(seed int64) *InsecureSource {
	return &InsecureSource{rnd: mrand.New(mrand.NewSource(seed))} //nolint:gosec // reproducible ids for tests
}

// Intn returns a value in [0, n).
func (s *InsecureSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}
