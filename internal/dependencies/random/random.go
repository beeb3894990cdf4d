package random

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Random provides random number generation that can be mocked for testing
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Intn returns a cryptographically random int in [0, n)
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	result, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(result.Int64())
}

// Duration returns a random duration in [min, max] at millisecond granularity
func Duration(r Random, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := int((max - min) / time.Millisecond)
	return min + time.Duration(r.Intn(span+1))*time.Millisecond
}
