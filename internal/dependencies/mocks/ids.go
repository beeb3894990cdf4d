package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/futebolada/internal/dependencies/ids"
)

// MockIDs generates predictable sequential IDs for testing
type MockIDs struct {
	mu   sync.Mutex
	next int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a new MockIDs
func NewMockIDs() *MockIDs {
	return &MockIDs{}
}

// NewID returns id-0001, id-0002, ...
func (m *MockIDs) NewID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return fmt.Sprintf("id-%04d", m.next)
}
