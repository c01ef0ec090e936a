package storage

import (
	"context"
	"errors"
	"sync"

	quoteapp "github.com/quotedesk/backend/internal/application/quote"
)

// Ensure MemorySignatureStore implements SignatureStore
var _ quoteapp.SignatureStore = (*MemorySignatureStore)(nil)

// MemorySignatureStore keeps signature images in process memory.
// Use this for development and tests until a real S3 backend is configured;
// images do not survive a restart.
type MemorySignatureStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemorySignatureStore creates a new MemorySignatureStore
func NewMemorySignatureStore() *MemorySignatureStore {
	return &MemorySignatureStore{
		objects: make(map[string][]byte),
	}
}

// Put stores a signature image under the given key
func (s *MemorySignatureStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	if len(data) == 0 {
		return errors.New("payload is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf
	return nil
}

// Get retrieves a signature image by key
func (s *MemorySignatureStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("storage key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("signature image not found")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Len reports the number of stored images
func (s *MemorySignatureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
