package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an ephemeral backend used when no file path or database is
// configured, and by the tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, name string, out any) {
	s.mu.RLock()
	raw, ok := s.data[name]
	s.mu.RUnlock()
	if !ok {
		return
	}
	// Malformed blob behaves as missing data, same as the durable backends.
	_ = json.Unmarshal(raw, out)
}

func (s *MemoryStore) Save(_ context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[name] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.data, name)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() {}

// Put injects a raw blob, bypassing marshalling. Tests use it to simulate
// corrupted storage.
func (s *MemoryStore) Put(name string, raw []byte) {
	s.mu.Lock()
	s.data[name] = raw
	s.mu.Unlock()
}
