package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// MemoryStore is an in-process Store. With decodeJSON set it hands JSON
// string values back already decoded (as map[string]any), the way hosted kv
// SDKs that auto-deserialize do.
type MemoryStore struct {
	mu         sync.RWMutex
	data       map[string]string
	decodeJSON bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

func NewDecodingMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	s.decodeJSON = true
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return s.read(val), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	var stored string
	switch v := value.(type) {
	case string:
		stored = v
	case []byte:
		stored = string(v)
	default:
		return fmt.Errorf("memory store: unsupported value type %T", value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = stored
	return nil
}

func (s *MemoryStore) Del(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return 0, nil
	}
	delete(s.data, key)
	return 1, nil
}

// Keys matches with glob semantics; keys are not expected to contain '/'.
func (s *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("memory store: invalid pattern [%s]", pattern)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for k := range s.data {
		if ok, _ := doublestar.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) MGet(_ context.Context, keys ...string) ([]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vals := make([]any, len(keys))
	for i, k := range keys {
		if val, ok := s.data[k]; ok {
			vals[i] = s.read(val)
		}
	}
	return vals, nil
}

func (s *MemoryStore) read(val string) any {
	if !s.decodeJSON {
		return val
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(val), &decoded); err != nil {
		return val
	}
	return decoded
}
