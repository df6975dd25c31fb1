package storage

import "sync"

// MemoryStore keeps its keys for the lifetime of the process only.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (st *MemoryStore) Get(key string) (string, bool, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	value, ok := st.data[key]
	return value, ok, nil
}

func (st *MemoryStore) Set(key, value string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.data[key] = value
	return nil
}

func (st *MemoryStore) Remove(key string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.data, key)
	return nil
}

func (st *MemoryStore) Clear() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.data = make(map[string]string)
	return nil
}

func (st *MemoryStore) Keys() ([]string, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	keys := make([]string, 0, len(st.data))
	for k := range st.data {
		keys = append(keys, k)
	}
	return keys, nil
}
