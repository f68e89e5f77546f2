package credstore

import "sync"

// MemoryStore is an in-process Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu      sync.Mutex
	token   string
	profile []byte
	present bool
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (string, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return "", nil, nil
	}
	profile := make([]byte, len(m.profile))
	copy(profile, m.profile)
	return m.token, profile, nil
}

func (m *MemoryStore) Put(token string, profile []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.profile = append([]byte(nil), profile...)
	m.present = true
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.profile = nil
	m.present = false
	return nil
}

func (m *MemoryStore) Close() error { return nil }
