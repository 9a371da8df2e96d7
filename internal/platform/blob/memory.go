package blob

import (
	"context"
	"io"
	"path"
	"sync"
)

// MemoryStore keeps blobs in a map. Used by tests and by dev setups without a writable disk.
type MemoryStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemory() *MemoryStore {
	return &MemoryStore{files: map[string][]byte{}}
}

func (m *MemoryStore) Save(ctx context.Context, prefix, suggestedName string, r io.Reader) (string, error) {
	if !knownPrefix(prefix) {
		return "", ErrUnknownPrefix
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	ref := path.Join(PublicRoot, prefix, FileName(suggestedName))
	m.mu.Lock()
	m.files[ref] = data
	m.mu.Unlock()
	return ref, nil
}

func (m *MemoryStore) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	delete(m.files, ref)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[ref]
	return ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}
