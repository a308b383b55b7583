package storage

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-memory ObjectStore. It backs single-shot compiles
// that do not keep output between runs, and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
	runs    map[string][]string
}

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]*Object),
		runs:    make(map[string][]string),
	}
}

// Put stores an object and returns its content hash.
func (m *MemoryStore) Put(ctx context.Context, obj *Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := obj.Hash
	if hash == "" {
		hash = Hash(obj.Data)
	}
	if existing, ok := m.objects[hash]; ok {
		existing.Metadata.RefCount++
		existing.Metadata.LastAccessed = time.Now()
		return hash, nil
	}

	now := time.Now()
	stored := &Object{
		Hash: hash,
		Type: obj.Type,
		Size: int64(len(obj.Data)),
		Data: slices.Clone(obj.Data),
		Metadata: Metadata{
			CreatedAt:    now,
			LastAccessed: now,
			RefCount:     1,
			Custom:       make(map[string]string, len(obj.Metadata.Custom)),
		},
	}
	maps.Copy(stored.Metadata.Custom, obj.Metadata.Custom)
	m.objects[hash] = stored
	return hash, nil
}

// Get retrieves a copy of an object by its content hash.
func (m *MemoryStore) Get(_ context.Context, hash string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[hash]
	if !ok {
		return nil, ErrNotFound{Hash: hash}
	}
	obj.Metadata.LastAccessed = time.Now()
	out := *obj
	out.Data = slices.Clone(obj.Data)
	out.Metadata.Custom = maps.Clone(obj.Metadata.Custom)
	return &out, nil
}

// Exists checks if an object with the given hash exists.
func (m *MemoryStore) Exists(_ context.Context, hash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[hash]
	return ok, nil
}

// Delete removes an object by its content hash.
func (m *MemoryStore) Delete(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[hash]; !ok {
		return ErrNotFound{Hash: hash}
	}
	delete(m.objects, hash)
	return nil
}

// List returns all object hashes matching the given type filter, sorted.
func (m *MemoryStore) List(_ context.Context, objectType ObjectType) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for hash, obj := range m.objects {
		if objectType == "" || obj.Type == objectType {
			out = append(out, hash)
		}
	}
	slices.Sort(out)
	return out, nil
}

// AddRunRef associates a run ID with a set of object hashes.
func (m *MemoryStore) AddRunRef(_ context.Context, runID string, hashes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[runID] = slices.Clone(hashes)
	return nil
}

// RunRef returns the object hashes of a run.
func (m *MemoryStore) RunRef(_ context.Context, runID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.runs[runID]), nil
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Close releases resources.
func (m *MemoryStore) Close() error { return nil }

var (
	_ ObjectStore = (*FSStore)(nil)
	_ ObjectStore = (*MemoryStore)(nil)
)
