package workspace

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("class not found")

type Store interface {
	Get(ctx context.Context, id string) (Class, error)
	Put(ctx context.Context, c Class) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Class, error)
}

type memoryStore struct {
	mu      sync.RWMutex
	classes map[string]Class
}

func NewMemoryStore() Store {
	return &memoryStore{classes: map[string]Class{}}
}

func (m *memoryStore) Get(_ context.Context, id string) (Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[id]
	if !ok {
		return Class{}, ErrNotFound
	}
	return c.Clone(), nil
}

func (m *memoryStore) Put(_ context.Context, c Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[c.ID] = c.Clone()
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[id]; !ok {
		return ErrNotFound
	}
	delete(m.classes, id)
	return nil
}

func (m *memoryStore) List(_ context.Context) ([]Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Class, 0, len(m.classes))
	for _, c := range m.classes {
		out = append(out, c.Clone())
	}
	sortClasses(out)
	return out, nil
}

// most recently updated first
func sortClasses(cs []Class) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].UpdatedAt != cs[j].UpdatedAt {
			return cs[i].UpdatedAt > cs[j].UpdatedAt
		}
		return cs[i].ID < cs[j].ID
	})
}
