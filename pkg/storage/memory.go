package storage

import (
	"context"
	"sync"

	"github.com/rampart-fl/rampart/pkg/errors"
)

// Storage is the ordered key-value core the in-memory repositories are
// built on. Listings enumerate values in creation order, so pages stay
// stable between calls.
type Storage interface {
	Create(ctx context.Context, key string, value interface{}) error
	Get(ctx context.Context, key string) (interface{}, error)
	Update(ctx context.Context, key string, value interface{}) error
	List(ctx context.Context, offset, limit uint64) ([]interface{}, uint64, error)
	Delete(ctx context.Context, key string) error
}

// memStore is a map with stable iteration order. Listings page through
// entries oldest first, in the order they were created.
type memStore struct {
	mu    sync.RWMutex
	order []string
	items map[string]interface{}
}

func NewInMemoryStorage() Storage {
	return &memStore{
		items: make(map[string]interface{}),
	}
}

func (s *memStore) Create(_ context.Context, key string, value interface{}) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; ok {
		return errors.ErrEntityExists
	}
	s.items[key] = value
	s.order = append(s.order, key)

	return nil
}

func (s *memStore) Get(_ context.Context, key string) (interface{}, error) {
	if key == "" {
		return nil, errors.ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.items[key]
	if !ok {
		return nil, errors.ErrNotFound
	}

	return val, nil
}

func (s *memStore) Update(_ context.Context, key string, value interface{}) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return errors.ErrNotFound
	}
	s.items[key] = value

	return nil
}

func (s *memStore) List(_ context.Context, offset, limit uint64) ([]interface{}, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := uint64(len(s.order))
	if offset >= total {
		return nil, total, nil
	}

	end := min(offset+limit, total)
	page := make([]interface{}, 0, end-offset)
	for _, key := range s.order[offset:end] {
		page = append(page, s.items[key])
	}

	return page, total, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return nil
	}
	delete(s.items, key)

	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)

			break
		}
	}

	return nil
}
