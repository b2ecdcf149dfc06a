// Package inmem is a cache.Store that keeps entries in memory for the life of
// the process.
package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dekarrin/monmsg/internal/cache"
	"github.com/google/uuid"
)

func NewDatastore() *Store {
	return &Store{
		entries: make(map[string]cache.Entry),
	}
}

type Store struct {
	mtx     sync.Mutex
	entries map[string]cache.Entry
}

func (s *Store) Get(ctx context.Context, key string) (cache.Entry, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return cache.Entry{}, cache.ErrNotFound
	}

	return copyEntry(e), nil
}

func (s *Store) Put(ctx context.Context, e cache.Entry) (cache.Entry, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return cache.Entry{}, fmt.Errorf("could not generate ID: %w", err)
	}

	e = copyEntry(e)
	e.ID = newUUID
	e.Created = time.Now()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.entries[e.Key] = e

	return copyEntry(e), nil
}

func (s *Store) Close() error {
	return nil
}

// copyEntry keeps callers from modifying stored slices.
func copyEntry(e cache.Entry) cache.Entry {
	if e.Literals != nil {
		lits := make([]string, len(e.Literals))
		copy(lits, e.Literals)
		e.Literals = lits
	}
	if e.Unresolved != nil {
		ids := make([]int, len(e.Unresolved))
		copy(ids, e.Unresolved)
		e.Unresolved = ids
	}
	if e.Bodies != nil {
		bodies := make([]string, len(e.Bodies))
		copy(bodies, e.Bodies)
		e.Bodies = bodies
	}
	return e
}
