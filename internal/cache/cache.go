// Package cache provides storage of resolved literal sets so that a grammar
// that has already been resolved does not need to be resolved again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dekarrin/monmsg/internal/grammar"
	"github.com/dekarrin/rezi"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("the requested resource was not found")

// Store holds resolved sets keyed by the digest of what was resolved.
type Store interface {
	// Get retrieves the Entry with the given key. If there is no such entry,
	// the returned error will match ErrNotFound.
	Get(ctx context.Context, key string) (Entry, error)

	// Put stores an Entry. The ID and Created fields are assigned by the
	// Store and the stored Entry is returned. An existing entry with the same
	// key is replaced.
	Put(ctx context.Context, e Entry) (Entry, error)

	Close() error
}

// Options are the resolution settings that affect the resolved set and so
// must be part of the cache key.
type Options struct {
	Target          int
	MaxDepth        int
	MaxLength       int
	MaxAlternatives int
}

// Key gives the cache key for resolving t with the given strategy and
// options. Tables that render the same give the same key.
func Key(t grammar.Table, strategy string, opts Options) string {
	h := sha256.New()

	fmt.Fprintf(h, "%s\n", strategy)
	fmt.Fprintf(h, "target=%d depth=%d length=%d alts=%d\n", opts.Target, opts.MaxDepth, opts.MaxLength, opts.MaxAlternatives)
	fmt.Fprintf(h, "%s\n", t.String())

	return hex.EncodeToString(h.Sum(nil))
}

// Entry is a stored resolved set.
type Entry struct {
	ID         uuid.UUID
	Key        string
	Strategy   string
	Literals   []string
	Unresolved []int

	// Bodies holds the rendering of each rule in Unresolved, in the same
	// order.
	Bodies []string

	Pruned  int
	Created time.Time
}

func (e Entry) MarshalBinary() ([]byte, error) {
	var data []byte

	data = append(data, rezi.EncString(e.ID.String())...)
	data = append(data, rezi.EncString(e.Key)...)
	data = append(data, rezi.EncString(e.Strategy)...)

	data = append(data, rezi.EncInt(len(e.Literals))...)
	for _, lit := range e.Literals {
		data = append(data, rezi.EncString(lit)...)
	}

	data = append(data, rezi.EncInt(len(e.Unresolved))...)
	for _, id := range e.Unresolved {
		data = append(data, rezi.EncInt(id)...)
	}

	data = append(data, rezi.EncInt(len(e.Bodies))...)
	for _, body := range e.Bodies {
		data = append(data, rezi.EncString(body)...)
	}

	data = append(data, rezi.EncInt(e.Pruned)...)

	data = append(data, rezi.EncInt(int(e.Created.Unix()))...)

	return data, nil
}

func (e *Entry) UnmarshalBinary(data []byte) error {
	var err error
	var bytesRead int

	var idStr string
	idStr, bytesRead, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	data = data[bytesRead:]
	e.ID, err = uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}

	e.Key, bytesRead, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	data = data[bytesRead:]

	e.Strategy, bytesRead, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	data = data[bytesRead:]

	var count int
	count, bytesRead, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("literal count: %w", err)
	}
	data = data[bytesRead:]

	e.Literals = nil
	for i := 0; i < count; i++ {
		var lit string
		lit, bytesRead, err = rezi.DecString(data)
		if err != nil {
			return fmt.Errorf("literal %d: %w", i, err)
		}
		data = data[bytesRead:]
		e.Literals = append(e.Literals, lit)
	}

	count, bytesRead, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("unresolved count: %w", err)
	}
	data = data[bytesRead:]

	e.Unresolved = nil
	for i := 0; i < count; i++ {
		var id int
		id, bytesRead, err = rezi.DecInt(data)
		if err != nil {
			return fmt.Errorf("unresolved %d: %w", i, err)
		}
		data = data[bytesRead:]
		e.Unresolved = append(e.Unresolved, id)
	}

	count, bytesRead, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("body count: %w", err)
	}
	data = data[bytesRead:]

	e.Bodies = nil
	for i := 0; i < count; i++ {
		var body string
		body, bytesRead, err = rezi.DecString(data)
		if err != nil {
			return fmt.Errorf("body %d: %w", i, err)
		}
		data = data[bytesRead:]
		e.Bodies = append(e.Bodies, body)
	}

	e.Pruned, bytesRead, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("pruned: %w", err)
	}
	data = data[bytesRead:]

	var created int
	created, _, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("created: %w", err)
	}
	e.Created = time.Unix(int64(created), 0)

	return nil
}
