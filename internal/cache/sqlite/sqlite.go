// Package sqlite is a cache.Store that persists entries to a SQLite database
// file in a data directory.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dekarrin/monmsg/internal/cache"
	"github.com/dekarrin/rezi"
	"github.com/google/uuid"
	"modernc.org/sqlite"
)

const dbFilename = "cache.db"

type Store struct {
	db *sql.DB
}

// NewDatastore opens (creating if needed) the cache database in storageDir.
func NewDatastore(storageDir string) (*Store, error) {
	fileName := filepath.Join(storageDir, dbFilename)

	db, err := sql.Open("sqlite", fileName)
	if err != nil {
		return nil, wrapDBError(err)
	}

	st := &Store{db: db}
	if err := st.init(); err != nil {
		db.Close()
		return nil, err
	}

	return st, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS resolved (
		id TEXT NOT NULL PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		data TEXT NOT NULL,
		created INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}

	return nil
}

func (s *Store) Put(ctx context.Context, e cache.Entry) (cache.Entry, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return cache.Entry{}, fmt.Errorf("could not generate ID: %w", err)
	}

	e.ID = newUUID
	e.Created = time.Unix(time.Now().Unix(), 0)

	stmt, err := s.db.PrepareContext(ctx, `INSERT OR REPLACE INTO resolved (id, key, data, created) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return cache.Entry{}, wrapDBError(err)
	}
	defer stmt.Close()

	encData := base64.StdEncoding.EncodeToString(rezi.EncBinary(e))
	_, err = stmt.ExecContext(ctx, e.ID.String(), e.Key, encData, e.Created.Unix())
	if err != nil {
		return cache.Entry{}, wrapDBError(err)
	}

	return s.Get(ctx, e.Key)
}

func (s *Store) Get(ctx context.Context, key string) (cache.Entry, error) {
	var id string
	var data string
	var created int64

	row := s.db.QueryRowContext(ctx, `SELECT id, data, created FROM resolved WHERE key = ?;`, key)
	err := row.Scan(
		&id,
		&data,
		&created,
	)
	if err != nil {
		return cache.Entry{}, wrapDBError(err)
	}

	binData, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("stored data for %s is invalid: %w", id, err)
	}

	var e cache.Entry
	if _, err := rezi.DecBinary(binData, &e); err != nil {
		return cache.Entry{}, fmt.Errorf("stored data for %s is invalid: %w", id, err)
	}

	if e.ID.String() != id {
		return cache.Entry{}, fmt.Errorf("stored data for %s has mismatched ID %s", id, e.ID)
	}
	e.Created = time.Unix(created, 0)

	return e, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%s: %w", dbFilename, err)
	}
	return nil
}

func wrapDBError(err error) error {
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	} else if errors.Is(err, sql.ErrNoRows) {
		return cache.ErrNotFound
	}
	return err
}
