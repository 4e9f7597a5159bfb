package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a sqlite DB file.
func NewSQLiteStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set synchronous: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the state tables. This is idempotent.
func (s *Store) Migrate() error {
	const sqlStmt = `
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
  position INTEGER NOT NULL,
  room_id TEXT NOT NULL UNIQUE
);

CREATE INDEX IF NOT EXISTS idx_rooms_position ON rooms (position);
`
	_, err := s.db.Exec(sqlStmt)
	return err
}

func (s *Store) LoadRooms(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, ErrNotConnected
	}
	rows, err := s.db.QueryContext(ctx, `SELECT room_id FROM rooms ORDER BY position ASC`)
	if err != nil {
		return nil, storageError("load rooms", err)
	}
	defer rows.Close()

	var rooms []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, storageError("scan room", err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("load rooms", err)
	}
	return cleanRooms(rooms), nil
}

// SaveRooms replaces the stored list in a single transaction.
func (s *Store) SaveRooms(ctx context.Context, rooms []string) (err error) {
	if s.db == nil {
		return ErrNotConnected
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM rooms`); err != nil {
		return storageError("clear rooms", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rooms (position, room_id) VALUES (?, ?)`)
	if err != nil {
		return storageError("prepare insert", err)
	}
	defer stmt.Close()
	for i, r := range cleanRooms(rooms) {
		if _, err = stmt.ExecContext(ctx, i, r); err != nil {
			return storageError("insert room", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return storageError("commit rooms", err)
	}
	return nil
}

func (s *Store) LoadCurrentRoom(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", ErrNotConnected
	}
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, keyCurrentRoom).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storageError("load current room", err)
	}
	return v, nil
}

func (s *Store) SaveCurrentRoom(ctx context.Context, room string) error {
	if s.db == nil {
		return ErrNotConnected
	}
	const q = `
INSERT INTO kv (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value;
`
	if _, err := s.db.ExecContext(ctx, q, keyCurrentRoom, room); err != nil {
		return storageError("save current room", err)
	}
	return nil
}
