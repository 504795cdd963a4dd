package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// PostgresStore holds each collection as one jsonb row, preserving the
// whole-blob load/save contract of the embedded backend.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewPostgresStore(ctx context.Context, dsn string, log *logrus.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PostgresStore{pool: pool, log: log}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			name TEXT PRIMARY KEY,
			data JSONB NOT NULL
		);
	`)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, name string, out any) {
	var data []byte
	err := s.pool.QueryRow(ctx, "SELECT data FROM records WHERE name = $1", name).Scan(&data)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log.Errorf("postgres read %s: %v", name, err)
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.log.Warnf("postgres: discarding malformed blob %s: %v", name, err)
	}
}

func (s *PostgresStore) Save(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		"INSERT INTO records (name, data) VALUES ($1, $2) ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data",
		name, data)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM records WHERE name = $1", name)
	return err
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
