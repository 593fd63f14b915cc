package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PgOptionsStore is the KeyValueStore over storesync_options (jsonb values).
type PgOptionsStore struct {
	db *sql.DB
}

func NewPgOptionsStore(db *sql.DB) *PgOptionsStore {
	return &PgOptionsStore{db: db}
}

func (s *PgOptionsStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `select value from storesync_options where key = $1`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode option %s: %w", key, err)
	}
	return true, nil
}

func (s *PgOptionsStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode option %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
        insert into storesync_options (key, value, updated_at_utc)
        values ($1, $2::jsonb, now())
        on conflict (key) do update
        set value = excluded.value, updated_at_utc = now()
    `, key, string(raw))
	return err
}

func (s *PgOptionsStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `delete from storesync_options where key = $1`, key)
	return err
}
