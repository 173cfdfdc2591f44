package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// CollectionStore keeps each named collection as one JSON document in the
// collections table.
type CollectionStore struct {
	db *sql.DB
}

func NewCollectionStore(db *sql.DB) *CollectionStore {
	return &CollectionStore{db: db}
}

// Load decodes the named collection into dst and reports whether it exists.
func (s *CollectionStore) Load(ctx context.Context, name string, dst any) (bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM collections WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load collection %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return false, fmt.Errorf("decode collection %s: %w", name, err)
	}
	return true, nil
}

func (s *CollectionStore) Save(ctx context.Context, name string, v any) error {
	return s.SaveAll(ctx, map[string]any{name: v})
}

// SaveAll writes every collection in a single transaction.
func (s *CollectionStore) SaveAll(ctx context.Context, collections map[string]any) error {
	names := make([]string, 0, len(collections))
	docs := make(map[string][]byte, len(collections))
	for name, v := range collections {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode collection %s: %w", name, err)
		}
		names = append(names, name)
		docs[name] = data
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, name := range names {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			name, string(docs[name]), now,
		)
		if err != nil {
			return fmt.Errorf("save collection %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit collections: %w", err)
	}
	return nil
}
