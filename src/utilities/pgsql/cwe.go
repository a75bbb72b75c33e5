package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpdateCwes upserts the weakness catalog.
func UpdateCwes(db *bun.DB, entries []Cwe) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			tx.Commit()
		}
	}()

	ctx := context.Background()
	for i := range entries {
		entry := &entries[i]
		if entry.Id == uuid.Nil {
			entry.Id = uuid.New()
		}
		_, err = tx.NewInsert().Model(entry).
			On("CONFLICT (cwe_id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("abstraction = EXCLUDED.abstraction").
			Set("status = EXCLUDED.status").
			Set("description = EXCLUDED.description").
			Exec(ctx)
		if err != nil {
			err = fmt.Errorf("failed to upsert CWE-%s: %w", entry.CweId, err)
			return err
		}
	}

	return nil
}

// GetCwe looks a weakness up by its catalog id, e.g. "79" for CWE-79.
// Returns nil when the id is unknown.
func GetCwe(ctx context.Context, db *bun.DB, cweId string) (*Cwe, error) {
	var entry Cwe
	err := db.NewSelect().Model(&entry).Where("cwe_id = ?", cweId).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching CWE-%s: %w", cweId, err)
	}
	return &entry, nil
}
