// Package testdb provides a shared test database helper for fast,
// realistic testing against an in-memory SQLite database.
package testdb

import (
	"context"
	"testing"

	"github.com/helixml/passage/infrastructure/persistence"
	"github.com/helixml/passage/internal/database"
)

// New creates an in-memory SQLite database with the chunk schema applied.
// The database is automatically closed when the test finishes.
func New(t *testing.T) database.Database {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewDatabase(ctx, "sqlite:///:memory:", nil)
	if err != nil {
		t.Fatalf("testdb.New: open database: %v", err)
	}
	if err := persistence.AutoMigrate(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("testdb.New: auto migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewStore returns a chunk store over a fresh in-memory database.
func NewStore(t *testing.T) *persistence.ChunkStore {
	t.Helper()
	store, err := persistence.NewChunkStore(context.Background(), New(t), nil)
	if err != nil {
		t.Fatalf("testdb.NewStore: %v", err)
	}
	return store
}
