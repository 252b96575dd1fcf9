package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMemory(t *testing.T) Database {
	t.Helper()
	db, err := NewDatabase(context.Background(), "sqlite:///:memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Session(context.Background()).Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)").Error)
	return db
}

func countItems(t *testing.T, db Database) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Session(context.Background()).Raw("SELECT COUNT(*) FROM items").Scan(&count).Error)
	return count
}

func TestWithTransaction_Commits(t *testing.T) {
	db := newMemory(t)

	err := WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO items (name) VALUES (?), (?)", "a", "b").Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), countItems(t, db))
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newMemory(t)
	boom := errors.New("boom")

	err := WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO items (name) VALUES (?)", "a").Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, countItems(t, db))
}

func TestWithTransactionResult(t *testing.T) {
	db := newMemory(t)

	id, err := WithTransactionResult(context.Background(), db, func(tx *gorm.DB) (int64, error) {
		if err := tx.Exec("INSERT INTO items (id, name) VALUES (?, ?)", 41, "a").Error; err != nil {
			return 0, err
		}
		return 41, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(41), id)

	_, err = WithTransactionResult(context.Background(), db, func(tx *gorm.DB) (int64, error) {
		_ = tx.Exec("INSERT INTO items (name) VALUES (?)", "b")
		return 0, errors.New("fail")
	})
	require.Error(t, err)
	assert.Equal(t, int64(1), countItems(t, db))
}
