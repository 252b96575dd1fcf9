package database

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	url := "sqlite:///" + filepath.Join(t.TempDir(), "test.db")

	db, err := NewDatabase(ctx, url, nil)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.True(t, db.IsSQLite())
	assert.False(t, db.IsPostgres())
	require.NoError(t, db.Session(ctx).Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)").Error)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(context.Background(), "mysql://localhost/db", nil)
	require.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestNewDatabase_UnreachableDirectory(t *testing.T) {
	url := "sqlite:///" + filepath.Join(t.TempDir(), "missing", "dir", "test.db")
	_, err := NewDatabase(context.Background(), url, nil)
	require.Error(t, err)
}

func TestNewDatabase_MemorySharedAcrossSessions(t *testing.T) {
	ctx := context.Background()
	db, err := NewDatabase(ctx, "sqlite:///:memory:", nil)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, db.Session(ctx).Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)").Error)
	require.NoError(t, db.Session(ctx).Exec("INSERT INTO t (id) VALUES (1)").Error)

	var count int64
	require.NoError(t, db.Session(ctx).Raw("SELECT COUNT(*) FROM t").Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestNewDatabase_LogsSQLAtDebug(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	db, err := NewDatabase(ctx, "sqlite:///:memory:", logger)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, db.Session(ctx).Exec("CREATE TABLE logged (id INTEGER)").Error)
	assert.Contains(t, buf.String(), "CREATE TABLE logged")
}

func TestURL(t *testing.T) {
	assert.Equal(t, "sqlite:///data/chunks.db", URL("data/chunks.db"))
	assert.Equal(t, "sqlite:////abs/chunks.db", URL("/abs/chunks.db"))
	assert.Equal(t, "sqlite:///x.db", URL("sqlite:///x.db"))
	assert.Equal(t, "postgres://u:p@h/db", URL("postgres://u:p@h/db"))
}

func TestTruncateSQL(t *testing.T) {
	short := "SELECT 1"
	assert.Equal(t, short, truncateSQL(short))

	long := strings.Repeat("x", 500)
	got := truncateSQL(long)
	assert.Len(t, got, maxSQLLength-1)
	assert.Contains(t, got, "...")
}
