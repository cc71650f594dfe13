package repository

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/scirpter/CWL-Discord-Bot/internal/database"
)

// testDB opens an isolated in-memory database with the full schema applied.
// A single connection keeps every query on the same in-memory instance.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	require.NoError(t, database.RunMigrations(db, zerolog.Nop()))
	return db
}
