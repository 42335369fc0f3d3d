package test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"followerwatch/internal/db"
)

// NewMockDB swaps the registry's global connection for a sqlmock-backed
// one, restoring it when the test finishes.
func NewMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	sqlxDB := sqlx.NewDb(mockDb, "sqlmock")

	originalDB := db.DB
	db.DB = sqlxDB
	t.Cleanup(func() {
		db.DB = originalDB
		mockDb.Close()
	})

	return sqlxDB, mock
}
