package db

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	originalDB := DB
	DB = sqlx.NewDb(mockDb, "sqlmock")
	t.Cleanup(func() {
		DB = originalDB
		mockDb.Close()
	})
	return mock
}

func TestAddAccount(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO tracked_accounts`).
		WithArgs("alice", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, AddAccount("alice", 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveAccount(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM tracked_accounts WHERE username = \$1 AND chat_id = \$2`).
		WithArgs("alice", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, RemoveAccount("alice", 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTrackedAccounts(t *testing.T) {
	mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"username"}).AddRow("alice").AddRow("zed")
	mock.ExpectQuery(`SELECT username FROM tracked_accounts WHERE chat_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(rows)

	accounts, err := GetTrackedAccounts(42)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "zed"}, accounts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTrackedAccountsError(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectQuery(`SELECT username FROM tracked_accounts`).
		WithArgs(int64(42)).
		WillReturnError(errors.New("connection reset"))

	_, err := GetTrackedAccounts(42)
	assert.Error(t, err)
}

func TestGetAccountsByChat(t *testing.T) {
	mock := newMockDB(t)
	added := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"username", "chat_id", "added_at"}).
		AddRow("alice", int64(42), added)
	mock.ExpectQuery(`SELECT username, chat_id, added_at FROM tracked_accounts WHERE chat_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(rows)

	accounts, err := GetAccountsByChat(42)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "alice", accounts[0].Username)
	assert.Equal(t, int64(42), accounts[0].ChatID)
	assert.Equal(t, added, accounts[0].AddedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAccountTracked(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alice", int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	tracked, err := IsAccountTracked("alice", 42)
	require.NoError(t, err)
	assert.True(t, tracked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserData(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM tracked_accounts WHERE chat_id = \$1`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, DeleteUserData(42))
	assert.NoError(t, mock.ExpectationsWereMet())
}
