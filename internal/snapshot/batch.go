package snapshot

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"followerwatch/internal/models"
)

// Batch groups snapshot inserts into a single transaction so a
// reconciliation cycle commits once, not per row.
type Batch struct {
	conn *sqlx.DB
	tx   *sqlx.Tx
}

// Begin opens the snapshot at path and starts a write transaction.
func (s *Store) Begin(path string) (*Batch, error) {
	conn, err := openDB(path)
	if err != nil {
		return nil, err
	}
	tx, err := conn.Beginx()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Batch{conn: conn, tx: tx}, nil
}

// Insert adds a follower row without checking for duplicates. Used for the
// first population of an empty private snapshot.
func (b *Batch) Insert(f models.Follower) error {
	_, err := b.tx.Exec(insertQuery,
		f.UserID, f.Name, f.Username, f.Bio, f.ProfileURL,
		f.FollowersCount, f.CreatedAt, f.BlueVerified, f.Location)
	return err
}

// InsertIfAbsent adds a follower row unless its username is already
// present. Reports whether a row was inserted.
func (b *Batch) InsertIfAbsent(f models.Follower) (bool, error) {
	var one int
	err := b.tx.Get(&one, "SELECT 1 FROM followers WHERE username = ?", f.Username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if err := b.Insert(f); err != nil {
		return false, err
	}
	return true, nil
}

// Commit commits the transaction.
func (b *Batch) Commit() error {
	err := b.tx.Commit()
	b.tx = nil
	return err
}

// Close rolls back an uncommitted transaction and releases the connection.
func (b *Batch) Close() {
	if b.tx != nil {
		b.tx.Rollback()
	}
	b.conn.Close()
}
