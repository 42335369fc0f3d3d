// Package snapshot manages the follower snapshot databases: one shared
// SQLite file per tracked account plus one private copy per (chat, account)
// pair. Every operation opens its own connection and holds no transaction
// across calls, so a concurrent ingestion between a read and a write lands
// in the next reconciliation cycle instead of this one.
package snapshot

import (
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // The snapshot database driver

	"followerwatch/internal/models"
)

func openDB(path string) (*sqlx.DB, error) {
	return sqlx.Connect("sqlite3", path)
}

const commonDataDir = "common_data"

const schema = `
	CREATE TABLE IF NOT EXISTS followers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT,
		name TEXT,
		username TEXT,
		bio TEXT,
		profile_url TEXT,
		followers_count INTEGER,
		created_at TEXT,
		blue_verified BOOLEAN,
		location TEXT
	)
`

const insertQuery = `
	INSERT INTO followers
		(user_id, name, username, bio, profile_url, followers_count, created_at, blue_verified, location)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Store locates and manipulates snapshot databases under a data directory.
type Store struct {
	dataDir string
}

func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// SharedPath returns the path of the shared snapshot for a tracked account,
// creating the common data directory if needed.
func (s *Store) SharedPath(account string) string {
	dir := filepath.Join(s.dataDir, commonDataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Error creating common data dir: %v", err)
	}
	return filepath.Join(dir, account+".db")
}

// PrivatePath returns the path of a chat's private snapshot for a tracked
// account, creating the chat's directory if needed.
func (s *Store) PrivatePath(chatID int64, account string) string {
	dir := filepath.Join(s.dataDir, strconv.FormatInt(chatID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Error creating data dir for chat %d: %v", chatID, err)
	}
	return filepath.Join(dir, account+".db")
}

// StagedCSVPath returns where the ingestor expects the staged follower CSV
// for a tracked account, creating the common data directory if needed.
func (s *Store) StagedCSVPath(account string) string {
	dir := filepath.Join(s.dataDir, commonDataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Error creating common data dir: %v", err)
	}
	return filepath.Join(dir, account+".csv")
}

// EnsureSubscriberDir creates a chat's data directory. Its presence is what
// makes the chat visible to the batch orchestrator.
func (s *Store) EnsureSubscriberDir(chatID int64) error {
	return os.MkdirAll(filepath.Join(s.dataDir, strconv.FormatInt(chatID, 10)), 0o755)
}

// ListSubscribers enumerates the chats with a data directory.
func (s *Store) ListSubscribers() ([]int64, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, err
	}
	var chatIDs []int64
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == commonDataDir {
			continue
		}
		chatID, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		chatIDs = append(chatIDs, chatID)
	}
	return chatIDs, nil
}

// EnsureTable creates the followers table in the snapshot at path.
func (s *Store) EnsureTable(path string) error {
	conn, err := openDB(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Exec(schema)
	return err
}

// TableExists reports whether the snapshot at path has a followers table.
func (s *Store) TableExists(path string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	conn, err := openDB(path)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	var name string
	err = conn.Get(&name, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'followers'")
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// InsertFollowers bulk-inserts followers into the snapshot at path,
// skipping usernames already present. The existence check and the insert
// are separate statements, so two concurrent bulk inserts can still race a
// duplicate in; the unique-per-snapshot invariant is maintained by this
// check, not by a constraint. Returns the number of rows inserted.
func (s *Store) InsertFollowers(path string, followers []models.Follower) (int, error) {
	if len(followers) == 0 {
		return 0, nil
	}
	batch, err := s.Begin(path)
	if err != nil {
		return 0, err
	}
	defer batch.Close()

	inserted := 0
	for _, f := range followers {
		ok, err := batch.InsertIfAbsent(f)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		} else {
			log.Printf("Skipped duplicate follower %s in %s", f.Username, path)
		}
	}
	if err := batch.Commit(); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// UpdateFollower rewrites an existing follower row, matched by username.
func (s *Store) UpdateFollower(path string, username string, f models.Follower) error {
	conn, err := openDB(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Exec(`
		UPDATE followers SET
			user_id = ?, name = ?, bio = ?, profile_url = ?,
			followers_count = ?, created_at = ?, blue_verified = ?, location = ?
		WHERE username = ?`,
		f.UserID, f.Name, f.Bio, f.ProfileURL,
		f.FollowersCount, f.CreatedAt, f.BlueVerified, f.Location,
		username)
	return err
}

// Usernames returns the set of usernames in the snapshot at path.
func (s *Store) Usernames(path string) (map[string]struct{}, error) {
	conn, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var usernames []string
	if err := conn.Select(&usernames, "SELECT username FROM followers"); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(usernames))
	for _, u := range usernames {
		set[u] = struct{}{}
	}
	return set, nil
}

// GetByUsername returns the follower row for a username.
func (s *Store) GetByUsername(path string, username string) (models.Follower, error) {
	conn, err := openDB(path)
	if err != nil {
		return models.Follower{}, err
	}
	defer conn.Close()

	var f models.Follower
	err = conn.Get(&f, "SELECT * FROM followers WHERE username = ?", username)
	return f, err
}

// AllFollowers returns every row in the snapshot at path.
func (s *Store) AllFollowers(path string) ([]models.Follower, error) {
	conn, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var followers []models.Follower
	err = conn.Select(&followers, "SELECT * FROM followers")
	return followers, err
}

// Remove deletes the snapshot file at path. A missing file is not an error.
func (s *Store) Remove(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// RemoveSubscriberData deletes a chat's entire data directory, private
// snapshots included.
func (s *Store) RemoveSubscriberData(chatID int64) error {
	return os.RemoveAll(filepath.Join(s.dataDir, strconv.FormatInt(chatID, 10)))
}
