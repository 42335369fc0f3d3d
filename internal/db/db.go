package db

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // The database driver
)

// DB is the global connection to the tracking registry.
var DB *sqlx.DB

// InitDB initializes the registry connection and bootstraps its schema.
func InitDB() {
	var err error
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	DB, err = sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err = DB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	if err = CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("Database connection established")
}

// CreateTables creates the registry tables if they don't exist yet.
func CreateTables() error {
	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS tracked_accounts (
			username TEXT NOT NULL,
			chat_id BIGINT NOT NULL,
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (username, chat_id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = DB.Exec("CREATE INDEX IF NOT EXISTS idx_tracked_accounts_chat_id ON tracked_accounts(chat_id)")
	return err
}
