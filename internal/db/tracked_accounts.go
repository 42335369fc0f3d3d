package db

import (
	"log"

	"followerwatch/internal/models"
)

// AddAccount registers a tracked account for a chat. Adding the same pair
// twice is a no-op.
func AddAccount(username string, chatID int64) error {
	query := `
		INSERT INTO tracked_accounts (username, chat_id)
		VALUES ($1, $2)
		ON CONFLICT (username, chat_id) DO NOTHING
	`
	_, err := DB.Exec(query, username, chatID)
	if err != nil {
		log.Printf("Error adding account %q for chat %d: %v", username, chatID, err)
		return err
	}
	return nil
}

// RemoveAccount removes a tracked account for a chat.
func RemoveAccount(username string, chatID int64) error {
	_, err := DB.Exec("DELETE FROM tracked_accounts WHERE username = $1 AND chat_id = $2", username, chatID)
	if err != nil {
		log.Printf("Error removing account %q for chat %d: %v", username, chatID, err)
		return err
	}
	return nil
}

// GetTrackedAccounts returns the usernames tracked by a chat.
func GetTrackedAccounts(chatID int64) ([]string, error) {
	var usernames []string
	err := DB.Select(&usernames, "SELECT username FROM tracked_accounts WHERE chat_id = $1 ORDER BY added_at", chatID)
	if err != nil {
		log.Printf("Error getting tracked accounts for chat %d: %v", chatID, err)
		return nil, err
	}
	return usernames, nil
}

// IsAccountTracked reports whether a chat already tracks the account.
func IsAccountTracked(username string, chatID int64) (bool, error) {
	var exists bool
	err := DB.Get(&exists, "SELECT EXISTS(SELECT 1 FROM tracked_accounts WHERE username = $1 AND chat_id = $2)", username, chatID)
	if err != nil {
		log.Printf("Error checking account %q for chat %d: %v", username, chatID, err)
		return false, err
	}
	return exists, nil
}

// GetAccountsByChat returns every tracked account row for a chat.
func GetAccountsByChat(chatID int64) ([]models.TrackedAccount, error) {
	var accounts []models.TrackedAccount
	err := DB.Select(&accounts, "SELECT username, chat_id, added_at FROM tracked_accounts WHERE chat_id = $1 ORDER BY added_at", chatID)
	if err != nil {
		log.Printf("Error getting account rows for chat %d: %v", chatID, err)
		return nil, err
	}
	return accounts, nil
}

// DeleteUserData removes every tracked account registered by a chat.
func DeleteUserData(chatID int64) error {
	_, err := DB.Exec("DELETE FROM tracked_accounts WHERE chat_id = $1", chatID)
	if err != nil {
		log.Printf("Error deleting registry data for chat %d: %v", chatID, err)
		return err
	}
	return nil
}
