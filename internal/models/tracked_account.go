package models

import "time"

// TrackedAccount records that a chat wants follow-alerts for a Twitter account.
type TrackedAccount struct {
	Username string    `db:"username"`
	ChatID   int64     `db:"chat_id"`
	AddedAt  time.Time `db:"added_at"`
}
