package models

// Follower is one row of a follower snapshot, shared or private.
// Text fields other than the username may be absent from the staged CSV
// and are stored as NULL in that case.
type Follower struct {
	ID             int64   `db:"id"`
	UserID         *string `db:"user_id"`
	Name           *string `db:"name"`
	Username       string  `db:"username"`
	Bio            *string `db:"bio"`
	ProfileURL     *string `db:"profile_url"`
	FollowersCount int64   `db:"followers_count"`
	CreatedAt      string  `db:"created_at"`
	BlueVerified   bool    `db:"blue_verified"`
	Location       *string `db:"location"`
}
