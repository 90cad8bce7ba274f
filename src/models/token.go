package models

import "time"

// A long-lived API token for the subscription endpoints. Only the argon2id
// hash is stored; the plaintext is shown to the user once at creation.
type APIToken struct {
	ID     int `db:"id"`
	UserID int `db:"user_id"`

	Name      string `db:"name"` // user-chosen label, e.g. "rss bridge"
	TokenHash string `db:"token_hash"`

	CreatedAt  time.Time  `db:"created_at"`
	LastUsedAt *time.Time `db:"last_used_at"`
}
