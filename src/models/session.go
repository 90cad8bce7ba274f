package models

import "time"

type Session struct {
	ID     string `db:"id"`
	UserID int    `db:"user_id"`

	// Must accompany every state-changing API request.
	CSRFToken string `db:"csrf_token"`

	ExpiresAt time.Time `db:"expires_at"`
}
