package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind int

const (
	NotificationPublisherAdded   NotificationKind = 1
	NotificationPublisherRemoved NotificationKind = 2
	NotificationIssueAnnounced   NotificationKind = 3
)

func (k NotificationKind) String() string {
	switch k {
	case NotificationPublisherAdded:
		return "publisher-added"
	case NotificationPublisherRemoved:
		return "publisher-removed"
	case NotificationIssueAnnounced:
		return "issue-announced"
	}
	return "unknown"
}

// A pending notification event in the outbox. Events are enqueued in the
// same transaction as the write that caused them and drained by the dispatch
// job, which hands them to the external delivery subsystem.
type Notification struct {
	ID uuid.UUID `db:"id"`

	Kind         NotificationKind `db:"kind"`
	NewsletterID int              `db:"newsletter_id"`
	AgentID      int              `db:"agent_id"` // the user whose action caused the event

	// JSON-encoded notifications.Payload.
	Payload string `db:"payload"`

	CreatedAt   time.Time  `db:"created_at"`
	Attempts    int        `db:"attempts"`
	DeliveredAt *time.Time `db:"delivered_at"`
}
