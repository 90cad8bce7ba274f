package notifications

import (
	"context"
	"encoding/json"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/oops"
	"github.com/google/uuid"
)

/*
Notification events produced by newsletter writes. One event is emitted per
logical operation, not per affected user: a publisher diff that adds three
people produces a single publisher-added event whose payload carries all
three ids. Presentation and actual delivery belong to the host platform's
notification subsystem; Gazette only produces the events and hands them
over (see the dispatcher).
*/

// The JSON payload stored with each outbox row.
type Payload struct {
	NewsletterName string `json:"newsletterName"`

	// For publisher-added/-removed: every user the diff touched.
	AffectedUserIDs []int `json:"affectedUserIds,omitempty"`

	// Who should be notified. Captured when the event is enqueued, so late
	// subscription changes don't alter who hears about an issue.
	RecipientIDs []int `json:"recipientIds"`

	// For issue-announced.
	PageID      int    `json:"pageId,omitempty"`
	IssueNumber int    `json:"issueNumber,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

type Event struct {
	Kind         models.NotificationKind
	NewsletterID int
	AgentID      int
	Payload      Payload
}

/*
Adds an event to the outbox. Call this on the same transaction as the write
that caused the event, so that an aborted write never leaves a stray
notification behind.
*/
func Enqueue(ctx context.Context, dbConn db.ConnOrTx, event Event) error {
	payloadJson, err := json.Marshal(event.Payload)
	if err != nil {
		return oops.New(err, "failed to marshal notification payload")
	}

	_, err = dbConn.Exec(ctx,
		`
		INSERT INTO notification_outbox (id, kind, newsletter_id, agent_id, payload, created_at, attempts)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, 0)
		`,
		uuid.New(), event.Kind, event.NewsletterID, event.AgentID, string(payloadJson),
	)
	if err != nil {
		return oops.New(err, "failed to enqueue notification")
	}
	return nil
}

func ParsePayload(n *models.Notification) (Payload, error) {
	var payload Payload
	err := json.Unmarshal([]byte(n.Payload), &payload)
	if err != nil {
		return Payload{}, oops.New(err, "failed to unmarshal notification payload")
	}
	return payload, nil
}
