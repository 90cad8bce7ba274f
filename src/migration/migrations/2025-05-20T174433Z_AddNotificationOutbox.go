package migrations

import (
	"context"
	"time"

	"git.quillwiki.net/quill/gazette/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(AddNotificationOutbox{})
}

type AddNotificationOutbox struct{}

func (m AddNotificationOutbox) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2025, 5, 20, 17, 44, 33, 0, time.UTC))
}

func (m AddNotificationOutbox) Name() string {
	return "AddNotificationOutbox"
}

func (m AddNotificationOutbox) Description() string {
	return "Adds the notification outbox drained by the dispatch job"
}

func (m AddNotificationOutbox) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE notification_outbox (
			id UUID PRIMARY KEY,
			kind INT NOT NULL,
			newsletter_id INT NOT NULL REFERENCES nl_newsletters (nl_id),
			agent_id INT NOT NULL REFERENCES wiki_user (id),
			payload TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			attempts INT NOT NULL DEFAULT 0,
			delivered_at TIMESTAMP WITH TIME ZONE
		);
		CREATE INDEX notification_outbox_pending ON notification_outbox (created_at) WHERE delivered_at IS NULL;
	`)
	return err
}

func (m AddNotificationOutbox) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE notification_outbox;
	`)
	return err
}
