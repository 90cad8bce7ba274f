package migrations

import (
	"context"
	"time"

	"git.quillwiki.net/quill/gazette/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(InitialSchema{})
}

type InitialSchema struct{}

func (m InitialSchema) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2025, 5, 12, 14, 15, 2, 0, time.UTC))
}

func (m InitialSchema) Name() string {
	return "InitialSchema"
}

func (m InitialSchema) Description() string {
	return "Creates the wiki mirror tables and the newsletter tables"
}

func (m InitialSchema) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE wiki_user (
			id SERIAL PRIMARY KEY,
			username VARCHAR(150) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL DEFAULT '',
			email VARCHAR(254) NOT NULL DEFAULT '',
			date_joined TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login TIMESTAMP WITH TIME ZONE,
			is_staff BOOLEAN NOT NULL DEFAULT FALSE,
			status INT NOT NULL DEFAULT 1,
			suppressed BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE wiki_page (
			id INT PRIMARY KEY,
			namespace INT NOT NULL,
			title VARCHAR(255) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE UNIQUE INDEX wiki_page_ns_title ON wiki_page (namespace, LOWER(title)) WHERE NOT deleted;

		CREATE TABLE nl_newsletters (
			nl_id SERIAL PRIMARY KEY,
			nl_name VARCHAR(255) NOT NULL,
			nl_desc TEXT NOT NULL,
			nl_main_page_id INT NOT NULL REFERENCES wiki_page (id),
			nl_active BOOLEAN NOT NULL DEFAULT TRUE,
			nl_subscriber_count INT NOT NULL DEFAULT 0
		);
		CREATE UNIQUE INDEX nl_newsletters_active_name ON nl_newsletters (LOWER(nl_name)) WHERE nl_active;
		CREATE UNIQUE INDEX nl_newsletters_active_main_page ON nl_newsletters (nl_main_page_id) WHERE nl_active;
		CREATE INDEX nl_newsletters_by_subscribers ON nl_newsletters (nl_subscriber_count) WHERE nl_active;

		CREATE TABLE nl_publishers (
			nlp_newsletter_id INT NOT NULL REFERENCES nl_newsletters (nl_id),
			nlp_publisher_id INT NOT NULL REFERENCES wiki_user (id),
			PRIMARY KEY (nlp_newsletter_id, nlp_publisher_id)
		);

		CREATE TABLE nl_subscriptions (
			nls_newsletter_id INT NOT NULL REFERENCES nl_newsletters (nl_id),
			nls_subscriber_id INT NOT NULL REFERENCES wiki_user (id),
			PRIMARY KEY (nls_newsletter_id, nls_subscriber_id)
		);

		CREATE TABLE nl_issues (
			nli_newsletter_id INT NOT NULL REFERENCES nl_newsletters (nl_id),
			nli_issue_id INT NOT NULL,
			nli_page_id INT NOT NULL REFERENCES wiki_page (id),
			nli_publisher_id INT NOT NULL REFERENCES wiki_user (id),
			PRIMARY KEY (nli_newsletter_id, nli_issue_id)
		);
	`)
	return err
}

func (m InitialSchema) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE nl_issues;
		DROP TABLE nl_subscriptions;
		DROP TABLE nl_publishers;
		DROP TABLE nl_newsletters;
		DROP TABLE wiki_page;
		DROP TABLE wiki_user;
	`)
	return err
}
