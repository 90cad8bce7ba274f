package migrations

import (
	"context"
	"time"

	"git.quillwiki.net/quill/gazette/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(AddSessionsAndTokens{})
}

type AddSessionsAndTokens struct{}

func (m AddSessionsAndTokens) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2025, 5, 13, 9, 2, 41, 0, time.UTC))
}

func (m AddSessionsAndTokens) Name() string {
	return "AddSessionsAndTokens"
}

func (m AddSessionsAndTokens) Description() string {
	return "Adds browser sessions and API tokens"
}

func (m AddSessionsAndTokens) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE sessions (
			id VARCHAR(40) PRIMARY KEY,
			user_id INT NOT NULL REFERENCES wiki_user (id) ON DELETE CASCADE,
			csrf_token VARCHAR(30) NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX sessions_by_user ON sessions (user_id);

		CREATE TABLE api_tokens (
			id SERIAL PRIMARY KEY,
			user_id INT NOT NULL REFERENCES wiki_user (id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL DEFAULT '',
			token_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_used_at TIMESTAMP WITH TIME ZONE
		);
		CREATE INDEX api_tokens_by_user ON api_tokens (user_id);
	`)
	return err
}

func (m AddSessionsAndTokens) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE api_tokens;
		DROP TABLE sessions;
	`)
	return err
}
