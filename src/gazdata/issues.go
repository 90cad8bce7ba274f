package gazdata

import (
	"context"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/oops"
	"git.quillwiki.net/quill/gazette/src/perf"
)

/*
Inserts the next issue of a newsletter. Issue numbers are 1-based and
strictly monotonic per newsletter: the parent newsletter row is locked for
the duration of the insert, so concurrent announcements serialize instead of
both computing the same number.
*/
func AddIssue(
	ctx context.Context,
	dbConn db.ConnOrTx,
	newsletterID int,
	pageID int,
	publisherID int,
) (*models.NewsletterIssue, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Add newsletter issue").End()

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	// Serializes issue numbering for this newsletter.
	_, err = db.QueryOneScalar[int](ctx, tx,
		`SELECT nl_id FROM nl_newsletters WHERE nl_id = $1 FOR UPDATE`,
		newsletterID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to lock newsletter for issue numbering")
	}

	issue, err := db.QueryOne[models.NewsletterIssue](ctx, tx,
		`
		---- Add newsletter issue
		INSERT INTO nl_issues (nli_newsletter_id, nli_issue_id, nli_page_id, nli_publisher_id)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(nli_issue_id), 0) + 1 FROM nl_issues WHERE nli_newsletter_id = $1),
			$2,
			$3
		)
		RETURNING $columns
		`,
		newsletterID, pageID, publisherID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to insert newsletter issue")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to commit transaction")
	}

	return issue, nil
}

func FetchIssues(ctx context.Context, dbConn db.ConnOrTx, newsletterID int) ([]*models.NewsletterIssue, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Fetch newsletter issues").End()

	issues, err := db.Query[models.NewsletterIssue](ctx, dbConn,
		`
		---- Fetch newsletter issues
		SELECT $columns
		FROM nl_issues
		WHERE nli_newsletter_id = $1
		ORDER BY nli_issue_id
		`,
		newsletterID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch newsletter issues")
	}
	return issues, nil
}

func CountIssues(ctx context.Context, dbConn db.ConnOrTx, newsletterID int) (int, error) {
	count, err := db.QueryOneScalar[int](ctx, dbConn,
		`SELECT COUNT(*) FROM nl_issues WHERE nli_newsletter_id = $1`,
		newsletterID,
	)
	if err != nil {
		return 0, oops.New(err, "failed to count newsletter issues")
	}
	return count, nil
}
