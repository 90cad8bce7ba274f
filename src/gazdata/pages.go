package gazdata

import (
	"context"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/oops"
	"git.quillwiki.net/quill/gazette/src/perf"
)

/*
Fetches a single page by id.

Returns db.NotFound if no result is found.
*/
func FetchPage(ctx context.Context, dbConn db.ConnOrTx, pageID int) (*models.Page, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Fetch page").End()

	page, err := db.QueryOne[models.Page](ctx, dbConn,
		`
		---- Fetch page
		SELECT $columns
		FROM wiki_page
		WHERE id = $1 AND NOT deleted
		`,
		pageID,
	)
	if err != nil {
		return nil, err
	}
	return page, nil
}

/*
Fetches a single page by namespace and title (case-insensitive).

Returns db.NotFound if no result is found.
*/
func FetchPageByTitle(ctx context.Context, dbConn db.ConnOrTx, namespace models.PageNamespace, title string) (*models.Page, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Fetch page by title").End()

	page, err := db.QueryOne[models.Page](ctx, dbConn,
		`
		---- Fetch page by title
		SELECT $columns
		FROM wiki_page
		WHERE namespace = $1 AND LOWER(title) = LOWER($2) AND NOT deleted
		`,
		namespace, title,
	)
	if err != nil {
		return nil, err
	}
	return page, nil
}

/*
Ensures the page-mirror table has a row for the given page. The host wiki
owns page storage; Gazette only tracks the pages it has seen. Safe to call
repeatedly; an existing row is updated in place.
*/
func UpsertPage(ctx context.Context, dbConn db.ConnOrTx, page models.Page) (*models.Page, error) {
	res, err := db.QueryOne[models.Page](ctx, dbConn,
		`
		---- Upsert page
		INSERT INTO wiki_page (id, namespace, title, created_at, deleted)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, $4)
		ON CONFLICT (id) DO UPDATE
			SET namespace = EXCLUDED.namespace,
				title = EXCLUDED.title,
				deleted = EXCLUDED.deleted
		RETURNING $columns
		`,
		page.ID, page.Namespace, page.Title, page.Deleted,
	)
	if err != nil {
		return nil, oops.New(err, "failed to upsert page")
	}
	return res, nil
}

// Flips the deleted flag on a page-mirror row. Used by the delete/undelete
// lifecycle events.
func SetPageDeleted(ctx context.Context, dbConn db.ConnOrTx, pageID int, deleted bool) error {
	_, err := dbConn.Exec(ctx,
		`UPDATE wiki_page SET deleted = $2 WHERE id = $1`,
		pageID, deleted,
	)
	if err != nil {
		return oops.New(err, "failed to update page deleted flag")
	}
	return nil
}
