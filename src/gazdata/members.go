package gazdata

import (
	"context"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/oops"
	"git.quillwiki.net/quill/gazette/src/perf"
)

/*
Batch membership operations. Each takes the full list of affected user ids
and issues one multi-row insert or delete, plus the matching adjustment to
the denormalized subscriber counter where applicable. The insert variants
are idempotent: ids that are already members are silently skipped, and the
counter only moves by the number of rows actually written.
*/

// Subscribes the given users. Returns the number of subscriptions actually
// added (already-subscribed users don't count).
func AddSubscriptions(ctx context.Context, dbConn db.ConnOrTx, newsletterID int, userIDs []int) (int, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Add subscriptions").End()

	if len(userIDs) == 0 {
		return 0, nil
	}

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return 0, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`
		INSERT INTO nl_subscriptions (nls_newsletter_id, nls_subscriber_id)
		SELECT $1, uid FROM unnest($2::int[]) AS uid
		ON CONFLICT DO NOTHING
		`,
		newsletterID, userIDs,
	)
	if err != nil {
		// A bogus newsletter or user id surfaces as an FK violation.
		if db.IsForeignKeyViolation(err) {
			return 0, db.NotFound
		}
		return 0, oops.New(err, "failed to add subscriptions")
	}
	added := int(tag.RowsAffected())

	// The counter is negated, so subscribing decrements it.
	_, err = tx.Exec(ctx,
		`UPDATE nl_newsletters SET nl_subscriber_count = nl_subscriber_count - $2 WHERE nl_id = $1`,
		newsletterID, added,
	)
	if err != nil {
		return 0, oops.New(err, "failed to adjust subscriber count")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return 0, oops.New(err, "failed to commit transaction")
	}

	return added, nil
}

// Unsubscribes the given users unconditionally. Returns the number of
// subscriptions actually removed.
func RemoveSubscriptions(ctx context.Context, dbConn db.ConnOrTx, newsletterID int, userIDs []int) (int, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Remove subscriptions").End()

	if len(userIDs) == 0 {
		return 0, nil
	}

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return 0, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`
		DELETE FROM nl_subscriptions
		WHERE nls_newsletter_id = $1 AND nls_subscriber_id = ANY ($2)
		`,
		newsletterID, userIDs,
	)
	if err != nil {
		return 0, oops.New(err, "failed to remove subscriptions")
	}
	removed := int(tag.RowsAffected())

	_, err = tx.Exec(ctx,
		`UPDATE nl_newsletters SET nl_subscriber_count = nl_subscriber_count + $2 WHERE nl_id = $1`,
		newsletterID, removed,
	)
	if err != nil {
		return 0, oops.New(err, "failed to adjust subscriber count")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return 0, oops.New(err, "failed to commit transaction")
	}

	return removed, nil
}

// Grants publisher membership to the given users. Does NOT subscribe them;
// the reconciliation routine pairs this with AddSubscriptions because
// publisher addition implies subscription.
func AddPublishers(ctx context.Context, dbConn db.ConnOrTx, newsletterID int, userIDs []int) (int, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Add publishers").End()

	if len(userIDs) == 0 {
		return 0, nil
	}

	tag, err := dbConn.Exec(ctx,
		`
		INSERT INTO nl_publishers (nlp_newsletter_id, nlp_publisher_id)
		SELECT $1, uid FROM unnest($2::int[]) AS uid
		ON CONFLICT DO NOTHING
		`,
		newsletterID, userIDs,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return 0, db.NotFound
		}
		return 0, oops.New(err, "failed to add publishers")
	}
	return int(tag.RowsAffected()), nil
}

// Revokes publisher membership. Subscriptions are deliberately left alone:
// a removed publisher keeps receiving issues until they unsubscribe.
func RemovePublishers(ctx context.Context, dbConn db.ConnOrTx, newsletterID int, userIDs []int) (int, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Remove publishers").End()

	if len(userIDs) == 0 {
		return 0, nil
	}

	tag, err := dbConn.Exec(ctx,
		`
		DELETE FROM nl_publishers
		WHERE nlp_newsletter_id = $1 AND nlp_publisher_id = ANY ($2)
		`,
		newsletterID, userIDs,
	)
	if err != nil {
		return 0, oops.New(err, "failed to remove publishers")
	}
	return int(tag.RowsAffected()), nil
}

func FetchPublisherIDs(ctx context.Context, dbConn db.ConnOrTx, newsletterID int) ([]int, error) {
	ids, err := db.QueryScalar[int](ctx, dbConn,
		`
		---- Fetch publisher ids
		SELECT nlp_publisher_id
		FROM nl_publishers
		WHERE nlp_newsletter_id = $1
		ORDER BY nlp_publisher_id
		`,
		newsletterID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch publisher ids")
	}
	return ids, nil
}

func FetchSubscriberIDs(ctx context.Context, dbConn db.ConnOrTx, newsletterID int) ([]int, error) {
	ids, err := db.QueryScalar[int](ctx, dbConn,
		`
		---- Fetch subscriber ids
		SELECT nls_subscriber_id
		FROM nl_subscriptions
		WHERE nls_newsletter_id = $1
		ORDER BY nls_subscriber_id
		`,
		newsletterID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch subscriber ids")
	}
	return ids, nil
}
