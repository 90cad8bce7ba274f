package gazdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/oops"
	"git.quillwiki.net/quill/gazette/src/perf"
)

// Newsletter names are compared case-insensitively, same as wiki page
// titles.
func lowerName(name string) string {
	return strings.ToLower(name)
}

// Structural invariant failures, reported as typed errors so callers can
// turn them into user-facing conditions. The uniqueness variants can also
// come out of CreateNewsletter when a pre-check raced a concurrent insert;
// the partial unique indexes are the last line of defense.
var ErrDuplicateName = errors.New("another active newsletter already has this name")
var ErrMainPageInUse = errors.New("another active newsletter already uses this main page")

// Names of the partial unique indexes on nl_newsletters (see the initial
// migration).
const constraintActiveName = "nl_newsletters_active_name"
const constraintActiveMainPage = "nl_newsletters_active_main_page"

type NewslettersQuery struct {
	// If empty, all newsletters
	NewsletterIDs []int
	Names         []string // matched case-insensitively
	MainPageIDs   []int

	// Reads are active-only by default; the restore flow needs to see
	// soft-deleted rows too.
	IncludeInactive bool

	// Fetch the publisher/subscriber id snapshots as well. The snapshots
	// are loaded fresh on every call; nothing is cached between operations.
	IncludeMembers bool

	Limit, Offset int // if zero, no pagination
	OrderBySubscribers bool
}

// A newsletter plus the membership snapshot that was current when it was
// fetched.
type NewsletterAndMembers struct {
	Newsletter models.Newsletter

	// Only populated when the query asked for members.
	PublisherIDs  []int
	SubscriberIDs []int
}

func (n *NewsletterAndMembers) IsPublisher(userID int) bool {
	for _, id := range n.PublisherIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (n *NewsletterAndMembers) IsSubscriber(userID int) bool {
	for _, id := range n.SubscriberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func FetchNewsletters(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q NewslettersQuery,
) ([]*NewsletterAndMembers, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Fetch newsletters").End()

	var qb db.QueryBuilder
	qb.Add(`
		---- Fetch newsletters
		SELECT $columns
		FROM nl_newsletters
		WHERE TRUE
	`)
	if len(q.NewsletterIDs) > 0 {
		qb.Add(`AND nl_id = ANY ($?)`, q.NewsletterIDs)
	}
	if len(q.Names) > 0 {
		lowered := make([]string, len(q.Names))
		for i, name := range q.Names {
			lowered[i] = lowerName(name)
		}
		qb.Add(`AND LOWER(nl_name) = ANY ($?)`, lowered)
	}
	if len(q.MainPageIDs) > 0 {
		qb.Add(`AND nl_main_page_id = ANY ($?)`, q.MainPageIDs)
	}
	if !q.IncludeInactive {
		qb.Add(`AND nl_active`)
	}
	if q.OrderBySubscribers {
		// The counter is stored negated, so ascending order is
		// most-subscribed first.
		qb.Add(`ORDER BY nl_subscriber_count ASC, nl_name ASC`)
	} else {
		qb.Add(`ORDER BY nl_name ASC`)
	}
	if q.Limit > 0 {
		qb.Add(`LIMIT $? OFFSET $?`, q.Limit, q.Offset)
	}

	newsletters, err := db.Query[models.Newsletter](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch newsletters")
	}

	res := make([]*NewsletterAndMembers, len(newsletters))
	for i, newsletter := range newsletters {
		res[i] = &NewsletterAndMembers{Newsletter: *newsletter}
	}

	if q.IncludeMembers && len(res) > 0 {
		ids := make([]int, len(res))
		byID := make(map[int]*NewsletterAndMembers, len(res))
		for i, nl := range res {
			ids[i] = nl.Newsletter.ID
			byID[nl.Newsletter.ID] = nl
		}

		publishers, err := db.Query[models.NewsletterPublisher](ctx, dbConn,
			`
			---- Fetch newsletter publishers
			SELECT $columns
			FROM nl_publishers
			WHERE nlp_newsletter_id = ANY ($1)
			ORDER BY nlp_publisher_id
			`,
			ids,
		)
		if err != nil {
			return nil, oops.New(err, "failed to fetch newsletter publishers")
		}
		for _, p := range publishers {
			nl := byID[p.NewsletterID]
			nl.PublisherIDs = append(nl.PublisherIDs, p.PublisherID)
		}

		subscriptions, err := db.Query[models.NewsletterSubscription](ctx, dbConn,
			`
			---- Fetch newsletter subscriptions
			SELECT $columns
			FROM nl_subscriptions
			WHERE nls_newsletter_id = ANY ($1)
			ORDER BY nls_subscriber_id
			`,
			ids,
		)
		if err != nil {
			return nil, oops.New(err, "failed to fetch newsletter subscriptions")
		}
		for _, s := range subscriptions {
			nl := byID[s.NewsletterID]
			nl.SubscriberIDs = append(nl.SubscriberIDs, s.SubscriberID)
		}
	}

	return res, nil
}

/*
Fetches a single newsletter by id. A wrapper around FetchNewsletters.

Returns db.NotFound if no result is found.
*/
func FetchNewsletter(
	ctx context.Context,
	dbConn db.ConnOrTx,
	newsletterID int,
	q NewslettersQuery,
) (*NewsletterAndMembers, error) {
	q.NewsletterIDs = []int{newsletterID}
	q.Limit = 1
	q.Offset = 0

	res, err := FetchNewsletters(ctx, dbConn, q)
	if err != nil {
		return nil, oops.New(err, "failed to fetch newsletter")
	}
	if len(res) == 0 {
		return nil, db.NotFound
	}
	return res[0], nil
}

/*
Fetches a single newsletter by name. A wrapper around FetchNewsletters.

Returns db.NotFound if no result is found.
*/
func FetchNewsletterByName(
	ctx context.Context,
	dbConn db.ConnOrTx,
	name string,
	q NewslettersQuery,
) (*NewsletterAndMembers, error) {
	q.Names = []string{name}
	q.Limit = 1
	q.Offset = 0

	res, err := FetchNewsletters(ctx, dbConn, q)
	if err != nil {
		return nil, oops.New(err, "failed to fetch newsletter")
	}
	if len(res) == 0 {
		return nil, db.NotFound
	}
	return res[0], nil
}

type NewsletterSpec struct {
	Name        string
	Description string
	MainPageID  int
}

/*
Inserts a new newsletter row. The caller is expected to have pre-checked the
name and main-page uniqueness invariants, but if the pre-check was skipped
or raced a concurrent insert, the unique indexes catch it and this returns
ErrDuplicateName or ErrMainPageInUse instead of crashing.
*/
func CreateNewsletter(
	ctx context.Context,
	dbConn db.ConnOrTx,
	spec NewsletterSpec,
) (*models.Newsletter, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Create newsletter").End()

	newsletter, err := db.QueryOne[models.Newsletter](ctx, dbConn,
		`
		---- Create newsletter
		INSERT INTO nl_newsletters (nl_name, nl_desc, nl_main_page_id, nl_active, nl_subscriber_count)
		VALUES ($1, $2, $3, TRUE, 0)
		RETURNING $columns
		`,
		spec.Name, spec.Description, spec.MainPageID,
	)
	if err != nil {
		if db.IsUniqueViolation(err, constraintActiveName) {
			return nil, ErrDuplicateName
		}
		if db.IsUniqueViolation(err, constraintActiveMainPage) {
			return nil, ErrMainPageInUse
		}
		return nil, oops.New(err, "failed to create newsletter")
	}

	return newsletter, nil
}

// Reports whether some active newsletter other than excludeID already has
// the given name. Pass excludeID = 0 to consider all active newsletters.
func NewsletterNameInUse(ctx context.Context, dbConn db.ConnOrTx, name string, excludeID int) (bool, error) {
	count, err := db.QueryOneScalar[int](ctx, dbConn,
		`
		---- Check newsletter name uniqueness
		SELECT COUNT(*)
		FROM nl_newsletters
		WHERE LOWER(nl_name) = $1 AND nl_active AND nl_id != $2
		`,
		lowerName(name), excludeID,
	)
	if err != nil {
		return false, oops.New(err, "failed to check name uniqueness")
	}
	return count > 0, nil
}

// Reports whether some active newsletter other than excludeID already claims
// the given main page.
func NewsletterMainPageInUse(ctx context.Context, dbConn db.ConnOrTx, mainPageID int, excludeID int) (bool, error) {
	count, err := db.QueryOneScalar[int](ctx, dbConn,
		`
		---- Check newsletter main page uniqueness
		SELECT COUNT(*)
		FROM nl_newsletters
		WHERE nl_main_page_id = $1 AND nl_active AND nl_id != $2
		`,
		mainPageID, excludeID,
	)
	if err != nil {
		return false, oops.New(err, "failed to check main page uniqueness")
	}
	return count > 0, nil
}

func UpdateNewsletterDescription(ctx context.Context, dbConn db.ConnOrTx, newsletterID int, description string) error {
	_, err := dbConn.Exec(ctx,
		`UPDATE nl_newsletters SET nl_desc = $2 WHERE nl_id = $1`,
		newsletterID, description,
	)
	if err != nil {
		return oops.New(err, "failed to update newsletter description")
	}
	return nil
}

func UpdateNewsletterMainPage(ctx context.Context, dbConn db.ConnOrTx, newsletterID int, mainPageID int) error {
	_, err := dbConn.Exec(ctx,
		`UPDATE nl_newsletters SET nl_main_page_id = $2 WHERE nl_id = $1`,
		newsletterID, mainPageID,
	)
	if err != nil {
		if db.IsUniqueViolation(err, constraintActiveMainPage) {
			return ErrMainPageInUse
		}
		return oops.New(err, "failed to update newsletter main page")
	}
	return nil
}

// Renames the relational row to follow a wiki page rename. Returns
// db.NotFound if no active newsletter has the old name; the page title and
// row name are assumed never to diverge outside this one seam, so callers
// treat that as a hard error.
func RenameNewsletter(ctx context.Context, dbConn db.ConnOrTx, oldName string, newName string) error {
	tag, err := dbConn.Exec(ctx,
		`
		UPDATE nl_newsletters
		SET nl_name = $2
		WHERE LOWER(nl_name) = $1 AND nl_active
		`,
		lowerName(oldName), newName,
	)
	if err != nil {
		if db.IsUniqueViolation(err, constraintActiveName) {
			return ErrDuplicateName
		}
		return oops.New(err, "failed to rename newsletter")
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound
	}
	return nil
}

/*
Soft-deletes a newsletter. Returns whether a row actually flipped: deleting
an already-inactive newsletter reports false rather than false success,
because the active precondition lives in the UPDATE's WHERE clause.
*/
func DeleteNewsletter(ctx context.Context, dbConn db.ConnOrTx, newsletterID int) (bool, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Soft-delete newsletter").End()

	tag, err := dbConn.Exec(ctx,
		`UPDATE nl_newsletters SET nl_active = FALSE WHERE nl_id = $1 AND nl_active`,
		newsletterID,
	)
	if err != nil {
		return false, oops.New(err, "failed to soft-delete newsletter")
	}
	return tag.RowsAffected() > 0, nil
}

/*
Restores a soft-deleted newsletter. Fails with ErrMainPageInUse or
ErrDuplicateName if another active newsletter claimed the main page or name
while this one was inactive. Returns false if the newsletter was not
inactive in the first place.
*/
func RestoreNewsletter(ctx context.Context, dbConn db.ConnOrTx, newsletterID int) (bool, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Restore newsletter").End()

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return false, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	target, err := FetchNewsletter(ctx, tx, newsletterID, NewslettersQuery{IncludeInactive: true})
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return false, db.NotFound
		}
		return false, err
	}
	if target.Newsletter.Active {
		return false, nil
	}

	if inUse, err := NewsletterMainPageInUse(ctx, tx, target.Newsletter.MainPageID, newsletterID); err != nil {
		return false, err
	} else if inUse {
		return false, ErrMainPageInUse
	}
	if inUse, err := NewsletterNameInUse(ctx, tx, target.Newsletter.Name, newsletterID); err != nil {
		return false, err
	} else if inUse {
		return false, ErrDuplicateName
	}

	tag, err := tx.Exec(ctx,
		`UPDATE nl_newsletters SET nl_active = TRUE WHERE nl_id = $1 AND NOT nl_active`,
		newsletterID,
	)
	if err != nil {
		return false, oops.New(err, "failed to restore newsletter")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return false, oops.New(err, "failed to commit transaction")
	}

	return tag.RowsAffected() > 0, nil
}

/*
Hard-deletes a newsletter row and all dependent rows. Only the maintenance
sweep may call this, and only for newsletters that are already inactive.
*/
func PurgeNewsletter(ctx context.Context, dbConn db.ConnOrTx, newsletterID int) error {
	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	active, err := db.QueryOneScalar[bool](ctx, tx,
		`SELECT nl_active FROM nl_newsletters WHERE nl_id = $1`,
		newsletterID,
	)
	if err != nil {
		return oops.New(err, "failed to fetch newsletter for purge")
	}
	if active {
		return fmt.Errorf("refusing to purge active newsletter %d", newsletterID)
	}

	for _, q := range []string{
		`DELETE FROM nl_issues WHERE nli_newsletter_id = $1`,
		`DELETE FROM nl_subscriptions WHERE nls_newsletter_id = $1`,
		`DELETE FROM nl_publishers WHERE nlp_newsletter_id = $1`,
		`DELETE FROM nl_newsletters WHERE nl_id = $1`,
	} {
		_, err := tx.Exec(ctx, q, newsletterID)
		if err != nil {
			return oops.New(err, "failed to purge newsletter")
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit transaction")
	}
	return nil
}
