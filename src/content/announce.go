package content

import (
	"context"
	"errors"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/notifications"
	"git.quillwiki.net/quill/gazette/src/oops"
	"git.quillwiki.net/quill/gazette/src/perf"
)

var ErrIssuePageMissing = errors.New("the announced page does not exist")

/*
Announces a new issue of a newsletter: records the issue with the next
sequence number and queues one notification for the newsletter's current
subscribers. Both happen in the same transaction, so a failed insert never
produces a stray announcement.

The caller is responsible for the permission check; the announcing user must
already be known to be allowed to manage the newsletter.
*/
func AnnounceIssue(
	ctx context.Context,
	dbConn db.ConnOrTx,
	publisher *models.User,
	newsletterID int,
	pageTitle string,
	summary string,
) (*models.NewsletterIssue, error) {
	defer perf.ExtractPerf(ctx).StartBlock("NEWSLETTER", "Announce issue").End()

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	newsletter, err := gazdata.FetchNewsletter(ctx, tx, newsletterID, gazdata.NewslettersQuery{})
	if err != nil {
		return nil, err
	}

	// The subscriber list is read inside the transaction so the announcement
	// goes to the set as of this announcement, not a stale snapshot.
	subscriberIDs, err := gazdata.FetchSubscriberIDs(ctx, tx, newsletter.Newsletter.ID)
	if err != nil {
		return nil, err
	}

	page, err := gazdata.FetchPageByTitle(ctx, tx, models.NamespaceMain, pageTitle)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, ErrIssuePageMissing
		}
		return nil, err
	}

	issue, err := gazdata.AddIssue(ctx, tx, newsletter.Newsletter.ID, page.ID, publisher.ID)
	if err != nil {
		return nil, err
	}

	err = notifications.Enqueue(ctx, tx, notifications.Event{
		Kind:         models.NotificationIssueAnnounced,
		NewsletterID: newsletter.Newsletter.ID,
		AgentID:      publisher.ID,
		Payload: notifications.Payload{
			NewsletterName: newsletter.Newsletter.Name,
			RecipientIDs:   subscriberIDs,
			PageID:         page.ID,
			IssueNumber:    issue.IssueID,
			Summary:        summary,
		},
	})
	if err != nil {
		return nil, err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to commit transaction")
	}

	return issue, nil
}
