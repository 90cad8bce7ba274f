package content

import (
	"context"
	"errors"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/logging"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/notifications"
	"git.quillwiki.net/quill/gazette/src/oops"
	"git.quillwiki.net/quill/gazette/src/perf"
)

// What a reconciliation did. Membership diffs are reported so callers (and
// tests) can see exactly which publisher changes went out.
type ReconcileResult struct {
	Newsletter *models.Newsletter
	Created    bool

	DescriptionChanged bool
	MainPageChanged    bool
	PublishersAdded    []int
	PublishersRemoved  []int
}

/*
Brings the relational rows in line with a newsletter page's JSON content.
Runs once per page save in the newsletter namespace, after validation has
already accepted the content.

The whole routine runs in one transaction: either the row, the membership
diffs, and the queued notifications all land, or none of them do. The save
pipeline only accepts the page revision once this commits, so the page and
the rows cannot drift apart through a mid-routine failure.
*/
func Reconcile(
	ctx context.Context,
	dbConn db.ConnOrTx,
	agent *models.User,
	page *models.Page,
	c *NewsletterContent,
) (*ReconcileResult, error) {
	defer perf.ExtractPerf(ctx).StartBlock("NEWSLETTER", "Reconcile page content").End()

	if agent == nil {
		return nil, oops.New(nil, "newsletter pages cannot be saved anonymously")
	}

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	mainPage, err := gazdata.FetchPageByTitle(ctx, tx, models.NamespaceMain, c.MainPage)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, oops.New(nil, "newsletter main page %q does not exist", c.MainPage)
		}
		return nil, err
	}

	var res *ReconcileResult
	existing, err := gazdata.FetchNewsletterByName(ctx, tx, page.Title, gazdata.NewslettersQuery{
		IncludeMembers: true,
	})
	if err == nil {
		res, err = reconcileExisting(ctx, tx, agent, existing, mainPage, c)
	} else if errors.Is(err, db.NotFound) {
		res, err = reconcileNew(ctx, tx, agent, page, mainPage, c)
	}
	if err != nil {
		return nil, err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to commit transaction")
	}

	return res, nil
}

// The first valid save of a newsletter page creates the row and makes the
// saving user its first publisher (and, through that, its first subscriber).
func reconcileNew(
	ctx context.Context,
	tx db.ConnOrTx,
	agent *models.User,
	page *models.Page,
	mainPage *models.Page,
	c *NewsletterContent,
) (*ReconcileResult, error) {
	newsletter, err := gazdata.CreateNewsletter(ctx, tx, gazdata.NewsletterSpec{
		Name:        page.Title,
		Description: c.Description,
		MainPageID:  mainPage.ID,
	})
	if err != nil {
		return nil, err
	}

	_, err = gazdata.AddPublishers(ctx, tx, newsletter.ID, []int{agent.ID})
	if err != nil {
		return nil, err
	}
	_, err = gazdata.AddSubscriptions(ctx, tx, newsletter.ID, []int{agent.ID})
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{
		Newsletter: newsletter,
		Created:    true,
	}

	// The listed publishers besides the saver come in through the ordinary
	// diff path, against the row we just made. The saver is pinned into the
	// effective set: a first save whose content omits its own author must not
	// strip the publisher membership we just granted.
	withMembers := &gazdata.NewsletterAndMembers{
		Newsletter:    *newsletter,
		PublisherIDs:  []int{agent.ID},
		SubscriberIDs: []int{agent.ID},
	}
	diffRes, err := reconcilePublishers(ctx, tx, agent, withMembers, c, agent.ID)
	if err != nil {
		return nil, err
	}
	res.PublishersAdded = diffRes.PublishersAdded
	res.PublishersRemoved = diffRes.PublishersRemoved

	return res, nil
}

func reconcileExisting(
	ctx context.Context,
	tx db.ConnOrTx,
	agent *models.User,
	existing *gazdata.NewsletterAndMembers,
	mainPage *models.Page,
	c *NewsletterContent,
) (*ReconcileResult, error) {
	newsletter := &existing.Newsletter
	res := &ReconcileResult{Newsletter: newsletter}

	if newsletter.Description != c.Description {
		err := gazdata.UpdateNewsletterDescription(ctx, tx, newsletter.ID, c.Description)
		if err != nil {
			return nil, err
		}
		newsletter.Description = c.Description
		res.DescriptionChanged = true
	}

	if newsletter.MainPageID != mainPage.ID {
		// The new main page gets the same uniqueness treatment as on
		// creation; the unique index backs this up if two saves race.
		if inUse, err := gazdata.NewsletterMainPageInUse(ctx, tx, mainPage.ID, newsletter.ID); err != nil {
			return nil, err
		} else if inUse {
			return nil, gazdata.ErrMainPageInUse
		}
		err := gazdata.UpdateNewsletterMainPage(ctx, tx, newsletter.ID, mainPage.ID)
		if err != nil {
			return nil, err
		}
		newsletter.MainPageID = mainPage.ID
		res.MainPageChanged = true
	}

	diffRes, err := reconcilePublishers(ctx, tx, agent, existing, c)
	if err != nil {
		return nil, err
	}
	res.PublishersAdded = diffRes.PublishersAdded
	res.PublishersRemoved = diffRes.PublishersRemoved

	return res, nil
}

/*
Applies the publisher list from the page content to the stored publisher
set. New publishers are auto-subscribed; removed publishers keep their
subscription. One notification event per direction, carrying the full list
of affected ids.

pinnedIDs are treated as listed regardless of the content: the creation path
pins the saving user so they always end up a publisher of the newsletter
they just created. On the update path nothing is pinned and publishers can
remove anyone, themselves included.
*/
func reconcilePublishers(
	ctx context.Context,
	tx db.ConnOrTx,
	agent *models.User,
	existing *gazdata.NewsletterAndMembers,
	c *NewsletterContent,
	pinnedIDs ...int,
) (*ReconcileResult, error) {
	newsletter := &existing.Newsletter
	res := &ReconcileResult{Newsletter: newsletter}

	newIDs, unresolved, err := gazdata.ResolveUsernames(ctx, tx, c.Publishers)
	if err != nil {
		return nil, err
	}
	newIDs = append(newIDs, pinnedIDs...)
	if len(unresolved) > 0 {
		// Validation should have caught these before the save was accepted;
		// a name that unregistered in between is dropped, not fatal.
		logging.ExtractLogger(ctx).Warn().
			Strs("usernames", unresolved).
			Str("newsletter", newsletter.Name).
			Msg("dropping unresolvable publisher usernames")
	}

	added, removed := DiffIDs(existing.PublisherIDs, newIDs)

	if len(added) > 0 {
		_, err := gazdata.AddPublishers(ctx, tx, newsletter.ID, added)
		if err != nil {
			return nil, err
		}
		_, err = gazdata.AddSubscriptions(ctx, tx, newsletter.ID, added)
		if err != nil {
			return nil, err
		}
		err = notifications.Enqueue(ctx, tx, notifications.Event{
			Kind:         models.NotificationPublisherAdded,
			NewsletterID: newsletter.ID,
			AgentID:      agent.ID,
			Payload: notifications.Payload{
				NewsletterName:  newsletter.Name,
				AffectedUserIDs: added,
				RecipientIDs:    added,
			},
		})
		if err != nil {
			return nil, err
		}
		res.PublishersAdded = added
	}

	if len(removed) > 0 {
		_, err := gazdata.RemovePublishers(ctx, tx, newsletter.ID, removed)
		if err != nil {
			return nil, err
		}
		err = notifications.Enqueue(ctx, tx, notifications.Event{
			Kind:         models.NotificationPublisherRemoved,
			NewsletterID: newsletter.ID,
			AgentID:      agent.ID,
			Payload: notifications.Payload{
				NewsletterName:  newsletter.Name,
				AffectedUserIDs: removed,
				RecipientIDs:    removed,
			},
		})
		if err != nil {
			return nil, err
		}
		res.PublishersRemoved = removed
	}

	return res, nil
}

/*
Set difference over publisher id lists: added = new − old, removed =
old − new. Order follows the input lists, so results are stable for a given
page content.
*/
func DiffIDs(oldIDs, newIDs []int) (added, removed []int) {
	inOld := make(map[int]bool, len(oldIDs))
	for _, id := range oldIDs {
		inOld[id] = true
	}
	inNew := make(map[int]bool, len(newIDs))
	for _, id := range newIDs {
		inNew[id] = true
	}

	for _, id := range newIDs {
		if !inOld[id] {
			added = append(added, id)
		}
	}
	for _, id := range oldIDs {
		if !inNew[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}
