package lifecycle

import (
	"context"
	"errors"

	"git.quillwiki.net/quill/gazette/src/content"
	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/logging"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/oops"
)

// Keeps newsletter rows in sync with their pages. Registered with the
// Pipeline for the newsletter namespace.
type NewsletterPages struct {
	Conn db.ConnOrTx
}

var _ PageEventHandler = &NewsletterPages{}

func (h *NewsletterPages) Namespace() models.PageNamespace {
	return models.NamespaceNewsletter
}

/*
Validates the saved body, checks the agent's rights, and reconciles the
relational rows. Any error here rejects the page revision, so the page and
the rows only ever move together.
*/
func (h *NewsletterPages) PageSaved(ctx context.Context, agent *models.User, page *models.Page, body []byte, opts SaveOptions) error {
	c, err := content.ParseContent(body)
	if err != nil {
		return &ValidationError{Result: &content.ValidationResult{
			Reason: content.ReasonBadContent,
			Detail: err.Error(),
		}}
	}

	verdict, err := content.Validate(ctx, h.Conn, page.Title, c)
	if err != nil {
		return err
	}
	if !verdict.OK {
		return &ValidationError{Result: verdict}
	}

	existing, err := gazdata.FetchNewsletterByName(ctx, h.Conn, page.Title, gazdata.NewslettersQuery{
		IncludeMembers: true,
	})
	if err != nil && !errors.Is(err, db.NotFound) {
		return err
	}

	if existing == nil {
		if !CanCreate(agent) {
			return ErrAccessDenied
		}
	} else {
		if !CanEdit(agent, existing) {
			return ErrAccessDenied
		}
		if len(existing.PublisherIDs) > 0 && len(c.Publishers) == 0 && !opts.ConfirmNoPublishers {
			return ErrNeedsConfirmation
		}
	}

	_, err = content.Reconcile(ctx, h.Conn, agent, page, c)
	return err
}

// Deleting a newsletter page soft-deletes the newsletter. The row survives
// for restore; only the maintenance sweep ever hard-deletes.
func (h *NewsletterPages) PageDeleted(ctx context.Context, agent *models.User, page *models.Page) error {
	newsletter, err := gazdata.FetchNewsletterByName(ctx, h.Conn, page.Title, gazdata.NewslettersQuery{
		IncludeMembers: true,
	})
	if err != nil {
		if errors.Is(err, db.NotFound) {
			// The page never reconciled into a newsletter. Nothing to do.
			return nil
		}
		return err
	}

	if !CanDelete(agent, newsletter) {
		return ErrAccessDenied
	}

	flipped, err := gazdata.DeleteNewsletter(ctx, h.Conn, newsletter.Newsletter.ID)
	if err != nil {
		return err
	}
	if !flipped {
		logging.ExtractLogger(ctx).Warn().
			Str("newsletter", newsletter.Newsletter.Name).
			Msg("newsletter was already inactive on page delete")
	}
	return nil
}

/*
Undeleting a newsletter page restores the newsletter, provided no other
active newsletter claimed its name or main page in the meantime. The
permission check runs against the publisher set as it stands now, which may
differ from the set at deletion time.
*/
func (h *NewsletterPages) PageUndeleted(ctx context.Context, agent *models.User, page *models.Page) error {
	newsletter, err := gazdata.FetchNewsletterByName(ctx, h.Conn, page.Title, gazdata.NewslettersQuery{
		IncludeInactive: true,
		IncludeMembers:  true,
	})
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil
		}
		return err
	}
	if newsletter.Newsletter.Active {
		return nil
	}

	if !CanRestore(agent, newsletter) {
		return ErrAccessDenied
	}

	_, err = gazdata.RestoreNewsletter(ctx, h.Conn, newsletter.Newsletter.ID)
	return err
}

// A rename must always find its row; the page title and the row name never
// diverge outside this seam, so a miss is a hard error rather than a quiet
// no-op.
func (h *NewsletterPages) PageRenamed(ctx context.Context, agent *models.User, page *models.Page, oldTitle string) error {
	err := gazdata.RenameNewsletter(ctx, h.Conn, oldTitle, page.Title)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return oops.New(nil, "no newsletter row found for renamed page %q", oldTitle)
		}
		return err
	}
	return nil
}
