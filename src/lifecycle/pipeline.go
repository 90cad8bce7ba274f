package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"git.quillwiki.net/quill/gazette/src/content"
	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/models"
)

var ErrAccessDenied = errors.New("you are not allowed to do that")

// Raised when a save would leave a newsletter with no publishers at all.
// The caller must re-submit with explicit confirmation.
var ErrNeedsConfirmation = errors.New("this save removes the last publisher; confirm to proceed")

// A content problem the editor can fix. Carries the structured verdict so
// the API layer can show the specific rule that was broken.
type ValidationError struct {
	Result *content.ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid newsletter content: %s (%s)", e.Result.Reason, e.Result.Detail)
}

type SaveOptions struct {
	// Acknowledges dropping the publisher set to zero.
	ConfirmNoPublishers bool
}

/*
One method per page lifecycle event. Handlers are registered with the
Pipeline, which owns the save/delete/undelete/rename flow and invokes each
handler whose namespace matches the page.
*/
type PageEventHandler interface {
	Namespace() models.PageNamespace

	PageSaved(ctx context.Context, agent *models.User, page *models.Page, body []byte, opts SaveOptions) error
	PageDeleted(ctx context.Context, agent *models.User, page *models.Page) error
	PageUndeleted(ctx context.Context, agent *models.User, page *models.Page) error
	PageRenamed(ctx context.Context, agent *models.User, page *models.Page, oldTitle string) error
}

/*
The page-event orchestrator. All page writes flow through here: the page
mirror is updated first, then every handler registered for the page's
namespace runs. A handler error aborts the event; the API layer maps it to
a response and the page revision is not accepted.
*/
type Pipeline struct {
	conn     db.ConnOrTx
	handlers []PageEventHandler
}

func NewPipeline(conn db.ConnOrTx) *Pipeline {
	return &Pipeline{conn: conn}
}

func (p *Pipeline) AddHandler(h PageEventHandler) {
	p.handlers = append(p.handlers, h)
}

func (p *Pipeline) PageSaved(ctx context.Context, agent *models.User, page *models.Page, body []byte, opts SaveOptions) error {
	// Special pages are virtual; there is no row to mirror and no handler
	// namespace can match them.
	if page.IsSpecial() {
		return nil
	}
	_, err := gazdata.UpsertPage(ctx, p.conn, *page)
	if err != nil {
		return err
	}
	for _, h := range p.handlers {
		if h.Namespace() != page.Namespace {
			continue
		}
		err := h.PageSaved(ctx, agent, page, body, opts)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) PageDeleted(ctx context.Context, agent *models.User, page *models.Page) error {
	if page.IsSpecial() {
		return nil
	}
	err := gazdata.SetPageDeleted(ctx, p.conn, page.ID, true)
	if err != nil {
		return err
	}
	for _, h := range p.handlers {
		if h.Namespace() != page.Namespace {
			continue
		}
		err := h.PageDeleted(ctx, agent, page)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) PageUndeleted(ctx context.Context, agent *models.User, page *models.Page) error {
	if page.IsSpecial() {
		return nil
	}
	err := gazdata.SetPageDeleted(ctx, p.conn, page.ID, false)
	if err != nil {
		return err
	}
	for _, h := range p.handlers {
		if h.Namespace() != page.Namespace {
			continue
		}
		err := h.PageUndeleted(ctx, agent, page)
		if err != nil {
			return err
		}
	}
	return nil
}

// page carries the new title; oldTitle is what the page was called before.
func (p *Pipeline) PageRenamed(ctx context.Context, agent *models.User, page *models.Page, oldTitle string) error {
	if page.IsSpecial() {
		return nil
	}
	_, err := gazdata.UpsertPage(ctx, p.conn, *page)
	if err != nil {
		return err
	}
	for _, h := range p.handlers {
		if h.Namespace() != page.Namespace {
			continue
		}
		err := h.PageRenamed(ctx, agent, page, oldTitle)
		if err != nil {
			return err
		}
	}
	return nil
}
