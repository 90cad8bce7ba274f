package website

import (
	"errors"
	"net/http"

	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/lifecycle"
	"git.quillwiki.net/quill/gazette/src/models"
)

/*
The host wiki reports page lifecycle events here after its own storage has
staged the change. A non-2xx response tells the wiki to reject the revision,
which is what keeps the page text and the newsletter rows moving together.
*/

type pageEventBody struct {
	PageID    int    `json:"pageId"`
	Namespace int    `json:"namespace"`
	Title     string `json:"title"`

	// Save only.
	Body                string `json:"body"`
	ConfirmNoPublishers bool   `json:"confirmNoPublishers"`

	// Rename only.
	OldTitle string `json:"oldTitle"`
}

func (b *pageEventBody) page() *models.Page {
	return &models.Page{
		ID:        b.PageID,
		Namespace: models.PageNamespace(b.Namespace),
		Title:     b.Title,
	}
}

func PageSaved(c *RequestContext) ResponseData {
	var body pageEventBody
	if err := c.ParseJsonBody(&body); err != nil {
		return c.RejectRequest(http.StatusBadRequest, "bad-request", "malformed page event")
	}

	err := c.Pipeline.PageSaved(c, c.CurrentUser, body.page(), []byte(body.Body), lifecycle.SaveOptions{
		ConfirmNoPublishers: body.ConfirmNoPublishers,
	})
	if err != nil {
		return pageEventError(c, err)
	}

	var res ResponseData
	res.WriteJson(map[string]any{"ok": true}, c.Perf)
	return res
}

func PageDeleted(c *RequestContext) ResponseData {
	var body pageEventBody
	if err := c.ParseJsonBody(&body); err != nil {
		return c.RejectRequest(http.StatusBadRequest, "bad-request", "malformed page event")
	}

	err := c.Pipeline.PageDeleted(c, c.CurrentUser, body.page())
	if err != nil {
		return pageEventError(c, err)
	}

	var res ResponseData
	res.WriteJson(map[string]any{"ok": true}, c.Perf)
	return res
}

func PageUndeleted(c *RequestContext) ResponseData {
	var body pageEventBody
	if err := c.ParseJsonBody(&body); err != nil {
		return c.RejectRequest(http.StatusBadRequest, "bad-request", "malformed page event")
	}

	err := c.Pipeline.PageUndeleted(c, c.CurrentUser, body.page())
	if err != nil {
		return pageEventError(c, err)
	}

	var res ResponseData
	res.WriteJson(map[string]any{"ok": true}, c.Perf)
	return res
}

func PageRenamed(c *RequestContext) ResponseData {
	var body pageEventBody
	if err := c.ParseJsonBody(&body); err != nil || body.OldTitle == "" {
		return c.RejectRequest(http.StatusBadRequest, "bad-request", "malformed page event")
	}

	err := c.Pipeline.PageRenamed(c, c.CurrentUser, body.page(), body.OldTitle)
	if err != nil {
		return pageEventError(c, err)
	}

	var res ResponseData
	res.WriteJson(map[string]any{"ok": true}, c.Perf)
	return res
}

func pageEventError(c *RequestContext, err error) ResponseData {
	var validationErr *lifecycle.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return c.RejectRequest(http.StatusUnprocessableEntity, string(validationErr.Result.Reason), validationErr.Result.Detail)
	case errors.Is(err, lifecycle.ErrAccessDenied):
		return c.RejectRequest(http.StatusForbidden, "access-denied", err.Error())
	case errors.Is(err, lifecycle.ErrNeedsConfirmation):
		return c.RejectRequest(http.StatusConflict, "needs-confirmation", err.Error())
	case errors.Is(err, gazdata.ErrDuplicateName):
		return c.RejectRequest(http.StatusConflict, "duplicate-name", err.Error())
	case errors.Is(err, gazdata.ErrMainPageInUse):
		return c.RejectRequest(http.StatusConflict, "main-page-in-use", err.Error())
	default:
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}
}
