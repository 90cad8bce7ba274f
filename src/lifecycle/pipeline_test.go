package lifecycle

import (
	"context"
	"testing"

	"git.quillwiki.net/quill/gazette/src/models"
	"github.com/stretchr/testify/assert"
)

// Special pages are virtual. The pipeline must ignore them entirely; a nil
// store here proves no mirroring or handler dispatch happens.
func TestPipelineIgnoresSpecialPages(t *testing.T) {
	p := NewPipeline(nil)
	p.AddHandler(&NewsletterPages{})

	ctx := context.Background()
	page := &models.Page{
		ID:        1,
		Namespace: models.NamespaceSpecial,
		Title:     "Special:RecentChanges",
	}

	assert.Nil(t, p.PageSaved(ctx, nil, page, nil, SaveOptions{}))
	assert.Nil(t, p.PageDeleted(ctx, nil, page))
	assert.Nil(t, p.PageUndeleted(ctx, nil, page))
	assert.Nil(t, p.PageRenamed(ctx, nil, page, "Special:Old"))
}
