package lifecycle

import (
	"testing"

	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/models"
	"github.com/stretchr/testify/assert"
)

func TestPermissionGates(t *testing.T) {
	publisher := &models.User{ID: 1, Username: "alice", Status: models.UserStatusApproved}
	bystander := &models.User{ID: 2, Username: "bob", Status: models.UserStatusApproved}
	admin := &models.User{ID: 3, Username: "root", Status: models.UserStatusApproved, IsStaff: true}
	suspended := &models.User{ID: 4, Username: "mallory", Status: models.UserStatusBanned}

	newsletter := &gazdata.NewsletterAndMembers{
		Newsletter:   models.Newsletter{ID: 10, Name: "Map News", Active: true},
		PublisherIDs: []int{publisher.ID},
	}

	t.Run("create", func(t *testing.T) {
		assert.True(t, CanCreate(publisher))
		assert.True(t, CanCreate(bystander))
		assert.False(t, CanCreate(nil))
		assert.False(t, CanCreate(suspended))
	})

	t.Run("manage rights follow publisher membership", func(t *testing.T) {
		assert.True(t, CanEdit(publisher, newsletter))
		assert.False(t, CanEdit(bystander, newsletter))
		assert.False(t, CanEdit(nil, newsletter))

		assert.True(t, CanDelete(publisher, newsletter))
		assert.False(t, CanDelete(bystander, newsletter))

		assert.True(t, CanAnnounce(publisher, newsletter))
		assert.False(t, CanAnnounce(bystander, newsletter))
	})

	t.Run("staff hold every right", func(t *testing.T) {
		assert.True(t, CanEdit(admin, newsletter))
		assert.True(t, CanDelete(admin, newsletter))
		assert.True(t, CanRestore(admin, newsletter))
		assert.True(t, CanAnnounce(admin, newsletter))
	})

	t.Run("restore judged against the current publisher set", func(t *testing.T) {
		// bob became a publisher after the deletion; the snapshot carries the
		// current set, and that is what counts.
		current := &gazdata.NewsletterAndMembers{
			Newsletter:   models.Newsletter{ID: 10, Name: "Map News"},
			PublisherIDs: []int{bystander.ID},
		}
		assert.True(t, CanRestore(bystander, current))
		assert.False(t, CanRestore(publisher, current))
	})

	t.Run("subscribe needs an account", func(t *testing.T) {
		assert.True(t, CanSubscribe(bystander))
		assert.False(t, CanSubscribe(nil))
	})
}
