package lifecycle

import (
	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/models"
)

/*
Permission gates for newsletter operations. Staff hold every right; everyone
else earns management rights by being a publisher of the newsletter in
question. The gates take the membership snapshot that was fetched for the
current operation, so a restore is always judged against the publisher set
as it stands now, not as it stood at deletion time.
*/

// Any active registered account may create a newsletter. Anonymous and
// suspended accounts may not.
func CanCreate(user *models.User) bool {
	return user != nil && user.IsActive()
}

func CanManage(user *models.User, newsletter *gazdata.NewsletterAndMembers) bool {
	if user == nil {
		return false
	}
	if user.IsStaff {
		return true
	}
	return newsletter.IsPublisher(user.ID)
}

func CanEdit(user *models.User, newsletter *gazdata.NewsletterAndMembers) bool {
	return CanManage(user, newsletter)
}

func CanDelete(user *models.User, newsletter *gazdata.NewsletterAndMembers) bool {
	return CanManage(user, newsletter)
}

func CanRestore(user *models.User, newsletter *gazdata.NewsletterAndMembers) bool {
	return CanManage(user, newsletter)
}

func CanAnnounce(user *models.User, newsletter *gazdata.NewsletterAndMembers) bool {
	return CanManage(user, newsletter)
}

// Subscribing requires an account; anything else about the user is the
// host wiki's problem.
func CanSubscribe(user *models.User) bool {
	return user != nil
}
