package models

// One newsletter: a named publication tied to a wiki main page, managed by
// publishers and delivered to subscribers.
//
// The authoritative description/main page/publisher set lives in the
// newsletter's wiki page JSON content; these rows are the derived relational
// mirror, reconciled on every page save. See the content package.
type Newsletter struct {
	ID int `db:"nl_id"`

	Name        string `db:"nl_name"` // unique among active newsletters
	Description string `db:"nl_desc"`
	MainPageID  int    `db:"nl_main_page_id"` // at most one active newsletter per main page

	// Soft-delete flag. Inactive newsletters keep their rows (and may later
	// be restored); only the maintenance sweep hard-deletes them.
	Active bool `db:"nl_active"`

	// Denormalized count of subscribers, stored NEGATED: listing pages sort
	// ascending on this column's index to get most-subscribed first. Use
	// NumSubscribers to read it.
	SubscriberCount int `db:"nl_subscriber_count"`
}

func (n *Newsletter) NumSubscribers() int {
	return -n.SubscriberCount
}

type NewsletterPublisher struct {
	NewsletterID int `db:"nlp_newsletter_id"`
	PublisherID  int `db:"nlp_publisher_id"`
}

type NewsletterSubscription struct {
	NewsletterID int `db:"nls_newsletter_id"`
	SubscriberID int `db:"nls_subscriber_id"`
}

// One announced edition of a newsletter.
type NewsletterIssue struct {
	NewsletterID int `db:"nli_newsletter_id"`
	IssueID      int `db:"nli_issue_id"` // 1-based, per newsletter
	PageID       int `db:"nli_page_id"`
	PublisherID  int `db:"nli_publisher_id"`
}
