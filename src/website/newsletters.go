package website

import (
	"errors"
	"net/http"
	"strconv"

	"git.quillwiki.net/quill/gazette/src/content"
	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/lifecycle"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/notifications"
	"git.quillwiki.net/quill/gazette/src/oops"
)

type newsletterJson struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	MainPageID     int    `json:"mainPageId"`
	Active         bool   `json:"active"`
	NumSubscribers int    `json:"numSubscribers"`
}

func newsletterToJson(n *models.Newsletter) newsletterJson {
	return newsletterJson{
		ID:             n.ID,
		Name:           n.Name,
		Description:    n.Description,
		MainPageID:     n.MainPageID,
		Active:         n.Active,
		NumSubscribers: n.NumSubscribers(),
	}
}

func NewsletterIndex(c *RequestContext) ResponseData {
	q := gazdata.NewslettersQuery{
		OrderBySubscribers: c.URL().Query().Get("sort") == "subscribers",
	}
	if limit, ok := queryInt(c, "limit"); ok {
		q.Limit = limit
		if offset, ok := queryInt(c, "offset"); ok {
			q.Offset = offset
		}
	}

	newsletters, err := gazdata.FetchNewsletters(c, c.Conn, q)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	items := make([]newsletterJson, len(newsletters))
	for i, n := range newsletters {
		items[i] = newsletterToJson(&n.Newsletter)
	}

	var res ResponseData
	res.WriteJson(map[string]any{
		"ok":          true,
		"newsletters": items,
	}, c.Perf)
	return res
}

func NewsletterDetail(c *RequestContext) ResponseData {
	newsletter, resErr := fetchNewsletterForRequest(c, gazdata.NewslettersQuery{IncludeMembers: true})
	if resErr != nil {
		return *resErr
	}

	issueCount, err := gazdata.CountIssues(c, c.Conn, newsletter.Newsletter.ID)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	var res ResponseData
	res.WriteJson(map[string]any{
		"ok":            true,
		"newsletter":    newsletterToJson(&newsletter.Newsletter),
		"publisherIds":  newsletter.PublisherIDs,
		"subscriberIds": newsletter.SubscriberIDs,
		"issueCount":    issueCount,
	}, c.Perf)
	return res
}

func NewsletterIssues(c *RequestContext) ResponseData {
	newsletter, resErr := fetchNewsletterForRequest(c, gazdata.NewslettersQuery{})
	if resErr != nil {
		return *resErr
	}

	issues, err := gazdata.FetchIssues(c, c.Conn, newsletter.Newsletter.ID)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	type issueJson struct {
		Number      int `json:"number"`
		PageID      int `json:"pageId"`
		PublisherID int `json:"publisherId"`
	}
	items := make([]issueJson, len(issues))
	for i, issue := range issues {
		items[i] = issueJson{Number: issue.IssueID, PageID: issue.PageID, PublisherID: issue.PublisherID}
	}

	var res ResponseData
	res.WriteJson(map[string]any{
		"ok":         true,
		"newsletter": newsletterToJson(&newsletter.Newsletter),
		"issues":     items,
	}, c.Perf)
	return res
}

func NewsletterSubscribe(c *RequestContext) ResponseData {
	if !lifecycle.CanSubscribe(c.CurrentUser) {
		return c.RejectRequest(http.StatusForbidden, "subscribe-not-allowed", "anonymous users cannot subscribe")
	}

	newsletter, resErr := fetchNewsletterForRequest(c, gazdata.NewslettersQuery{})
	if resErr != nil {
		return *resErr
	}

	// Idempotent: re-subscribing is a silent no-op.
	_, err := gazdata.AddSubscriptions(c, c.Conn, newsletter.Newsletter.ID, []int{c.CurrentUser.ID})
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	return newsletterOpResult(c, &newsletter.Newsletter)
}

func NewsletterUnsubscribe(c *RequestContext) ResponseData {
	newsletter, resErr := fetchNewsletterForRequest(c, gazdata.NewslettersQuery{})
	if resErr != nil {
		return *resErr
	}

	_, err := gazdata.RemoveSubscriptions(c, c.Conn, newsletter.Newsletter.ID, []int{c.CurrentUser.ID})
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	return newsletterOpResult(c, &newsletter.Newsletter)
}

func NewsletterRemovePublisher(c *RequestContext) ResponseData {
	newsletter, resErr := fetchNewsletterForRequest(c, gazdata.NewslettersQuery{IncludeMembers: true})
	if resErr != nil {
		return *resErr
	}

	if !lifecycle.CanManage(c.CurrentUser, newsletter) {
		return c.RejectRequest(http.StatusForbidden, "access-denied", "only publishers may remove publishers")
	}

	var body struct {
		Username string `json:"username"`
	}
	if err := c.ParseJsonBody(&body); err != nil {
		return c.RejectRequest(http.StatusBadRequest, "bad-request", "the request body must name a username")
	}

	target, err := gazdata.FetchUserByUsername(c, c.Conn, body.Username, gazdata.UsersQuery{AnyStatus: true})
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return c.RejectRequest(http.StatusNotFound, "no-such-user", "no registered account has that username")
		}
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}
	if !newsletter.IsPublisher(target.ID) {
		return c.RejectRequest(http.StatusNotFound, "not-a-publisher", "that user is not a publisher of this newsletter")
	}

	tx, err := c.Conn.Begin(c)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to start transaction"))
	}
	defer tx.Rollback(c)

	_, err = gazdata.RemovePublishers(c, tx, newsletter.Newsletter.ID, []int{target.ID})
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}
	// The removed user keeps their subscription, same as the page-save diff.
	err = notifications.Enqueue(c, tx, notifications.Event{
		Kind:         models.NotificationPublisherRemoved,
		NewsletterID: newsletter.Newsletter.ID,
		AgentID:      c.CurrentUser.ID,
		Payload: notifications.Payload{
			NewsletterName:  newsletter.Newsletter.Name,
			AffectedUserIDs: []int{target.ID},
			RecipientIDs:    []int{target.ID},
		},
	})
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	if err := tx.Commit(c); err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to commit transaction"))
	}

	return newsletterOpResult(c, &newsletter.Newsletter)
}

func NewsletterAnnounce(c *RequestContext) ResponseData {
	newsletter, resErr := fetchNewsletterForRequest(c, gazdata.NewslettersQuery{IncludeMembers: true})
	if resErr != nil {
		return *resErr
	}

	if !lifecycle.CanAnnounce(c.CurrentUser, newsletter) {
		return c.RejectRequest(http.StatusForbidden, "access-denied", "only publishers may announce issues")
	}

	var body struct {
		Page    string `json:"page"`
		Summary string `json:"summary"`
	}
	if err := c.ParseJsonBody(&body); err != nil {
		return c.RejectRequest(http.StatusBadRequest, "bad-request", "the request body must name a page and summary")
	}

	issue, err := content.AnnounceIssue(c, c.Conn, c.CurrentUser, newsletter.Newsletter.ID, body.Page, body.Summary)
	if err != nil {
		if errors.Is(err, content.ErrIssuePageMissing) {
			return c.RejectRequest(http.StatusUnprocessableEntity, "no-such-page", "the announced page does not exist")
		}
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	var res ResponseData
	res.WriteJson(map[string]any{
		"ok":             true,
		"newsletterId":   newsletter.Newsletter.ID,
		"newsletterName": newsletter.Newsletter.Name,
		"issueNumber":    issue.IssueID,
	}, c.Perf)
	return res
}

// Fetches the newsletter named by the route's id parameter. The second
// return is a ready-made error response when the fetch fails.
func fetchNewsletterForRequest(c *RequestContext, q gazdata.NewslettersQuery) (*gazdata.NewsletterAndMembers, *ResponseData) {
	id, ok := c.PathParamInt("id")
	if !ok {
		res := FourOhFour(c)
		return nil, &res
	}

	newsletter, err := gazdata.FetchNewsletter(c, c.Conn, id, q)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			res := FourOhFour(c)
			return nil, &res
		}
		res := c.ErrorResponse(http.StatusInternalServerError, err)
		return nil, &res
	}
	return newsletter, nil
}

// The structured success result for the subscription endpoints.
func newsletterOpResult(c *RequestContext, n *models.Newsletter) ResponseData {
	var res ResponseData
	res.WriteJson(map[string]any{
		"ok":             true,
		"newsletterId":   n.ID,
		"newsletterName": n.Name,
	}, c.Perf)
	return res
}

func queryInt(c *RequestContext, name string) (int, bool) {
	v, err := strconv.Atoi(c.URL().Query().Get(name))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
