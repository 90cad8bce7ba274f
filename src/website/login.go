package website

import (
	"errors"
	"net/http"

	"git.quillwiki.net/quill/gazette/src/auth"
)

/*
Exchanges an API token for a browser session. The host wiki is the identity
provider; Gazette never sees passwords. A caller who can present a valid
token gets a session cookie and the CSRF token to go with it.
*/
func Login(c *RequestContext) ResponseData {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.ParseJsonBody(&body); err != nil || body.Token == "" {
		return c.RejectRequest(http.StatusBadRequest, "bad-request", "the request body must carry a token")
	}

	user, err := auth.ValidateAPIToken(c, c.Conn, body.Token)
	if err != nil {
		if errors.Is(err, auth.ErrBadToken) {
			return c.RejectRequest(http.StatusUnauthorized, "bad-token", "the API token is not valid")
		}
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	session, err := auth.CreateSession(c, c.Conn, user.ID)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	var res ResponseData
	res.SetCookie(auth.NewSessionCookie(session))
	addCORSHeaders(c, &res)
	res.WriteJson(map[string]any{
		"ok":        true,
		"userId":    user.ID,
		"username":  user.Username,
		"csrfToken": session.CSRFToken,
	}, c.Perf)
	return res
}

func Logout(c *RequestContext) ResponseData {
	var res ResponseData
	logoutUser(c, &res)
	res.WriteJson(map[string]any{"ok": true}, c.Perf)
	return res
}
