package website

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"git.quillwiki.net/quill/gazette/src/auth"
	"git.quillwiki.net/quill/gazette/src/logging"
	"git.quillwiki.net/quill/gazette/src/oops"
	"git.quillwiki.net/quill/gazette/src/perf"
)

func panicCatcherMiddleware(h Handler) Handler {
	return func(c *RequestContext) (res ResponseData) {
		defer func() {
			if recovered := recover(); recovered != nil {
				maybeError, ok := recovered.(*error)
				var err error
				if ok {
					err = *maybeError
				} else {
					err = oops.New(nil, fmt.Sprintf("Recovered from panic with value: %v", recovered))
				}
				res = c.ErrorResponse(http.StatusInternalServerError, err)
			}
		}()

		return h(c)
	}
}

func trackRequestPerf(perfCollector *perf.PerfCollector) func(Handler) Handler {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.Perf = perf.MakeNewRequestPerf(c.Route, c.Req.Method, c.Req.URL.Path)
			c.PerfCollector = perfCollector
			defer func() {
				c.Perf.EndRequest()
				log := logging.Info()
				blockStack := make([]time.Time, 0)
				for i, block := range c.Perf.Blocks {
					for len(blockStack) > 0 && block.End.After(blockStack[len(blockStack)-1]) {
						blockStack = blockStack[:len(blockStack)-1]
					}
					log.Str(fmt.Sprintf("[%4.d] At %9.2fms", i, c.Perf.MsFromStart(&block)), fmt.Sprintf("%*.s[%s] %s (%.4fms)", len(blockStack)*2, "", block.Category, block.Description, block.DurationMs()))
					blockStack = append(blockStack, block.End)
				}
				log.Msg(fmt.Sprintf("Served [%s] %s in %.4fms", c.Perf.Method, c.Perf.Path, float64(c.Perf.End.Sub(c.Perf.Start).Nanoseconds())/1000/1000))
				perfCollector.SubmitRun(c.Perf)
			}()

			return h(c)
		}
	}
}

func needsAuth(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentUser == nil {
			return c.RejectRequest(http.StatusUnauthorized, "not-logged-in", "you must be logged in to do that")
		}

		return h(c)
	}
}

func adminsOnly(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentUser == nil || !c.CurrentUser.IsStaff {
			return FourOhFour(c)
		}

		return h(c)
	}
}

/// CSRF mitigation per the OWASP cheat sheet: session-bound token, presented
// in a header on every mutating request.
func csrfMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		csrfToken := c.Req.Header.Get(auth.CSRFHeaderName)
		if c.CurrentSession == nil || csrfToken != c.CurrentSession.CSRFToken {
			username := "<anonymous>"
			if c.CurrentUser != nil {
				username = c.CurrentUser.BestName()
			}
			c.Logger.Warn().Str("user", username).Msg("user failed CSRF validation - potential attack?")

			res := c.RejectRequest(http.StatusForbidden, "bad-csrf-token", "request was missing a valid CSRF token")
			logoutUser(c, &res)

			return res
		}

		return h(c)
	}
}

/*
Authenticates machine callers of the subscription endpoints with an API
token (Authorization: Bearer <userid>:<token>). These requests carry no
session cookie and no CSRF token.
*/
func needsAPIToken(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		presented, found := bearerToken(c.Req)
		if !found {
			return c.RejectRequest(http.StatusUnauthorized, "missing-token", "provide an API token in the Authorization header")
		}

		user, err := auth.ValidateAPIToken(c, c.Conn, presented)
		if err != nil {
			if errors.Is(err, auth.ErrBadToken) {
				return c.RejectRequest(http.StatusUnauthorized, "bad-token", "the API token is not valid")
			}
			return c.ErrorResponse(http.StatusInternalServerError, err)
		}

		c.CurrentUser = user
		return h(c)
	}
}

func bearerToken(req *http.Request) (string, bool) {
	header := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", false
	}
	return header[len(prefix):], true
}

func logContextErrors(c *RequestContext, errs ...error) {
	for _, err := range errs {
		c.Logger.Error().Timestamp().Stack().Str("Requested", c.FullUrl()).Err(err).Msg("error occurred during request")
	}
}

func logContextErrorsMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		logContextErrors(c, res.Errors...)
		return res
	}
}
