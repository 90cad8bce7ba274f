package website

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogContextErrors(t *testing.T) {
	err1 := errors.New("test error 1")
	err2 := errors.New("test error 2")

	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	logger.Print("sanity check")

	assert.Contains(t, buf.String(), "sanity check")

	router := &Router{}
	routes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			func(h Handler) Handler {
				return func(c *RequestContext) (res ResponseData) {
					c.Logger = &logger
					return logContextErrorsMiddleware(h)(c)
				}
			},
		},
	}

	routes.GET(regexp.MustCompile("^/test$"), func(c *RequestContext) ResponseData {
		return c.ErrorResponse(http.StatusInternalServerError, err1, err2)
	})

	srv := httptest.NewServer(router)
	defer srv.Close()

	res, err := http.Get(srv.URL + "/test")
	if assert.Nil(t, err) {
		defer res.Body.Close()

		t.Logf("Log contents: %s", buf.String())

		assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

		assert.Contains(t, buf.String(), err1.Error())
		assert.Contains(t, buf.String(), err2.Error())
	}
}

func TestRouterParams(t *testing.T) {
	router := &Router{}
	routes := RouteBuilder{Router: router}

	var gotID string
	routes.GET(regexp.MustCompile(`^/newsletters/(?P<id>\d+)$`), func(c *RequestContext) ResponseData {
		gotID = c.PathParams["id"]
		var res ResponseData
		res.WriteJson(map[string]any{"ok": true}, nil)
		return res
	})
	routes.AnyMethod(regexp.MustCompile(`^`), FourOhFour)

	srv := httptest.NewServer(router)
	defer srv.Close()

	res, err := http.Get(srv.URL + "/newsletters/42")
	if assert.Nil(t, err) {
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "42", gotID)
	}

	res, err = http.Get(srv.URL + "/newsletters/forty-two")
	if assert.Nil(t, err) {
		res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/newsletters/1/subscribe", nil)

	_, found := bearerToken(req)
	assert.False(t, found)

	req.Header.Set("Authorization", "Bearer 3:sometoken")
	token, found := bearerToken(req)
	assert.True(t, found)
	assert.Equal(t, "3:sometoken", token)

	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, found = bearerToken(req)
	assert.False(t, found)
}
