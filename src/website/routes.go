package website

import (
	"net/http"
	"regexp"

	"git.quillwiki.net/quill/gazette/src/lifecycle"
	"git.quillwiki.net/quill/gazette/src/perf"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewGazetteRoutes(conn *pgxpool.Pool, perfCollector *perf.PerfCollector) http.Handler {
	router := &Router{}

	pipeline := lifecycle.NewPipeline(conn)
	pipeline.AddHandler(&lifecycle.NewsletterPages{Conn: conn})

	anyRoutes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			setDeps(conn, pipeline),
			trackRequestPerf(perfCollector),
			logContextErrorsMiddleware,
			panicCatcherMiddleware,
			loadCommonData,
		},
	}
	authRoutes := anyRoutes.WithMiddleware(needsAuth)
	csrfRoutes := authRoutes.WithMiddleware(csrfMiddleware)
	adminRoutes := authRoutes.WithMiddleware(adminsOnly)

	// Machine callers authenticate with an API token instead of a session;
	// no cookies, no CSRF.
	tokenRoutes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			setDeps(conn, pipeline),
			trackRequestPerf(perfCollector),
			logContextErrorsMiddleware,
			panicCatcherMiddleware,
			needsAPIToken,
		},
	}

	anyRoutes.GET(regexp.MustCompile(`^/$`), Index)
	anyRoutes.GET(regexp.MustCompile(`^/newsletters$`), NewsletterIndex)
	anyRoutes.GET(regexp.MustCompile(`^/newsletters/(?P<id>\d+)$`), NewsletterDetail)
	anyRoutes.GET(regexp.MustCompile(`^/newsletters/(?P<id>\d+)/issues$`), NewsletterIssues)

	anyRoutes.POST(regexp.MustCompile(`^/login$`), Login)
	authRoutes.POST(regexp.MustCompile(`^/logout$`), Logout)

	tokenRoutes.POST(regexp.MustCompile(`^/api/newsletters/(?P<id>\d+)/subscribe$`), NewsletterSubscribe)
	tokenRoutes.POST(regexp.MustCompile(`^/api/newsletters/(?P<id>\d+)/unsubscribe$`), NewsletterUnsubscribe)
	tokenRoutes.POST(regexp.MustCompile(`^/api/newsletters/(?P<id>\d+)/remove-publisher$`), NewsletterRemovePublisher)

	csrfRoutes.POST(regexp.MustCompile(`^/newsletters/(?P<id>\d+)/announce$`), NewsletterAnnounce)

	// The seam to the host wiki's page pipeline. Every page write in the
	// newsletter namespace comes through here.
	csrfRoutes.POST(regexp.MustCompile(`^/pages/saved$`), PageSaved)
	csrfRoutes.POST(regexp.MustCompile(`^/pages/deleted$`), PageDeleted)
	csrfRoutes.POST(regexp.MustCompile(`^/pages/undeleted$`), PageUndeleted)
	csrfRoutes.POST(regexp.MustCompile(`^/pages/renamed$`), PageRenamed)

	adminRoutes.GET(regexp.MustCompile(`^/admin/perf$`), PerfMon)

	anyRoutes.AnyMethod(regexp.MustCompile(`^`), FourOhFour)

	return router
}

func setDeps(conn *pgxpool.Pool, pipeline *lifecycle.Pipeline) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.Conn = conn
			c.Pipeline = pipeline
			return h(c)
		}
	}
}
