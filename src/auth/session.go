package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"git.quillwiki.net/quill/gazette/src/config"
	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/jobs"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/oops"
	"git.quillwiki.net/quill/gazette/src/utils"
	"github.com/jackc/pgx/v5/pgxpool"
)

const SessionCookieName = "QuillSession"

const CSRFHeaderName = "X-Quill-CSRF"

const sessionDuration = time.Hour * 24 * 14

func makeRandomToken(length int) string {
	tokenBytes := make([]byte, length)
	_, err := io.ReadFull(rand.Reader, tokenBytes)
	if err != nil {
		panic(err)
	}

	return base64.StdEncoding.EncodeToString(tokenBytes)[:length]
}

var ErrNoSession = errors.New("no session found")

func GetSession(ctx context.Context, conn db.ConnOrTx, id string) (*models.Session, error) {
	sess, err := db.QueryOne[models.Session](ctx, conn,
		`SELECT $columns FROM sessions WHERE id = $1 AND expires_at > CURRENT_TIMESTAMP`,
		id,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, ErrNoSession
		} else {
			return nil, oops.New(err, "failed to get session")
		}
	}

	return sess, nil
}

func CreateSession(ctx context.Context, conn db.ConnOrTx, userID int) (*models.Session, error) {
	session := models.Session{
		ID:        makeRandomToken(40),
		UserID:    userID,
		CSRFToken: makeRandomToken(30),
		ExpiresAt: time.Now().Add(sessionDuration),
	}

	_, err := conn.Exec(ctx,
		`INSERT INTO sessions (id, user_id, csrf_token, expires_at) VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.CSRFToken, session.ExpiresAt,
	)
	if err != nil {
		return nil, oops.New(err, "failed to persist session")
	}

	return &session, nil
}

// Deletes a session by id. If no session with that id exists, no
// error is returned.
func DeleteSession(ctx context.Context, conn db.ConnOrTx, id string) error {
	_, err := conn.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return oops.New(err, "failed to delete session")
	}

	return nil
}

func DeleteSessionsForUser(ctx context.Context, conn db.ConnOrTx, userID int) error {
	_, err := conn.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return oops.New(err, "failed to delete user sessions")
	}

	return nil
}

func NewSessionCookie(session *models.Session) *http.Cookie {
	return &http.Cookie{
		Name:  SessionCookieName,
		Value: session.ID,

		Domain:  config.Config.Auth.CookieDomain,
		Path:    "/",
		Expires: time.Now().Add(sessionDuration),

		Secure:   config.Config.Auth.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

var DeleteSessionCookie = &http.Cookie{
	Name:   SessionCookieName,
	Domain: config.Config.Auth.CookieDomain,
	Path:   "/",
	MaxAge: -1,
}

func DeleteExpiredSessions(ctx context.Context, conn db.ConnOrTx) (int64, error) {
	tag, err := conn.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, oops.New(err, "failed to delete expired sessions")
	}

	return tag.RowsAffected(), nil
}

func PeriodicallyDeleteExpiredSessions(conn *pgxpool.Pool) *jobs.Job {
	job := jobs.New("periodically delete expired sessions")
	go func() {
		defer job.Finish()

		t := time.NewTicker(1 * time.Minute)
		for {
			select {
			case <-t.C:
				err := func() (err error) {
					defer utils.RecoverPanicAsError(&err)

					n, err := DeleteExpiredSessions(job.Ctx, conn)
					if err == nil {
						if n > 0 {
							job.Logger.Info().Int64("num deleted sessions", n).Msg("Deleted expired sessions")
						}
					} else {
						job.Logger.Error().Err(err).Msg("Failed to delete expired sessions")
					}
					return nil
				}()
				if err != nil {
					job.Logger.Error().Err(err).Msg("Panicked in PeriodicallyDeleteExpiredSessions")
				}
			case <-job.Canceled():
				return
			}
		}
	}()
	return job
}
