package notifications

import (
	"context"
	"time"

	"git.quillwiki.net/quill/gazette/src/config"
	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/jobs"
	"git.quillwiki.net/quill/gazette/src/logging"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/oops"
	"git.quillwiki.net/quill/gazette/src/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpillora/backoff"
)

// The seam to the host platform's notification delivery subsystem. Delivery
// failures are the deliverer's to report; Gazette retries with backoff and
// eventually abandons events that exceed the attempt budget.
type Deliverer interface {
	Deliver(ctx context.Context, notification *models.Notification, payload Payload) error
}

// A Deliverer that just logs. Stands in for the host platform in dev.
type LogDeliverer struct{}

var _ Deliverer = LogDeliverer{}

func (d LogDeliverer) Deliver(ctx context.Context, notification *models.Notification, payload Payload) error {
	logging.ExtractLogger(ctx).Info().
		Str("kind", notification.Kind.String()).
		Str("newsletter", payload.NewsletterName).
		Ints("recipients", payload.RecipientIDs).
		Msg("delivered notification")
	return nil
}

/*
Drains the notification outbox in the background. Claims a batch of pending
events, hands each to the deliverer, and marks successes as delivered.
Events use SKIP LOCKED so several dispatchers can run side by side without
double delivery.
*/
func RunDispatcher(conn *pgxpool.Pool, deliverer Deliverer) *jobs.Job {
	job := jobs.New("notification dispatcher")
	interval := time.Duration(config.Config.Notifications.DispatchIntervalSeconds) * time.Second

	go func() {
		defer func() {
			logging.LogPanics(&job.Logger)
			job.Finish()
		}()

		b := backoff.Backoff{
			Min: interval,
			Max: 5 * time.Minute,
		}
		for {
			delivered, err := DispatchPending(job.Ctx, conn, deliverer)
			if err != nil {
				job.Logger.Error().Err(err).Msg("failed to dispatch notifications")
				if utils.SleepContext(job.Ctx, b.Duration()) != nil {
					return
				}
				continue
			}
			b.Reset()

			// Keep draining while the outbox is busy; otherwise poll.
			if delivered == 0 {
				if utils.SleepContext(job.Ctx, interval) != nil {
					return
				}
			}

			select {
			case <-job.Canceled():
				return
			default:
			}
		}
	}()

	return job
}

/*
Runs one dispatch pass: claims up to the configured batch of undelivered
events and attempts delivery. Returns the number of events successfully
delivered in this pass.
*/
func DispatchPending(ctx context.Context, dbConn db.ConnOrTx, deliverer Deliverer) (int, error) {
	cfg := config.Config.Notifications

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return 0, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	pending, err := db.Query[models.Notification](ctx, tx,
		`
		---- Claim pending notifications
		UPDATE notification_outbox
		SET attempts = attempts + 1
		WHERE id IN (
			SELECT id
			FROM notification_outbox
			WHERE delivered_at IS NULL AND attempts < $1
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING $columns
		`,
		cfg.MaxAttempts, cfg.BatchSize,
	)
	if err != nil {
		return 0, oops.New(err, "failed to claim pending notifications")
	}

	delivered := 0
	for _, notification := range pending {
		payload, err := ParsePayload(notification)
		if err != nil {
			// A row we can never parse would be retried forever; log it and
			// let the attempt counter retire it.
			logging.ExtractLogger(ctx).Error().Err(err).
				Str("notification", notification.ID.String()).
				Msg("notification payload is malformed")
			continue
		}

		err = deliverer.Deliver(ctx, notification, payload)
		if err != nil {
			logging.ExtractLogger(ctx).Warn().Err(err).
				Str("notification", notification.ID.String()).
				Int("attempts", notification.Attempts).
				Msg("notification delivery failed")
			continue
		}

		_, err = tx.Exec(ctx,
			`UPDATE notification_outbox SET delivered_at = CURRENT_TIMESTAMP WHERE id = $1`,
			notification.ID,
		)
		if err != nil {
			return 0, oops.New(err, "failed to mark notification delivered")
		}
		delivered++
	}

	err = tx.Commit(ctx)
	if err != nil {
		return 0, oops.New(err, "failed to commit transaction")
	}

	return delivered, nil
}
