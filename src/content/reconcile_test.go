package content

import (
	"context"
	"fmt"
	"os"
	"sort"
	"testing"
	"time"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/migration/migrations"
	"git.quillwiki.net/quill/gazette/src/migration/types"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/notifications"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileFirstSave(t *testing.T) {
	conn := reconcileTestConn(t)
	ctx := context.Background()

	alice := reconcileTestUser(t, ctx, conn, "alice")
	bob := reconcileTestUser(t, ctx, conn, "bob")
	reconcileTestPage(t, ctx, conn, 101, models.NamespaceMain, "Cartography")
	nlPage := reconcileTestPage(t, ctx, conn, 201, models.NamespaceNewsletter, "Map News")

	// The content's publisher list omits the saver.
	c := &NewsletterContent{
		Description: "All the latest from the cartography project, every month.",
		MainPage:    "Cartography",
		Publishers:  []string{"bob"},
	}
	res, err := Reconcile(ctx, conn, alice, nlPage, c)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, []int{bob.ID}, res.PublishersAdded)
	assert.Empty(t, res.PublishersRemoved)

	// The saver is always a publisher of the newsletter they just created,
	// listed or not.
	publishers, err := gazdata.FetchPublisherIDs(ctx, conn, res.Newsletter.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{alice.ID, bob.ID}, publishers)

	subscribers, err := gazdata.FetchSubscriberIDs(ctx, conn, res.Newsletter.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{alice.ID, bob.ID}, subscribers)

	// A first save never announces a removal.
	assert.Equal(t, 0, countOutbox(t, ctx, conn, models.NotificationPublisherRemoved))
	assert.Equal(t, 1, countOutbox(t, ctx, conn, models.NotificationPublisherAdded))
}

func TestReconcilePublisherRemoval(t *testing.T) {
	conn := reconcileTestConn(t)
	ctx := context.Background()

	alice := reconcileTestUser(t, ctx, conn, "alice")
	bob := reconcileTestUser(t, ctx, conn, "bob")
	reconcileTestPage(t, ctx, conn, 101, models.NamespaceMain, "Cartography")
	nlPage := reconcileTestPage(t, ctx, conn, 201, models.NamespaceNewsletter, "Map News")

	c := &NewsletterContent{
		Description: "All the latest from the cartography project, every month.",
		MainPage:    "Cartography",
		Publishers:  []string{"alice", "bob"},
	}
	res, err := Reconcile(ctx, conn, alice, nlPage, c)
	require.NoError(t, err)
	require.True(t, res.Created)

	// Edit the list from [alice, bob] to [alice].
	c.Publishers = []string{"alice"}
	res, err = Reconcile(ctx, conn, alice, nlPage, c)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Empty(t, res.PublishersAdded)
	assert.Equal(t, []int{bob.ID}, res.PublishersRemoved)

	// Exactly one removal event, naming bob.
	removedEvents, err := db.Query[models.Notification](ctx, conn,
		`SELECT $columns FROM notification_outbox WHERE kind = $1`,
		models.NotificationPublisherRemoved,
	)
	require.NoError(t, err)
	require.Len(t, removedEvents, 1)
	payload, err := notifications.ParsePayload(removedEvents[0])
	require.NoError(t, err)
	assert.Equal(t, []int{bob.ID}, payload.AffectedUserIDs)

	// Bob loses publisher membership but stays subscribed.
	publishers, err := gazdata.FetchPublisherIDs(ctx, conn, res.Newsletter.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{alice.ID}, publishers)

	subscribers, err := gazdata.FetchSubscriberIDs(ctx, conn, res.Newsletter.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{alice.ID, bob.ID}, subscribers)
}

// Same throwaway-schema harness as the data layer's tests.
func reconcileTestConn(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("GAZETTE_TEST_DSN")
	if dsn == "" {
		t.Skip("set GAZETTE_TEST_DSN to run database tests")
	}

	ctx := context.Background()
	pgcfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	schema := fmt.Sprintf("gazette_test_%d", time.Now().UnixNano())
	pgcfg.ConnConfig.RuntimeParams["search_path"] = schema

	conn, err := pgxpool.NewWithConfig(ctx, pgcfg)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema))
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		conn.Close()
	})

	var versions []types.MigrationVersion
	for version := range migrations.All {
		versions = append(versions, version)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Before(versions[j])
	})
	for _, version := range versions {
		tx, err := conn.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, migrations.All[version].Up(ctx, tx))
		require.NoError(t, tx.Commit(ctx))
	}

	return conn
}

func reconcileTestUser(t *testing.T, ctx context.Context, conn db.ConnOrTx, username string) *models.User {
	t.Helper()
	user, err := db.QueryOne[models.User](ctx, conn,
		`
		INSERT INTO wiki_user (username, status)
		VALUES ($1, $2)
		RETURNING $columns
		`,
		username, models.UserStatusApproved,
	)
	require.NoError(t, err)
	return user
}

func reconcileTestPage(t *testing.T, ctx context.Context, conn db.ConnOrTx, id int, namespace models.PageNamespace, title string) *models.Page {
	t.Helper()
	page, err := gazdata.UpsertPage(ctx, conn, models.Page{
		ID:        id,
		Namespace: namespace,
		Title:     title,
	})
	require.NoError(t, err)
	return page
}

func countOutbox(t *testing.T, ctx context.Context, conn db.ConnOrTx, kind models.NotificationKind) int {
	t.Helper()
	count, err := db.QueryOneScalar[int](ctx, conn,
		`SELECT COUNT(*) FROM notification_outbox WHERE kind = $1`,
		kind,
	)
	require.NoError(t, err)
	return count
}
