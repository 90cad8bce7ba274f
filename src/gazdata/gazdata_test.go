package gazdata

import (
	"context"
	"fmt"
	"os"
	"sort"
	"testing"
	"time"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/migration/migrations"
	"git.quillwiki.net/quill/gazette/src/migration/types"
	"git.quillwiki.net/quill/gazette/src/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionIdempotence(t *testing.T) {
	conn := testConn(t)
	ctx := context.Background()

	reader := seedTestUser(t, ctx, conn, "reader")
	page := seedTestPage(t, ctx, conn, 101, "Cartography")
	newsletter := seedTestNewsletter(t, ctx, conn, "Map News", page.ID)

	added, err := AddSubscriptions(ctx, conn, newsletter.ID, []int{reader.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	// Subscribing again is a silent no-op.
	added, err = AddSubscriptions(ctx, conn, newsletter.ID, []int{reader.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	subscribers, err := FetchSubscriberIDs(ctx, conn, newsletter.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{reader.ID}, subscribers)

	// The counter is stored negated and only moves by the number of rows
	// actually written.
	assert.Equal(t, -1, rawSubscriberCount(t, ctx, conn, newsletter.ID))

	removed, err := RemoveSubscriptions(ctx, conn, newsletter.ID, []int{reader.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, rawSubscriberCount(t, ctx, conn, newsletter.ID))
}

func TestPublisherRemovalKeepsSubscription(t *testing.T) {
	conn := testConn(t)
	ctx := context.Background()

	bob := seedTestUser(t, ctx, conn, "bob")
	page := seedTestPage(t, ctx, conn, 101, "Cartography")
	newsletter := seedTestNewsletter(t, ctx, conn, "Map News", page.ID)

	// Publisher addition implies subscription; callers pair the two.
	_, err := AddPublishers(ctx, conn, newsletter.ID, []int{bob.ID})
	require.NoError(t, err)
	_, err = AddSubscriptions(ctx, conn, newsletter.ID, []int{bob.ID})
	require.NoError(t, err)

	removed, err := RemovePublishers(ctx, conn, newsletter.ID, []int{bob.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	publishers, err := FetchPublisherIDs(ctx, conn, newsletter.ID)
	require.NoError(t, err)
	assert.Empty(t, publishers)

	// The auto-subscription stays behind.
	subscribers, err := FetchSubscriberIDs(ctx, conn, newsletter.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{bob.ID}, subscribers)
}

func TestUnknownMemberIsNotFound(t *testing.T) {
	conn := testConn(t)
	ctx := context.Background()

	page := seedTestPage(t, ctx, conn, 101, "Cartography")
	newsletter := seedTestNewsletter(t, ctx, conn, "Map News", page.ID)

	_, err := AddSubscriptions(ctx, conn, newsletter.ID, []int{999999})
	assert.ErrorIs(t, err, db.NotFound)

	_, err = AddPublishers(ctx, conn, newsletter.ID, []int{999999})
	assert.ErrorIs(t, err, db.NotFound)
}

func TestRestoreChecksMainPage(t *testing.T) {
	conn := testConn(t)
	ctx := context.Background()

	page := seedTestPage(t, ctx, conn, 101, "Cartography")
	first := seedTestNewsletter(t, ctx, conn, "Map News", page.ID)

	flipped, err := DeleteNewsletter(ctx, conn, first.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	// Double-soft-delete reports false, not false success.
	flipped, err = DeleteNewsletter(ctx, conn, first.ID)
	require.NoError(t, err)
	assert.False(t, flipped)

	// With the first newsletter inactive, another may claim its main page.
	second := seedTestNewsletter(t, ctx, conn, "Chart News", page.ID)

	_, err = RestoreNewsletter(ctx, conn, first.ID)
	assert.ErrorIs(t, err, ErrMainPageInUse)

	flipped, err = DeleteNewsletter(ctx, conn, second.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	restored, err := RestoreNewsletter(ctx, conn, first.ID)
	require.NoError(t, err)
	assert.True(t, restored)

	fetched, err := FetchNewsletterByName(ctx, conn, "Map News", NewslettersQuery{})
	require.NoError(t, err)
	assert.True(t, fetched.Newsletter.Active)
}

func TestIssueNumbering(t *testing.T) {
	conn := testConn(t)
	ctx := context.Background()

	alice := seedTestUser(t, ctx, conn, "alice")
	mainPage := seedTestPage(t, ctx, conn, 101, "Cartography")
	newsletter := seedTestNewsletter(t, ctx, conn, "Map News", mainPage.ID)

	issuePages := []*models.Page{
		seedTestPage(t, ctx, conn, 102, "Cartography/March"),
		seedTestPage(t, ctx, conn, 103, "Cartography/April"),
		seedTestPage(t, ctx, conn, 104, "Cartography/May"),
	}

	// With two existing issues, the next announcement gets number 3.
	for i, page := range issuePages {
		issue, err := AddIssue(ctx, conn, newsletter.ID, page.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, i+1, issue.IssueID)
	}

	count, err := CountIssues(ctx, conn, newsletter.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestResolveUsernamesLeavesInputAlone(t *testing.T) {
	conn := testConn(t)
	ctx := context.Background()

	alice := seedTestUser(t, ctx, conn, "alice")

	input := []string{"ALICE", "ghost"}
	ids, unresolved, err := ResolveUsernames(ctx, conn, input)
	require.NoError(t, err)
	assert.Equal(t, []int{alice.ID}, ids)
	assert.Equal(t, []string{"ghost"}, unresolved)

	// The caller's slice must come back exactly as given.
	assert.Equal(t, []string{"ALICE", "ghost"}, input)
}

/*
Connects to the database named by GAZETTE_TEST_DSN and applies every
migration to a throwaway schema. Tests that need a real database are skipped
when the variable is unset.
*/
func testConn(t *testing.T) *pgxpool.Pool {
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

func seedTestUser(t *testing.T, ctx context.Context, conn db.ConnOrTx, username string) *models.User {
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

func seedTestPage(t *testing.T, ctx context.Context, conn db.ConnOrTx, id int, title string) *models.Page {
	t.Helper()
	page, err := UpsertPage(ctx, conn, models.Page{
		ID:        id,
		Namespace: models.NamespaceMain,
		Title:     title,
	})
	require.NoError(t, err)
	return page
}

func seedTestNewsletter(t *testing.T, ctx context.Context, conn db.ConnOrTx, name string, mainPageID int) *models.Newsletter {
	t.Helper()
	newsletter, err := CreateNewsletter(ctx, conn, NewsletterSpec{
		Name:        name,
		Description: "A newsletter description easily past the minimum length.",
		MainPageID:  mainPageID,
	})
	require.NoError(t, err)
	return newsletter
}

func rawSubscriberCount(t *testing.T, ctx context.Context, conn db.ConnOrTx, newsletterID int) int {
	t.Helper()
	count, err := db.QueryOneScalar[int](ctx, conn,
		`SELECT nl_subscriber_count FROM nl_newsletters WHERE nl_id = $1`,
		newsletterID,
	)
	require.NoError(t, err)
	return count
}
