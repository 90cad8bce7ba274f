package migration

import (
	"context"
	"fmt"

	"git.quillwiki.net/quill/gazette/src/auth"
	"git.quillwiki.net/quill/gazette/src/config"
	"git.quillwiki.net/quill/gazette/src/content"
	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/utils"
	"github.com/jackc/pgx/v5/tracelog"
)

// Seeds the database with sample data for local dev: a few users, a few
// pages, and a newsletter that has already published an issue.
func SampleSeed() {
	Migrate(LatestVersion())

	ctx := context.Background()
	conn := db.NewConnWithConfig(config.PostgresConfig{
		LogLevel: tracelog.LogLevelWarn,
	})
	defer conn.Close(ctx)

	fmt.Println("Creating users...")
	admin := seedUser(ctx, conn, models.User{Username: "admin", Email: "admin@quillwiki.net", IsStaff: true})
	alice := seedUser(ctx, conn, models.User{Username: "alice", Name: "Alice"})
	bob := seedUser(ctx, conn, models.User{Username: "bob", Name: "Bob"})
	charlie := seedUser(ctx, conn, models.User{Username: "charlie", Name: "Charlie"})

	fmt.Println("Creating pages...")
	mainPage := seedPage(ctx, conn, 101, models.NamespaceMain, "Cartography")
	issuePage := seedPage(ctx, conn, 102, models.NamespaceMain, "Cartography/May")
	newsletterPage := seedPage(ctx, conn, 201, models.NamespaceNewsletter, "Map News")

	fmt.Println("Creating a newsletter...")
	body := utils.Must1(content.EncodeContent(&content.NewsletterContent{
		Description: "All the latest from the cartography project, every month.",
		MainPage:    mainPage.Title,
		Publishers:  []string{alice.Username, bob.Username},
	}))
	c := utils.Must1(content.ParseContent(body))
	res := utils.Must1(content.Reconcile(ctx, conn, alice, newsletterPage, c))

	fmt.Println("Subscribing a reader...")
	utils.Must1(gazdata.AddSubscriptions(ctx, conn, res.Newsletter.ID, []int{charlie.ID}))

	fmt.Println("Announcing an issue...")
	utils.Must1(content.AnnounceIssue(ctx, conn, alice, res.Newsletter.ID, issuePage.Title, "The May edition is out!"))

	fmt.Println("Creating an API token for admin...")
	plaintext, token, err := auth.CreateAPIToken(ctx, conn, admin.ID, "dev token")
	if err != nil {
		panic(err)
	}
	fmt.Printf("Token (shown only once): %d:%s\n", token.UserID, plaintext)

	fmt.Println("Done!")
}

func seedUser(ctx context.Context, conn db.ConnOrTx, input models.User) *models.User {
	user, err := db.QueryOne[models.User](ctx, conn,
		`
		INSERT INTO wiki_user (username, name, email, is_staff, status, date_joined)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		RETURNING $columns
		`,
		input.Username,
		utils.OrDefault(input.Name, input.Username),
		utils.OrDefault(input.Email, fmt.Sprintf("%s@example.com", input.Username)),
		input.IsStaff,
		utils.OrDefault(input.Status, models.UserStatusApproved),
	)
	if err != nil {
		panic(err)
	}
	return user
}

func seedPage(ctx context.Context, conn db.ConnOrTx, id int, namespace models.PageNamespace, title string) *models.Page {
	page, err := gazdata.UpsertPage(ctx, conn, models.Page{
		ID:        id,
		Namespace: namespace,
		Title:     title,
	})
	if err != nil {
		panic(err)
	}
	return page
}
