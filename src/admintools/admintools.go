package admintools

import (
	"context"
	"errors"
	"fmt"
	"os"

	"git.quillwiki.net/quill/gazette/src/auth"
	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/notifications"
	"git.quillwiki.net/quill/gazette/src/website"
	"github.com/spf13/cobra"
)

func init() {
	adminCommand := &cobra.Command{
		Use:   "admin",
		Short: "Miscellaneous admin commands",
	}
	website.WebsiteCommand.AddCommand(adminCommand)

	makeTokenCommand := &cobra.Command{
		Use:   "maketoken [username] [label]",
		Short: "Mint an API token for a user",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a username.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			username := args[0]
			label := "admin-minted token"
			if len(args) > 1 {
				label = args[1]
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			user, err := gazdata.FetchUserByUsername(ctx, conn, username, gazdata.UsersQuery{AnyStatus: true})
			if err != nil {
				if errors.Is(err, db.NotFound) {
					fmt.Printf("User '%s' not found\n", username)
					os.Exit(1)
				}
				panic(err)
			}

			plaintext, token, err := auth.CreateAPIToken(ctx, conn, user.ID, label)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Token for '%s' (shown only once): %d:%s\n", user.Username, token.UserID, plaintext)
		},
	}
	adminCommand.AddCommand(makeTokenCommand)

	revokeTokensCommand := &cobra.Command{
		Use:   "revoketokens [username]",
		Short: "Revoke all of a user's API tokens and log out their sessions",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a username.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			user, err := gazdata.FetchUserByUsername(ctx, conn, args[0], gazdata.UsersQuery{AnyStatus: true})
			if err != nil {
				if errors.Is(err, db.NotFound) {
					fmt.Printf("User '%s' not found\n", args[0])
					os.Exit(1)
				}
				panic(err)
			}

			tokens, err := db.Query[models.APIToken](ctx, conn,
				`SELECT $columns FROM api_tokens WHERE user_id = $1`,
				user.ID,
			)
			if err != nil {
				panic(err)
			}
			for _, token := range tokens {
				err := auth.DeleteAPIToken(ctx, conn, user.ID, token.ID)
				if err != nil {
					panic(err)
				}
				fmt.Printf("Revoked token '%s'\n", token.Name)
			}

			// Sessions are minted from tokens, so they go too.
			err = auth.DeleteSessionsForUser(ctx, conn, user.ID)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Revoked %d tokens for '%s'\n", len(tokens), user.Username)
		},
	}
	adminCommand.AddCommand(revokeTokensCommand)

	purgeDeletedCommand := &cobra.Command{
		Use:   "purgedeleted",
		Short: "Hard-delete every soft-deleted newsletter and its dependent rows",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			inactive, err := gazdata.FetchNewsletters(ctx, conn, gazdata.NewslettersQuery{
				IncludeInactive: true,
			})
			if err != nil {
				panic(err)
			}

			numPurged := 0
			for _, newsletter := range inactive {
				if newsletter.Newsletter.Active {
					continue
				}
				err := gazdata.PurgeNewsletter(ctx, conn, newsletter.Newsletter.ID)
				if err != nil {
					panic(err)
				}
				fmt.Printf("Purged '%s' (id %d)\n", newsletter.Newsletter.Name, newsletter.Newsletter.ID)
				numPurged++
			}
			fmt.Printf("Purged %d newsletters\n", numPurged)
		},
	}
	adminCommand.AddCommand(purgeDeletedCommand)

	recountCommand := &cobra.Command{
		Use:   "recountsubscribers",
		Short: "Rebuild the denormalized subscriber counters from the subscription rows",
		Long: "Rebuild the denormalized subscriber counters from the subscription rows.\n\n" +
			"The counter column is stored negated so that an ascending index scan yields\n" +
			"most-subscribed-first ordering on listing pages.",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			tag, err := conn.Exec(ctx, `
				UPDATE nl_newsletters
				SET nl_subscriber_count = -(
					SELECT COUNT(*)
					FROM nl_subscriptions
					WHERE nls_newsletter_id = nl_id
				)
			`)
			if err != nil {
				panic(err)
			}
			fmt.Printf("Recounted subscribers for %d newsletters\n", tag.RowsAffected())
		},
	}
	adminCommand.AddCommand(recountCommand)

	dispatchCommand := &cobra.Command{
		Use:   "dispatchnotifications",
		Short: "Run one notification dispatch pass by hand",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conn := db.NewConnPool()
			defer conn.Close()

			delivered, err := notifications.DispatchPending(ctx, conn, notifications.LogDeliverer{})
			if err != nil {
				panic(err)
			}
			fmt.Printf("Delivered %d notifications\n", delivered)
		},
	}
	adminCommand.AddCommand(dispatchCommand)
}
