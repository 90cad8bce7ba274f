package gazdata

import (
	"context"
	"strings"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/oops"
	"git.quillwiki.net/quill/gazette/src/perf"
)

type UsersQuery struct {
	// Ignored when using FetchUser
	UserIDs   []int    // if empty, all users
	Usernames []string // if empty, all users

	// By default only active (confirmed/approved) accounts are returned.
	AnyStatus bool
}

/*
Fetches users according to the given query params. Provide as much
information as you have on hand.
*/
func FetchUsers(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q UsersQuery,
) ([]*models.User, error) {
	defer perf.ExtractPerf(ctx).StartBlock("SQL", "Fetch users").End()

	// Lowercase into a fresh slice; the caller's slice stays as given.
	lowerNames := make([]string, len(q.Usernames))
	for i, name := range q.Usernames {
		lowerNames[i] = strings.ToLower(name)
	}

	var qb db.QueryBuilder
	qb.Add(`
		---- Fetch users
		SELECT $columns
		FROM wiki_user
		WHERE TRUE
	`)
	if len(q.UserIDs) > 0 {
		qb.Add(`AND wiki_user.id = ANY ($?)`, q.UserIDs)
	}
	if len(lowerNames) > 0 {
		qb.Add(`AND LOWER(wiki_user.username) = ANY ($?)`, lowerNames)
	}
	if !q.AnyStatus {
		qb.Add(`AND wiki_user.status = ANY ($?)`, []models.UserStatus{
			models.UserStatusConfirmed, models.UserStatusApproved,
		})
	}

	users, err := db.Query[models.User](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch users")
	}

	return users, nil
}

/*
Fetches a single user. A wrapper around FetchUsers.

Returns db.NotFound if no result is found.
*/
func FetchUser(
	ctx context.Context,
	dbConn db.ConnOrTx,
	userID int,
	q UsersQuery,
) (*models.User, error) {
	q.UserIDs = []int{userID}

	res, err := FetchUsers(ctx, dbConn, q)
	if err != nil {
		return nil, oops.New(err, "failed to fetch user")
	}
	if len(res) == 0 {
		return nil, db.NotFound
	}
	return res[0], nil
}

/*
Fetches a single user by username. A wrapper around FetchUsers.

Returns db.NotFound if no result is found.
*/
func FetchUserByUsername(
	ctx context.Context,
	dbConn db.ConnOrTx,
	username string,
	q UsersQuery,
) (*models.User, error) {
	q.Usernames = []string{username}

	res, err := FetchUsers(ctx, dbConn, q)
	if err != nil {
		return nil, oops.New(err, "failed to fetch user")
	}
	if len(res) == 0 {
		return nil, db.NotFound
	}
	return res[0], nil
}

/*
Resolves a list of usernames to user ids, dropping any that do not resolve
to a registered account. The returned slice preserves the input order of the
names that did resolve; the second return lists the names that did not.
*/
func ResolveUsernames(
	ctx context.Context,
	dbConn db.ConnOrTx,
	usernames []string,
) (ids []int, unresolved []string, err error) {
	if len(usernames) == 0 {
		return nil, nil, nil
	}

	users, err := FetchUsers(ctx, dbConn, UsersQuery{Usernames: usernames})
	if err != nil {
		return nil, nil, err
	}

	idByName := make(map[string]int, len(users))
	for _, user := range users {
		idByName[strings.ToLower(user.Username)] = user.ID
	}

	for _, name := range usernames {
		if id, ok := idByName[strings.ToLower(name)]; ok {
			ids = append(ids, id)
		} else {
			unresolved = append(unresolved, name)
		}
	}
	return ids, unresolved, nil
}
