/*
This package contains lowish-level APIs for making database queries to our
Postgres database. It streamlines the process of mapping query results to Go
types, while allowing you to write arbitrary SQL queries.

The primary functions are Query and QueryIterator.

# Query syntax

This package allows a few small extensions to SQL syntax to streamline the
interaction between Go and Postgres.

Arguments can be provided using placeholders like $1, $2, etc. All arguments
will be safely escaped and mapped from their Go type to the correct Postgres
type. (This is a direct proxy to pgx.)

	newsletterIDs, err := db.QueryScalar[int](ctx, conn,
		`
		SELECT nl_id
		FROM nl_newsletters
		WHERE
			nl_name = ANY($1)
			AND nl_active = $2
		`,
		[]string{"Tech News", "Weekly Digest"},
		true,
	)

(This also demonstrates a useful tip: if you want to use a slice in your
query, use Postgres arrays instead of IN.)

To query multiple columns at once, you may use a struct type with
`db:"column_name"` tags, and the special $columns placeholder:

	type Newsletter struct {
		ID   int    `db:"nl_id"`
		Name string `db:"nl_name"`
	}
	newsletters, err := db.Query[Newsletter](ctx, conn, `SELECT $columns FROM ...`)
	// Resulting query:
	// SELECT nl_id, nl_name FROM ...

Sometimes a table name prefix is required on each column to disambiguate
between column names, especially when performing a JOIN. In those situations,
you can include the prefix in the $columns placeholder like $columns{prefix}:

	subs, err := db.Query[Newsletter](ctx, conn, `
		SELECT $columns{nl}
		FROM
			nl_newsletters AS nl
			JOIN nl_subscriptions AS s ON s.nls_newsletter_id = nl.nl_id
		WHERE
			s.nls_subscriber_id = $1
	`, userID)
	// Resulting query:
	// SELECT nl.nl_id, nl.nl_name FROM ...

Nested structs with `db:` tags on the struct field are mapped as joined
tables, with the field's tag as the table alias.
*/
package db
