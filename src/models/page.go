package models

import "time"

type PageNamespace int

const (
	NamespaceMain       PageNamespace = 0
	NamespaceSpecial    PageNamespace = -1
	NamespaceNewsletter PageNamespace = 5500
)

// A page in the host wiki. Gazette does not own page storage; this table
// mirrors the pages Gazette cares about (newsletter pages and the pages
// newsletters point at).
type Page struct {
	ID int `db:"id"`

	Namespace PageNamespace `db:"namespace"`
	Title     string        `db:"title"`

	CreatedAt time.Time `db:"created_at"`

	// Set when the page itself is deleted on the wiki. Distinct from the
	// newsletter's active flag: a deleted page takes its newsletter down
	// with it, but a newsletter can also be soft-deleted on its own.
	Deleted bool `db:"deleted"`
}

func (p *Page) IsSpecial() bool {
	return p.Namespace == NamespaceSpecial
}
