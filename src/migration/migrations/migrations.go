package migrations

import (
	"git.quillwiki.net/quill/gazette/src/migration/types"
)

var All = make(map[types.MigrationVersion]types.Migration)

func registerMigration(m types.Migration) {
	All[m.Version()] = m
}
