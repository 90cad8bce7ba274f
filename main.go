package main

import (
	_ "git.quillwiki.net/quill/gazette/src/admintools"
	_ "git.quillwiki.net/quill/gazette/src/migration"
	"git.quillwiki.net/quill/gazette/src/website"
)

func main() {
	website.WebsiteCommand.Execute()
}
