package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/models"
)

const MinDescriptionLength = 30

type ValidationReason string

const (
	ReasonBadContent           ValidationReason = "bad-content"
	ReasonEmptyName            ValidationReason = "empty-name"
	ReasonBadName              ValidationReason = "bad-name"
	ReasonShortDescription     ValidationReason = "short-description"
	ReasonNoMainPage           ValidationReason = "no-main-page"
	ReasonMainPageMissing      ValidationReason = "main-page-missing"
	ReasonMainPageNotCreatable ValidationReason = "main-page-not-creatable"
	ReasonUnknownPublisher     ValidationReason = "unknown-publisher"
)

// Validation failures are for editors, not for logs: the result names the
// first rule the content broke, with enough detail to fix it.
type ValidationResult struct {
	OK     bool
	Reason ValidationReason
	Detail string
}

func good() *ValidationResult {
	return &ValidationResult{OK: true}
}

func bad(reason ValidationReason, detail string) *ValidationResult {
	return &ValidationResult{Reason: reason, Detail: detail}
}

// Characters that can never appear in a page title.
var reBadTitleChars = regexp.MustCompile(`[#<>\[\]|{}]`)

func TitleIsValid(title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	return !reBadTitleChars.MatchString(title)
}

/*
Checks the structural rules that need no store access: name usable as a page
title, description length, main page present and pointing at a creatable
page title. Returns nil when everything passes.
*/
func validateStructure(name string, c *NewsletterContent) *ValidationResult {
	if strings.TrimSpace(name) == "" {
		return bad(ReasonEmptyName, "a newsletter needs a name")
	}
	if !TitleIsValid(name) {
		return bad(ReasonBadName, fmt.Sprintf("%q cannot be used as a page title", name))
	}
	if utf8.RuneCountInString(c.Description) < MinDescriptionLength {
		return bad(ReasonShortDescription, fmt.Sprintf("the description must be at least %d characters", MinDescriptionLength))
	}
	if strings.TrimSpace(c.MainPage) == "" {
		return bad(ReasonNoMainPage, "a newsletter needs a main page")
	}
	if strings.HasPrefix(c.MainPage, "Special:") || !TitleIsValid(c.MainPage) {
		return bad(ReasonMainPageNotCreatable, fmt.Sprintf("%q is not a creatable page", c.MainPage))
	}
	return nil
}

/*
Validates proposed newsletter content before a save is accepted. Pure
structural rules run first; then the main page must exist and every listed
publisher must be a registered account.

The returned result is the user-facing verdict. The error return is for
store failures only, never for bad content.
*/
func Validate(
	ctx context.Context,
	dbConn db.ConnOrTx,
	name string,
	c *NewsletterContent,
) (*ValidationResult, error) {
	if res := validateStructure(name, c); res != nil {
		return res, nil
	}

	_, err := gazdata.FetchPageByTitle(ctx, dbConn, models.NamespaceMain, c.MainPage)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return bad(ReasonMainPageMissing, fmt.Sprintf("the page %q does not exist", c.MainPage)), nil
		}
		return nil, err
	}

	_, unresolved, err := gazdata.ResolveUsernames(ctx, dbConn, c.Publishers)
	if err != nil {
		return nil, err
	}
	if len(unresolved) > 0 {
		return bad(ReasonUnknownPublisher, fmt.Sprintf("no registered account named %q", unresolved[0])), nil
	}

	return good(), nil
}
