package content

import (
	"bytes"
	"encoding/json"
	"strings"

	"git.quillwiki.net/quill/gazette/src/oops"
	"git.quillwiki.net/quill/gazette/src/utils"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

/*
A newsletter page's body is a JSON document that the page's editors maintain
by hand. It is the authoritative copy of the description, main page, and
publisher list; the relational rows are derived from it on every save.
*/
type NewsletterContent struct {
	Description string   `json:"description"`
	MainPage    string   `json:"mainpage"`
	Publishers  []string `json:"publishers"`
}

const contentSchemaJson = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"description": { "type": "string" },
		"mainpage": { "type": "string" },
		"publishers": {
			"type": "array",
			"items": { "type": "string" }
		}
	},
	"required": ["description", "mainpage", "publishers"],
	"additionalProperties": false
}`

var contentSchema = utils.Must1(compileContentSchema())

func compileContentSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(contentSchemaJson))
	if err != nil {
		return nil, oops.New(err, "failed to parse newsletter content schema")
	}
	compiler := jsonschema.NewCompiler()
	err = compiler.AddResource("newsletter-content.schema.json", doc)
	if err != nil {
		return nil, oops.New(err, "failed to add newsletter content schema resource")
	}
	schema, err := compiler.Compile("newsletter-content.schema.json")
	if err != nil {
		return nil, oops.New(err, "failed to compile newsletter content schema")
	}
	return schema, nil
}

/*
Parses and schema-checks a raw newsletter page body. Any error means the
body is not valid newsletter content; a missing field is a content problem
for the editor to fix, never a crash.
*/
func ParseContent(raw []byte) (*NewsletterContent, error) {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, oops.New(err, "newsletter content is not valid JSON")
	}
	err = contentSchema.Validate(instance)
	if err != nil {
		return nil, oops.New(err, "newsletter content does not match the expected shape")
	}

	var content NewsletterContent
	err = json.Unmarshal(raw, &content)
	if err != nil {
		return nil, oops.New(err, "failed to unmarshal newsletter content")
	}
	return &content, nil
}

func EncodeContent(content *NewsletterContent) ([]byte, error) {
	raw, err := json.MarshalIndent(content, "", "\t")
	if err != nil {
		return nil, oops.New(err, "failed to marshal newsletter content")
	}
	return raw, nil
}
