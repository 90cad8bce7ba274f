package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContent(t *testing.T) {
	t.Run("complete body", func(t *testing.T) {
		c, err := ParseContent([]byte(`{
			"description": "All the latest from the cartography project.",
			"mainpage": "Cartography",
			"publishers": ["alice", "bob"]
		}`))
		assert.Nil(t, err)
		assert.Equal(t, "Cartography", c.MainPage)
		assert.Equal(t, []string{"alice", "bob"}, c.Publishers)
	})

	t.Run("empty publisher list is fine", func(t *testing.T) {
		c, err := ParseContent([]byte(`{
			"description": "All the latest from the cartography project.",
			"mainpage": "Cartography",
			"publishers": []
		}`))
		assert.Nil(t, err)
		assert.Len(t, c.Publishers, 0)
	})

	t.Run("missing field is an error, not a crash", func(t *testing.T) {
		_, err := ParseContent([]byte(`{
			"description": "All the latest from the cartography project.",
			"publishers": ["alice"]
		}`))
		assert.NotNil(t, err)
	})

	t.Run("wrong types rejected", func(t *testing.T) {
		_, err := ParseContent([]byte(`{
			"description": "All the latest from the cartography project.",
			"mainpage": "Cartography",
			"publishers": [1, 2]
		}`))
		assert.NotNil(t, err)
	})

	t.Run("not JSON at all", func(t *testing.T) {
		_, err := ParseContent([]byte(`== Wikitext heading ==`))
		assert.NotNil(t, err)
	})

	t.Run("unknown keys rejected", func(t *testing.T) {
		_, err := ParseContent([]byte(`{
			"description": "All the latest from the cartography project.",
			"mainpage": "Cartography",
			"publishers": [],
			"color": "purple"
		}`))
		assert.NotNil(t, err)
	})
}

func TestEncodeContent(t *testing.T) {
	raw, err := EncodeContent(&NewsletterContent{
		Description: "All the latest from the cartography project.",
		MainPage:    "Cartography",
		Publishers:  []string{"alice"},
	})
	assert.Nil(t, err)

	c, err := ParseContent(raw)
	assert.Nil(t, err)
	assert.Equal(t, "Cartography", c.MainPage)
}

func TestDiffIDs(t *testing.T) {
	const a, b, c = 1, 2, 3

	t.Run("overlapping sets", func(t *testing.T) {
		added, removed := DiffIDs([]int{a, b}, []int{b, c})
		assert.Equal(t, []int{c}, added)
		assert.Equal(t, []int{a}, removed)
	})

	t.Run("no change", func(t *testing.T) {
		added, removed := DiffIDs([]int{a, b}, []int{a, b})
		assert.Len(t, added, 0)
		assert.Len(t, removed, 0)
	})

	t.Run("order does not matter", func(t *testing.T) {
		added, removed := DiffIDs([]int{a, b}, []int{b, a})
		assert.Len(t, added, 0)
		assert.Len(t, removed, 0)
	})

	t.Run("from empty", func(t *testing.T) {
		added, removed := DiffIDs(nil, []int{a, b})
		assert.Equal(t, []int{a, b}, added)
		assert.Len(t, removed, 0)
	})

	t.Run("to empty", func(t *testing.T) {
		added, removed := DiffIDs([]int{a, b}, nil)
		assert.Len(t, added, 0)
		assert.Equal(t, []int{a, b}, removed)
	})

	t.Run("duplicates in input collapse", func(t *testing.T) {
		added, removed := DiffIDs([]int{a, a}, []int{a, b, b})
		assert.Equal(t, []int{b}, added)
		assert.Len(t, removed, 0)
	})
}

func TestValidateStructure(t *testing.T) {
	goodContent := func() *NewsletterContent {
		return &NewsletterContent{
			Description: "All the latest from the cartography project.",
			MainPage:    "Cartography",
			Publishers:  []string{"alice"},
		}
	}

	t.Run("good", func(t *testing.T) {
		assert.Nil(t, validateStructure("Map News", goodContent()))
	})

	t.Run("empty name", func(t *testing.T) {
		res := validateStructure("   ", goodContent())
		assert.NotNil(t, res)
		assert.Equal(t, ReasonEmptyName, res.Reason)
	})

	t.Run("name with title-breaking characters", func(t *testing.T) {
		res := validateStructure("Maps|News", goodContent())
		assert.NotNil(t, res)
		assert.Equal(t, ReasonBadName, res.Reason)
	})

	t.Run("short description", func(t *testing.T) {
		c := goodContent()
		c.Description = "Too short."
		res := validateStructure("Map News", c)
		assert.NotNil(t, res)
		assert.Equal(t, ReasonShortDescription, res.Reason)
	})

	t.Run("description length is counted in runes", func(t *testing.T) {
		c := goodContent()
		c.Description = strings.Repeat("ő", MinDescriptionLength)
		assert.Nil(t, validateStructure("Map News", c))
	})

	t.Run("missing main page", func(t *testing.T) {
		c := goodContent()
		c.MainPage = ""
		res := validateStructure("Map News", c)
		assert.NotNil(t, res)
		assert.Equal(t, ReasonNoMainPage, res.Reason)
	})

	t.Run("special page as main page", func(t *testing.T) {
		c := goodContent()
		c.MainPage = "Special:RecentChanges"
		res := validateStructure("Map News", c)
		assert.NotNil(t, res)
		assert.Equal(t, ReasonMainPageNotCreatable, res.Reason)
	})
}

func TestTitleIsValid(t *testing.T) {
	assert.True(t, TitleIsValid("Cartography"))
	assert.True(t, TitleIsValid("Maps & Legends"))
	assert.False(t, TitleIsValid(""))
	assert.False(t, TitleIsValid("  "))
	assert.False(t, TitleIsValid("Maps[1]"))
	assert.False(t, TitleIsValid("Maps{{t}}"))
	assert.False(t, TitleIsValid("Maps#History"))
}
