package db

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaths(t *testing.T) {
	type CustomInt int
	type S struct {
		I   int        `db:"I"`
		PI  *int       `db:"PI"`
		CI  CustomInt  `db:"CI"`
		PCI *CustomInt `db:"PCI"`
		B   bool       `db:"B"`
		PB  *bool      `db:"PB"`

		NoTag int
	}
	type Nested struct {
		S  S  `db:"S"`
		PS *S `db:"PS"`

		NoTag S
	}

	names, paths, err := getColumnNamesAndPaths(reflect.TypeOf(Nested{}), nil, "")
	if assert.Nil(t, err) {
		assert.Equal(t, []string{
			"S.I", "S.PI",
			"S.CI", "S.PCI",
			"S.B", "S.PB",
			"PS.I", "PS.PI",
			"PS.CI", "PS.PCI",
			"PS.B", "PS.PB",
		}, names)
		assert.Equal(t, [][]int{
			{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}, {0, 5},
			{1, 0}, {1, 1}, {1, 2}, {1, 3}, {1, 4}, {1, 5},
		}, paths)
		assert.True(t, len(names) == len(paths))
	}

	testStruct := Nested{}
	for i, path := range paths {
		val, field := followPathThroughStructs(reflect.ValueOf(&testStruct), path)
		assert.True(t, val.IsValid())
		assert.True(t, strings.Contains(names[i], field.Name))
	}
}

func TestCompileQuery(t *testing.T) {
	type newsletterRow struct {
		ID   int    `db:"nl_id"`
		Name string `db:"nl_name"`
	}

	t.Run("no placeholder", func(t *testing.T) {
		q, paths, err := compileQuery("SELECT nl_id FROM nl_newsletters", reflect.TypeOf(0))
		assert.Nil(t, err)
		assert.Nil(t, paths)
		assert.Equal(t, "SELECT nl_id FROM nl_newsletters", q)
	})
	t.Run("bare columns", func(t *testing.T) {
		q, _, err := compileQuery("SELECT $columns FROM nl_newsletters", reflect.TypeOf(newsletterRow{}))
		assert.Nil(t, err)
		assert.Equal(t, "SELECT nl_id, nl_name FROM nl_newsletters", q)
	})
	t.Run("prefixed columns", func(t *testing.T) {
		q, _, err := compileQuery("SELECT $columns{nl} FROM nl_newsletters AS nl", reflect.TypeOf(newsletterRow{}))
		assert.Nil(t, err)
		assert.Equal(t, "SELECT nl.nl_id, nl.nl_name FROM nl_newsletters AS nl", q)
	})
	t.Run("columns into a scalar is an error", func(t *testing.T) {
		_, _, err := compileQuery("SELECT $columns FROM nl_newsletters", reflect.TypeOf(0))
		assert.NotNil(t, err)
	})
}

func TestQueryBuilder(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		var qb QueryBuilder
		qb.Add("SELECT stuff FROM thing WHERE id = $?", 3)
		qb.Add("AND foo = $?", "bar")
		qb.Add("AND baz = $?", true)
		assert.Equal(t, "SELECT stuff FROM thing WHERE id = $1\nAND foo = $2\nAND baz = $3\n", qb.String())
		assert.Equal(t, []any{3, "bar", true}, qb.Args())
	})
	t.Run("too few arguments", func(t *testing.T) {
		assert.Panics(t, func() {
			var qb QueryBuilder
			qb.Add("HELLO $? $? $?", 1, 2)
		})
	})
	t.Run("too many arguments", func(t *testing.T) {
		assert.Panics(t, func() {
			var qb QueryBuilder
			qb.Add("HELLO $? $? $?", 1, 2, 3, 4)
		})
	})
}
