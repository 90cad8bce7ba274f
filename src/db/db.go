package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"git.quillwiki.net/quill/gazette/src/logging"
	"git.quillwiki.net/quill/gazette/src/oops"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

/*
A general error to be used when no results are found. This is the error
returned by QueryOne, and can generally be used by other database helpers
that fetch a single result but find nothing.
*/
var NotFound = errors.New("not found")

var pgTypeMap = pgtype.NewMap()

/*
Performs a SQL query and returns a slice of all the result rows. The query is
plain SQL with one addition: a `$columns` placeholder, which expands to the
column names of the destination type's `db:` struct tags (see the package
documentation). You must explicitly provide the type argument - this is how
it knows what Go type to map the results to, and it cannot be inferred.

Any SQL query may be performed, including INSERT and UPDATE - as long as it
returns a result set, you can use this. If the query does not return a result
set, or you simply do not care about the result set, call Exec directly on
your pgx connection.

This function always returns pointers to the values. This is convenient for
structs, but for primitive types, you may wish to use QueryScalar.
*/
func Query[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) ([]*T, error) {
	it, err := QueryIterator[T](ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	return it.ToSlice(), nil
}

/*
Identical to Query, but returns only the first result row. If there are no
rows in the result set, returns NotFound.
*/
func QueryOne[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) (*T, error) {
	rows, err := QueryIterator[T](ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result, hasRow := rows.Next()
	if !hasRow {
		return nil, NotFound
	}

	return result, nil
}

/*
Identical to Query, but returns concrete values instead of pointers. More
convenient for primitive types.
*/
func QueryScalar[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) ([]T, error) {
	rows, err := QueryIterator[T](ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []T
	for {
		val, hasRow := rows.Next()
		if !hasRow {
			break
		}
		result = append(result, *val)
	}

	return result, nil
}

/*
Identical to QueryScalar, but returns only the first result value. If there
are no rows in the result set, returns NotFound.
*/
func QueryOneScalar[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) (T, error) {
	rows, err := QueryIterator[T](ctx, conn, query, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	defer rows.Close()

	result, hasRow := rows.Next()
	if !hasRow {
		var zero T
		return zero, NotFound
	}

	return *result, nil
}

/*
Identical to Query, but returns the Iterator instead of automatically
converting the results to a slice. The iterator must be closed after use.
*/
func QueryIterator[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) (*Iterator[T], error) {
	var destExample T
	destType := reflect.TypeOf(destExample)

	query, fieldPaths, err := compileQuery(query, destType)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			panic("query exceeded its deadline")
		}
		return nil, err
	}

	it := &Iterator[T]{
		fieldPaths:       fieldPaths,
		rows:             rows,
		destType:         destType,
		destTypeIsScalar: typeIsQueryable(destType),
		closed:           make(chan struct{}, 1),
	}

	// Ensure that iterators are closed if the context is canceled. Otherwise,
	// iterators can hold open connections even after a request is canceled,
	// causing the app to deadlock.
	go func() {
		done := ctx.Done()
		if done == nil {
			return
		}
		select {
		case <-done:
			it.Close()
		case <-it.closed:
		}
	}()

	return it, nil
}

var reColumnsPlaceholder = regexp.MustCompile(`\$columns({(.*?)})?`)

func compileQuery(query string, destType reflect.Type) (compiled string, fieldPaths [][]int, err error) {
	columnsMatch := reColumnsPlaceholder.FindStringSubmatch(query)
	if columnsMatch == nil {
		return query, nil, nil
	}

	// The presence of the $columns placeholder means that the destination
	// type must be a struct, and we will plonk that struct's fields into the
	// query.
	if destType.Kind() != reflect.Struct {
		return "", nil, oops.New(nil, "$columns can only be used when querying into a struct")
	}

	prefix := columnsMatch[2]

	columnNames, fieldPaths, err := getColumnNamesAndPaths(destType, nil, prefix)
	if err != nil {
		return "", nil, err
	}

	query = reColumnsPlaceholder.ReplaceAllString(query, strings.Join(columnNames, ", "))
	return query, fieldPaths, nil
}

/*
Walks the fields of a struct type and computes, for each `db:`-tagged field,
the SQL column expression and the reflection path to the field. Nested
structs become table-qualified columns: a field at path foo -> bar with tags
"foo" and "bar" becomes the column "foo.bar".
*/
func getColumnNamesAndPaths(destType reflect.Type, pathSoFar []int, prefix string) (names []string, paths [][]int, err error) {
	if destType.Kind() == reflect.Ptr {
		destType = destType.Elem()
	}

	if destType.Kind() != reflect.Struct {
		return nil, nil, oops.New(nil, "can only get column names and paths from a struct, got type '%v' (at prefix '%v')", destType.Name(), prefix)
	}

	for _, field := range reflect.VisibleFields(destType) {
		columnName := field.Tag.Get("db")
		if columnName == "" {
			continue
		}

		path := make([]int, len(pathSoFar))
		copy(path, pathSoFar)
		path = append(path, field.Index...)

		fullName := columnName
		if prefix != "" {
			fullName = prefix + "." + columnName
		}

		fieldType := field.Type
		if fieldType.Kind() == reflect.Ptr {
			fieldType = fieldType.Elem()
		}

		if typeIsQueryable(fieldType) {
			names = append(names, fullName)
			paths = append(paths, path)
		} else if fieldType.Kind() == reflect.Struct {
			subPrefix := columnName
			if prefix != "" {
				subPrefix = prefix + "_" + columnName
			}
			subNames, subPaths, err := getColumnNamesAndPaths(fieldType, path, subPrefix)
			if err != nil {
				return nil, nil, err
			}
			names = append(names, subNames...)
			paths = append(paths, subPaths...)
		} else {
			return nil, nil, oops.New(nil, "field '%s' in type %s has invalid type '%s'", field.Name, destType, field.Type)
		}
	}

	return names, paths, nil
}

/*
Values of these kinds are ok to query even if they are not directly
understood by pgtype. This is common for custom types like:

	type NotificationKind int
*/
var queryableKinds = []reflect.Kind{
	reflect.Int,
}

/*
Checks if we are able to handle a particular type in a database query. This
applies only to primitive types and not structs, since the database only
returns individual primitive types and it is our job to stitch them back
together into structs later.
*/
func typeIsQueryable(t reflect.Type) bool {
	// If pgtype recognizes it, we don't need to dig in further for more
	// `db` tags.
	_, isRecognizedByPgtype := pgTypeMap.TypeForValue(reflect.New(t).Elem().Interface())
	if isRecognizedByPgtype {
		return true
	}
	if t == reflect.TypeOf(uuid.UUID{}) {
		return true
	}

	// pgtype doesn't recognize it, but maybe it's a primitive type we can
	// deal with.
	k := t.Kind()
	for _, qk := range queryableKinds {
		if k == qk {
			return true
		}
	}

	return false
}

type Iterator[T any] struct {
	fieldPaths       [][]int
	rows             pgx.Rows
	destType         reflect.Type
	destTypeIsScalar bool
	closed           chan struct{}
}

func (it *Iterator[T]) Next() (*T, bool) {
	hasNext := it.rows.Next()
	if !hasNext {
		it.Close()
		return nil, false
	}

	result := reflect.New(it.destType)

	vals, err := it.rows.Values()
	if err != nil {
		panic(err)
	}

	if it.destTypeIsScalar {
		// This type can be directly queried, meaning pgx recognizes it, it's
		// a simple scalar thing, and we can just take the easy way out.
		if len(vals) != 1 {
			panic(fmt.Errorf("tried to query a scalar value, but got %v values in the row", len(vals)))
		}
		setValueFromDB(result.Elem(), reflect.ValueOf(vals[0]))
		return result.Interface().(*T), true
	}

	var currentField reflect.StructField
	var currentValue reflect.Value

	// Better logging of panics in this confusing reflection process
	defer func() {
		if r := recover(); r != nil {
			if currentValue.IsValid() {
				logging.Error().
					Str("field name", currentField.Name).
					Stringer("field type", currentField.Type).
					Interface("value", currentValue.Interface()).
					Stringer("value type", currentValue.Type()).
					Msg("panic in iterator")
			}

			if currentField.Name != "" {
				panic(fmt.Errorf("panic while processing field '%s': %v", currentField.Name, r))
			} else {
				panic(r)
			}
		}
	}()

	for i, val := range vals {
		if val == nil {
			continue
		}

		var field reflect.Value
		field, currentField = followPathThroughStructs(result, it.fieldPaths[i])
		if field.Kind() == reflect.Ptr {
			field.Set(reflect.New(field.Type().Elem()))
			field = field.Elem()
		}

		// Some values still come through as pointers (like net.IPNet). We
		// know they're not nil, so we can get at the contents.
		valReflected := reflect.ValueOf(val)
		if valReflected.Kind() == reflect.Ptr {
			valReflected = valReflected.Elem()
		}
		currentValue = valReflected

		setValueFromDB(field, valReflected)

		currentField = reflect.StructField{}
		currentValue = reflect.Value{}
	}

	return result.Interface().(*T), true
}

func setValueFromDB(dest reflect.Value, value reflect.Value) {
	switch dest.Kind() {
	case reflect.Int:
		dest.SetInt(value.Int())
	default:
		dest.Set(value)
	}
}

func (it *Iterator[T]) Close() {
	it.rows.Close()
	select {
	case it.closed <- struct{}{}:
	default:
	}
}

/*
Pulls all the remaining values into a slice, and closes the iterator.
*/
func (it *Iterator[T]) ToSlice() []*T {
	defer it.Close()
	var result []*T
	for {
		row, ok := it.Next()
		if !ok {
			err := it.rows.Err()
			if err != nil {
				panic(oops.New(err, "error while iterating through db results"))
			}
			break
		}
		result = append(result, row)
	}
	return result
}

func followPathThroughStructs(structPtrVal reflect.Value, path []int) (reflect.Value, reflect.StructField) {
	if len(path) < 1 {
		panic(oops.New(nil, "can't follow an empty path"))
	}

	if structPtrVal.Kind() != reflect.Ptr || structPtrVal.Elem().Kind() != reflect.Struct {
		panic(oops.New(nil, "structPtrVal must be a pointer to a struct; got value of type %s", structPtrVal.Type()))
	}

	// more informative panic recovery
	var field reflect.StructField
	defer func() {
		if r := recover(); r != nil {
			panic(oops.New(nil, "panic at field '%s': %v", field.Name, r))
		}
	}()

	val := structPtrVal
	for _, i := range path {
		if val.Kind() == reflect.Ptr && val.Type().Elem().Kind() == reflect.Struct {
			if val.IsNil() {
				val.Set(reflect.New(val.Type().Elem()))
			}
			val = val.Elem()
		}
		field = val.Type().Field(i)
		val = val.Field(i)
	}
	return val, field
}
