package utils

import (
	"fmt"
	"reflect"
	"slices"
)

var ColumnTag = "db"

// column is one tagged field, found at any depth of untagged embedded
// structs.
type column struct {
	name  string
	value reflect.Value
}

func structValue(input any) reflect.Value {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	return v
}

func collectColumns(v reflect.Value, out []column) []column {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}

		tagValue := field.Tag.Get(ColumnTag)
		if tagValue == "-" {
			continue
		}

		if tagValue == "" {
			// Location and similar value types are flattened into the row.
			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				out = collectColumns(v.Field(i), out)
			}
			continue
		}

		out = append(out, column{name: tagValue, value: v.Field(i)})
	}

	return out
}

// StructTagValues lists the db tags of input in field order, descending
// into untagged embedded structs.
func StructTagValues(input any) []string {
	columns := collectColumns(structValue(input), nil)

	result := make([]string, 0, len(columns))
	for _, c := range columns {
		result = append(result, c.name)
	}

	return result
}

// StructColumns qualifies every column of input with alias for a SELECT
// list. Columns present in exprs are replaced by that expression, which is
// how computed columns such as lon/lat are read back.
func StructColumns(input any, alias string, exprs map[string]string) []string {
	names := StructTagValues(input)

	result := make([]string, 0, len(names))
	for _, name := range names {
		if expr, ok := exprs[name]; ok {
			result = append(result, expr)
			continue
		}
		result = append(result, fmt.Sprintf(columnPrefixFmt, alias, name))
	}

	return result
}

// StructToMap maps db tags to field values, descending into untagged
// embedded structs. Columns named in omit are left out.
func StructToMap(input any, omit ...string) map[string]any {
	result := make(map[string]any)

	for _, c := range collectColumns(structValue(input), nil) {
		if slices.Contains(omit, c.name) {
			continue
		}
		result[c.name] = c.value.Interface()
	}

	return result
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)

}
