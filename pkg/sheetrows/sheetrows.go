// Package sheetrows maps spreadsheet value ranges to and from tagged structs.
//
// The first row of a range is the header. Struct fields carry a `sheet:"column"` tag; header
// cells are matched to tags case-insensitively after trimming. Rows that are entirely blank
// are skipped.
package sheetrows

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const tagName = "sheet"

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// Decode maps every data row in values to a T. T must be a struct.
func Decode[T any](values [][]interface{}) ([]T, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("sheetrows: %T is not a struct", zero)
	}

	if len(values) == 0 {
		return []T{}, nil
	}

	// Build mapping of column index to struct field index
	fields := fieldsByColumn(t)
	columns := make(map[int]int)
	for i, header := range values[0] {
		name := strings.ToLower(strings.TrimSpace(cellString(header)))
		if idx, ok := fields[name]; ok {
			columns[i] = idx
		}
	}

	results := make([]T, 0, len(values)-1)
	for rowIdx, row := range values[1:] {
		if blankRow(row) {
			continue
		}

		result := reflect.New(t).Elem()
		for colIdx, fieldIdx := range columns {
			if colIdx >= len(row) || row[colIdx] == nil {
				continue
			}
			if err := setField(result.Field(fieldIdx), cellString(row[colIdx])); err != nil {
				// +2: one for the header, one for 1-based sheet rows
				return nil, fmt.Errorf("row %d, column %s: %w", rowIdx+2, t.Field(fieldIdx).Tag.Get(tagName), err)
			}
		}

		results = append(results, result.Interface().(T))
	}

	return results, nil
}

// Headers returns the column names of T in field order
func Headers[T any]() []string {
	var zero T
	t := reflect.TypeOf(zero)
	var headers []string
	for i := 0; i < t.NumField(); i++ {
		if name := t.Field(i).Tag.Get(tagName); name != "" && name != "-" {
			headers = append(headers, name)
		}
	}
	return headers
}

// Encode renders rows as a value range with a header row. Fields implementing fmt.Stringer
// are written with String().
func Encode[T any](rows []T) [][]interface{} {
	headers := Headers[T]()
	out := make([][]interface{}, 0, len(rows)+1)

	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	out = append(out, headerRow)

	for _, row := range rows {
		v := reflect.ValueOf(row)
		t := v.Type()
		cells := make([]interface{}, 0, len(headers))
		for i := 0; i < t.NumField(); i++ {
			if name := t.Field(i).Tag.Get(tagName); name == "" || name == "-" {
				continue
			}
			cells = append(cells, cellValue(v.Field(i)))
		}
		out = append(out, cells)
	}

	return out
}

func fieldsByColumn(t reflect.Type) map[string]int {
	fields := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get(tagName)
		if name == "" || name == "-" || !field.IsExported() {
			continue
		}
		fields[strings.ToLower(name)] = i
	}
	return fields
}

// setField converts a cell to the field's type
func setField(field reflect.Value, cell string) error {
	if field.CanAddr() && field.Addr().Type().Implements(textUnmarshalerType) {
		return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(cell))
	}

	cell = strings.TrimSpace(cell)

	switch field.Kind() {
	case reflect.String:
		field.SetString(cell)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if cell == "" {
			field.SetInt(0)
			return nil
		}
		intVal, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse int: %w", err)
		}
		field.SetInt(intVal)

	case reflect.Float32, reflect.Float64:
		if cell == "" {
			field.SetFloat(0)
			return nil
		}
		floatVal, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return fmt.Errorf("failed to parse float: %w", err)
		}
		field.SetFloat(floatVal)

	case reflect.Bool:
		if cell == "" {
			field.SetBool(false)
			return nil
		}
		boolVal, err := strconv.ParseBool(cell)
		if err != nil {
			return fmt.Errorf("failed to parse bool: %w", err)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}

	return nil
}

// cellString renders a cell from the Sheets API, which returns strings for formatted values
// and numbers or bools for unformatted ones
func cellString(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func cellValue(v reflect.Value) interface{} {
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return "TRUE"
		}
		return "FALSE"
	default:
		return v.Interface()
	}
}

func blankRow(row []interface{}) bool {
	for _, cell := range row {
		if strings.TrimSpace(cellString(cell)) != "" {
			return false
		}
	}
	return true
}
