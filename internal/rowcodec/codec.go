// Package rowcodec converts between loosely typed row payloads and rows typed
// by a table's column definitions.
package rowcodec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"tablebuilder/internal/ddl"
	"tablebuilder/internal/domain"
)

// Decode validates raw against columns and returns a typed row.
//
// Every declared column must be present, no other key may be present, and
// each value must be coercible to its column type. All violations of the row
// are reported together as domain.RowValidationErrors.
func Decode(table string, raw map[string]any, columns []domain.ColumnDefinition) (domain.Row, error) {
	row := domain.Row{Values: make(map[string]domain.Value, len(columns))}
	var errs domain.RowValidationErrors

	declared := make(map[string]bool, len(columns))
	for _, c := range columns {
		declared[c.Name] = true
	}

	for _, c := range columns {
		v, ok := raw[c.Name]
		if !ok {
			errs = append(errs, &domain.RowValidationError{Table: table, Column: c.Name, Reason: domain.MissingColumn})
			continue
		}
		coerced, err := Coerce(c.Type, v)
		if err != nil {
			errs = append(errs, &domain.RowValidationError{Table: table, Column: c.Name, Reason: domain.TypeMismatch, Detail: err.Error()})
			continue
		}
		row.Values[c.Name] = domain.Value{Type: c.Type, V: coerced}
	}

	extra := make([]string, 0)
	for k := range raw {
		if !declared[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		detail := ""
		if k == domain.RowIDColumn {
			detail = "the identity column is generated by the store"
		}
		errs = append(errs, &domain.RowValidationError{Table: table, Column: k, Reason: domain.UnknownColumn, Detail: detail})
	}

	if len(errs) > 0 {
		return domain.Row{}, errs
	}
	return row, nil
}

// Coerce converts v to the Go representation of t: string, int64 or bool.
func Coerce(t domain.ColumnType, v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("may not be null")
	}
	switch t {
	case domain.ColumnText:
		return coerceText(v)
	case domain.ColumnInteger:
		return coerceInteger(v)
	case domain.ColumnBoolean:
		return coerceBoolean(v)
	}
	return nil, &domain.UnknownTypeError{Type: string(t)}
}

func coerceText(v any) (any, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case json.Number:
		s = x.String()
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		if n, ok := asInt64(v); ok {
			s = strconv.FormatInt(n, 10)
			break
		}
		return nil, fmt.Errorf("expected a string, got %s", describe(v))
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("may not be blank")
	}
	if n := utf8.RuneCountInString(s); n > ddl.TextMaxLength {
		return nil, fmt.Errorf("must be at most %d characters, got %d", ddl.TextMaxLength, n)
	}
	return s, nil
}

// decimalSuffix strips an all-zero fraction, so "12.0" is a valid integer.
var decimalSuffix = regexp.MustCompile(`\.0*\s*$`)

func coerceInteger(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return nil, fmt.Errorf("expected an integer, got boolean")
	case float32:
		return integralFloat(float64(x))
	case float64:
		return integralFloat(x)
	case json.Number:
		return parseInteger(x.String())
	case string:
		return parseInteger(x)
	}
	if n, ok := asInt64(v); ok {
		return n, nil
	}
	return nil, fmt.Errorf("expected an integer, got %s", describe(v))
}

func integralFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("expected an integer, got %v", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("integer %v out of range", f)
	}
	return int64(f), nil
}

func parseInteger(s string) (any, error) {
	trimmed := decimalSuffix.ReplaceAllString(strings.TrimSpace(s), "")
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("integer %q out of range", s)
		}
		return nil, fmt.Errorf("expected an integer, got %q", s)
	}
	return n, nil
}

var (
	trueValues  = map[string]bool{"t": true, "y": true, "yes": true, "true": true, "on": true, "1": true}
	falseValues = map[string]bool{"f": true, "n": true, "no": true, "false": true, "off": true, "0": true}
)

func coerceBoolean(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return parseBool(x)
	case json.Number:
		return parseBool(x.String())
	case float32, float64:
		f := reflect.ValueOf(x).Float()
		if f == 0 || f == 1 {
			return f == 1, nil
		}
		return nil, fmt.Errorf("expected a boolean, got %v", f)
	}
	if n, ok := asInt64(v); ok {
		if n == 0 || n == 1 {
			return n == 1, nil
		}
		return nil, fmt.Errorf("expected a boolean, got %d", n)
	}
	return nil, fmt.Errorf("expected a boolean, got %s", describe(v))
}

func parseBool(s string) (any, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	switch {
	case trueValues[k]:
		return true, nil
	case falseValues[k]:
		return false, nil
	}
	return nil, fmt.Errorf("expected a boolean, got %q", s)
}

// asInt64 accepts every Go integer kind that fits in int64.
func asInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func describe(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}
