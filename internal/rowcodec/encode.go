package rowcodec

import (
	"fmt"
	"strconv"

	"tablebuilder/internal/domain"
)

// Encode builds a row from values scanned out of the store. physical holds
// one value per column, in the order of columns. Encode never fails: NULLs
// (columns added after the row was written) stay nil and driver
// representations are normalised to string, int64 or bool.
func Encode(id int64, physical []any, columns []domain.ColumnDefinition) domain.Row {
	row := domain.Row{ID: id, Values: make(map[string]domain.Value, len(columns))}
	for i, c := range columns {
		var v any
		if i < len(physical) {
			v = normalise(c.Type, physical[i])
		}
		row.Values[c.Name] = domain.Value{Type: c.Type, V: v}
	}
	return row
}

func normalise(t domain.ColumnType, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil
	}

	switch t {
	case domain.ColumnText:
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	case domain.ColumnInteger:
		switch x := v.(type) {
		case string:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return n
			}
			return x
		case float64:
			return int64(x)
		}
		if n, ok := asInt64(v); ok {
			return n
		}
	case domain.ColumnBoolean:
		switch x := v.(type) {
		case bool:
			return x
		case string:
			if b, err := parseBool(x); err == nil {
				return b
			}
			return x
		}
		if n, ok := asInt64(v); ok {
			return n != 0
		}
	}
	return v
}
