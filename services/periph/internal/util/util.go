// services/periph/internal/util/util.go
package util

import "encoding/json"

// DecodeJSON decodes src into dst. src may be raw JSON ([]byte or string)
// or an already-decoded value such as map[string]any.
func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

// IntFrom reads a numeric field from a loosely typed payload.
func IntFrom(m map[string]any, k string, def int) int {
	if m == nil {
		return def
	}
	switch v := m[k].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint32:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func StrFrom(m map[string]any, k string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[k].(string); ok {
		return s
	}
	return ""
}

func BoolFrom(m map[string]any, k string, def bool) bool {
	if m == nil {
		return def
	}
	if b, ok := m[k].(bool); ok {
		return b
	}
	return def
}
