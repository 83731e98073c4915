package instrument

import (
	"encoding/json"
	"strings"
)

const maskedValue = "***"

// MaskKeys normalizes field names into a lookup set.
func MaskKeys(fields []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if field = strings.ToLower(strings.TrimSpace(field)); field != "" {
			keys[field] = struct{}{}
		}
	}
	return keys
}

// MaskValue walks decoded JSON (maps and slices) and hides values stored under a masked key.
func MaskValue(v any, keys map[string]struct{}) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if _, hit := keys[strings.ToLower(k)]; hit {
				out[k] = maskedValue
				continue
			}
			out[k] = MaskValue(inner, keys)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = inner
		}
		return MaskValue(out, keys)
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = MaskValue(inner, keys)
		}
		return out
	default:
		return v
	}
}

// maskJSON masks a JSON document held in a string or byte slice. ok is false
// when the payload is not a JSON object or array.
func maskJSON(payload []byte, keys map[string]struct{}) (string, bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return "", false
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", false
	}

	out, err := json.Marshal(MaskValue(doc, keys))
	if err != nil {
		return "", false
	}
	return string(out), true
}
