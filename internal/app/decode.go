package app

import "encoding/json"

// decodeObject turns an event argument into a generic object. Native
// clients send JSON text where browser clients send a structured object;
// both wire forms decode through the same step.
func decodeObject(raw json.RawMessage) (map[string]any, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	if s, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, false
		}
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
