// Package attrs works on slog-style key/value argument lists
// ([key1, value1, key2, value2, ...]).
package attrs

// Lookup returns the value paired with key. A trailing key without a value,
// or a non-string key, is skipped.
func Lookup(list []any, key string) (any, bool) {
	for i := 0; i+1 < len(list); i += 2 {
		if k, ok := list[i].(string); ok && k == key {
			return list[i+1], true
		}
	}
	return nil, false
}

// String returns the string value paired with key, or "" when the key is
// absent or holds another type.
func String(list []any, key string) string {
	v, ok := Lookup(list, key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Drop returns a copy of list without the named keys and their values.
// A dangling final element is kept as-is so slog still reports !BADKEY.
func Drop(list []any, keys ...string) []any {
	if len(keys) == 0 {
		return list
	}
	out := make([]any, 0, len(list))
	i := 0
	for ; i+1 < len(list); i += 2 {
		if k, ok := list[i].(string); ok && contains(keys, k) {
			continue
		}
		out = append(out, list[i], list[i+1])
	}
	if i < len(list) {
		out = append(out, list[i])
	}
	return out
}

func contains(keys []string, k string) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}
