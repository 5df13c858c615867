package profile

import (
	"sort"
	"strings"

	json "github.com/json-iterator/go"
	"golang.org/x/text/language"
)

// StripLanguageSuffixes rewrites a JSON declaration so that every key of the
// form "title:de" collapses to its base key, recursively through nested
// objects and arrays. A plain base key always wins over suffixed variants;
// among variants alone, the lexicographically smallest suffix wins so the
// result is deterministic.
func StripLanguageSuffixes(data []byte) ([]byte, error) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}
	return json.Marshal(stripValue(decoded))
}

func stripValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return stripObject(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = stripValue(item)
		}
		return out
	default:
		return v
	}
}

func stripObject(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	variants := map[string][]string{}

	for key, v := range obj {
		base, suffix, found := strings.Cut(key, ":")
		if !found || base == "" || !isLanguageTag(suffix) {
			out[key] = stripValue(v)
			continue
		}
		variants[base] = append(variants[base], key)
	}

	for base, keys := range variants {
		if _, ok := out[base]; ok {
			continue
		}
		sort.Strings(keys)
		out[base] = stripValue(obj[keys[0]])
	}
	return out
}

func isLanguageTag(s string) bool {
	if s == "" {
		return false
	}
	_, err := language.Parse(s)
	return err == nil
}
