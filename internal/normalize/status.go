package normalize

import "strings"

// Status looks up the lower-cased status in mapping. Empty or unknown input yields def.
// Mapping keys must already be lower-case.
func Status(status string, mapping map[string]string, def string) string {
	if status == "" {
		return def
	}
	if out, ok := mapping[strings.ToLower(status)]; ok {
		return out
	}
	return def
}
