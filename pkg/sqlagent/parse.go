package sqlagent

import "encoding/json"

// decode attempts to unmarshal raw as JSON into target, returning true
// on success. Every LM-produced structured field in this package is
// parsed defensively this way: a malformed response degrades to a
// textual fallback instead of failing the whole pipeline.
func decode(raw string, target any) bool {
	return json.Unmarshal([]byte(raw), target) == nil
}
