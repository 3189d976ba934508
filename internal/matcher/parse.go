// internal/matcher/parse.go
package matcher

import (
	"encoding/json"
	"strings"
)

/*
 * Strict completion parsing.
 *
 * Models wrap structured output in prose, code fences, or apologies no
 * matter how firmly the prompt forbids it. Parsing therefore locates the
 * first well-formed JSON array/object by balanced-delimiter scan (string
 * and escape aware) instead of unmarshaling the whole completion, and
 * recognizes a bare NONE sentinel for "no result".
 */

// noneSentinel is the bare token prompts use for "nothing found".
const noneSentinel = "NONE"

// isNoneSentinel reports whether the completion is the no-result token.
func isNoneSentinel(s string) bool {
	t := strings.ToUpper(strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'.`)))
	return t == noneSentinel || t == "NONE FOUND"
}

// firstJSONValue extracts the first balanced JSON object or array from the
// completion. Returns false when no well-formed value exists.
func firstJSONValue(s string) (json.RawMessage, bool) {
	start := strings.IndexAny(s, "{[")
	for start >= 0 {
		if raw, ok := balancedFrom(s[start:]); ok {
			// Validate: balanced is necessary but not sufficient.
			if json.Valid(raw) {
				return raw, true
			}
		}
		next := strings.IndexAny(s[start+1:], "{[")
		if next < 0 {
			return nil, false
		}
		start = start + 1 + next
	}
	return nil, false
}

// balancedFrom returns the prefix of s forming one balanced JSON value.
// Tracks string literals and escapes so braces inside strings don't count.
func balancedFrom(s string) ([]byte, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return []byte(s[:i+1]), true
			}
			if depth < 0 {
				return nil, false
			}
		}
	}
	return nil, false
}

// firstLine returns the first non-empty line of the completion with
// surrounding whitespace and quote characters stripped.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), `"'`))
		if line != "" {
			return line
		}
	}
	return ""
}
