package reasoner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError reports reasoner output that could not be turned into the
// expected structure. Call sites catch it and fall back to a documented
// default; it never propagates past the router.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unusable reasoner output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// FirstJSONObject returns the first balanced {...} block in s, tolerating
// prose before and after it. Braces inside JSON strings are honored.
func FirstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// Unmarshal decodes untrusted reasoner output into v. It strips code fences,
// truncates to the first balanced JSON object and only then unmarshals. All
// failures come back as *ParseError.
func Unmarshal(raw string, v any) error {
	cleaned := StripFences(raw)
	obj, ok := FirstJSONObject(cleaned)
	if !ok {
		return &ParseError{Raw: raw, Err: fmt.Errorf("no JSON object found")}
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	return nil
}

var (
	roleIndexRe = regexp.MustCompile(`(?i)\b(?:role|agent)[_\s-]?(\d+)\b`)
	bareIndexRe = regexp.MustCompile(`\b(\d+)\b`)
)

// HeuristicIndices recovers 1-based indices from degenerate output such as
// "role_2 and role_3" or "1, 3". Indices outside [1,n] are discarded;
// duplicates keep first position.
func HeuristicIndices(raw string, n int) []int {
	var out []int
	seen := map[int]bool{}
	add := func(matches [][]string) {
		for _, m := range matches {
			idx, err := strconv.Atoi(m[1])
			if err != nil || idx < 1 || idx > n || seen[idx] {
				continue
			}
			seen[idx] = true
			out = append(out, idx)
		}
	}
	add(roleIndexRe.FindAllStringSubmatch(raw, -1))
	if len(out) == 0 {
		add(bareIndexRe.FindAllStringSubmatch(raw, -1))
	}
	return out
}

// MentionedIDs returns the known ids mentioned in raw, case-insensitively,
// preserving the order of known.
func MentionedIDs(raw string, known []string) []string {
	lower := strings.ToLower(raw)
	var out []string
	for _, id := range known {
		if strings.Contains(lower, strings.ToLower(id)) {
			out = append(out, id)
		}
	}
	return out
}
