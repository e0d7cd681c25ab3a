package agents

import (
	"encoding/json"
	"strings"
)

// ExtractPayload pulls the JSON payload out of generated text. A fence
// labelled json wins over any other fence; without fences the whole text is
// the payload. An unterminated fence yields everything after it.
func ExtractPayload(text string) string {
	if i := strings.Index(text, "```json"); i != -1 {
		return strings.TrimSpace(fenceBody(text[i+len("```json"):], false))
	}
	if i := strings.Index(text, "```"); i != -1 {
		return strings.TrimSpace(fenceBody(text[i+3:], true))
	}
	return strings.TrimSpace(text)
}

func fenceBody(rest string, dropHint bool) string {
	if j := strings.Index(rest, "```"); j != -1 {
		rest = rest[:j]
	}
	if dropHint {
		// drop a language hint such as "JSON" or "javascript"
		if idx := strings.IndexByte(rest, '\n'); idx != -1 && !strings.ContainsAny(rest[:idx], "[{") {
			rest = rest[idx+1:]
		}
	}
	return rest
}

// DecodeArray decodes a JSON array of T from generated text. On failure it
// returns fallback and false.
func DecodeArray[T any](text string, fallback []T) ([]T, bool) {
	if v, ok := decodeShape[[]T](text, '['); ok {
		return v, true
	}
	return fallback, false
}

// DecodeObject decodes a JSON object into T from generated text. On failure
// it returns fallback and false.
func DecodeObject[T any](text string, fallback T) (T, bool) {
	if v, ok := decodeShape[T](text, '{'); ok {
		return v, true
	}
	return fallback, false
}

func decodeShape[T any](text string, open byte) (T, bool) {
	payload := ExtractPayload(text)
	candidates := make([]string, 0, 3)
	if strings.HasPrefix(payload, string(open)) {
		candidates = append(candidates, payload)
	}
	// prose around the payload: try the first balanced value instead
	for _, src := range []string{payload, text} {
		if frag := extractBalanced(src, open); frag != "" && !contains(candidates, frag) {
			candidates = append(candidates, frag)
		}
	}
	for _, c := range candidates {
		var v T
		if err := json.Unmarshal([]byte(c), &v); err == nil {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// extractBalanced returns the first top-level JSON value in s when it starts
// with open, skipping brackets inside string literals. An array found where
// an object is expected (or the reverse) is a shape mismatch, not a match.
func extractBalanced(s string, open byte) string {
	close := byte(']')
	if open == '{' {
		close = '}'
	}
	start := strings.IndexAny(s, "[{")
	if start == -1 || s[start] != open {
		return ""
	}
	depth := 0
	inString, escaped := false, false
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
