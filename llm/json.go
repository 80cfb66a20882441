package llm

import (
	"fmt"
	"strings"
)

// Model output is unreliable: structured stages expect JSON but routinely
// get code fences, leading prose, or trailing commentary around it. The
// extractors below find the first well-formed object or array and leave the
// fallback decision to the caller.

// ExtractJSONObject returns the first balanced {...} block in s, or an
// error when none exists.
func ExtractJSONObject(s string) (string, error) {
	return extractBalanced(stripCodeFence(s), '{', '}')
}

// ExtractJSONArray returns the first balanced [...] block in s, or an
// error when none exists.
func ExtractJSONArray(s string) (string, error) {
	return extractBalanced(stripCodeFence(s), '[', ']')
}

// stripCodeFence unwraps ```json ... ``` (or plain ```) fencing when the
// response is fenced; otherwise returns s unchanged.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	start := strings.Index(trimmed, "```")
	if start < 0 {
		return s
	}

	rest := trimmed[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || strings.EqualFold(firstLine, "json") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

// extractBalanced scans for the first open delimiter and returns the
// substring up to its matching close, tracking string literals so braces
// inside quoted values don't confuse the depth count.
func extractBalanced(s string, open, close byte) (string, error) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", fmt.Errorf("no %q block found", string(open))
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced %q block", string(open))
}
