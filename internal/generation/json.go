package generation

import "strings"

// ExtractJSON finds a single JSON object in a model completion, tolerating a
// surrounding markdown code fence. Returns "" when no object is present.
func ExtractJSON(response string) string {
	// Prefer an explicit ```json fence when present.
	if strings.Contains(response, "```json") {
		parts := strings.Split(response, "```json")
		if len(parts) > 1 {
			candidate := strings.TrimSpace(strings.Split(parts[1], "```")[0])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	// Otherwise scan for the first balanced object, which also handles
	// generic fences and conversational preambles.
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		ch := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}

	return ""
}
