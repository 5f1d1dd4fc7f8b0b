package recovery

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// Clean turns raw model output into text that should parse as a single JSON
// object. Already-valid objects are returned untouched.
//
// Text must contain a closing brace somewhere: `{"a": [1, 2, 3` fails with
// ErrNoJSONEnd before AutoComplete runs, so a response cut off inside its
// first object is retried rather than completed to `{"a": [1, 2, 3]}`.
func Clean(raw string) (string, error) {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "{") && gjson.Valid(text) {
		return text, nil
	}

	text = stripFence(text)
	text = html.UnescapeString(text)

	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		if start == -1 {
			return "", ErrNoJSONStart
		}
		text = text[start:]
	}

	if !strings.HasSuffix(text, "}") {
		end := strings.LastIndex(text, "}")
		if end == -1 {
			return "", ErrNoJSONEnd
		}
		text = text[:end+1]
	}

	text = trailingCommaRe.ReplaceAllString(text, "$1")
	return AutoComplete(text), nil
}

// stripFence removes a leading ``` or ```json line and the closing fence.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl != -1 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(strings.TrimPrefix(text, "```json"), "```")
	}
	text = strings.TrimSpace(text)
	if idx := strings.LastIndex(text, "```"); idx != -1 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// AutoComplete appends closers for a truncated document: first every missing
// ']' and then every missing '}'. Counts are taken independently, so nesting
// order is not reconstructed and interleaved truncations come out wrong.
// Brackets inside string literals are counted too.
func AutoComplete(text string) string {
	missingBrackets := strings.Count(text, "[") - strings.Count(text, "]")
	missingBraces := strings.Count(text, "{") - strings.Count(text, "}")

	if missingBrackets <= 0 && missingBraces <= 0 {
		return text
	}

	var sb strings.Builder
	sb.WriteString(text)
	if missingBrackets > 0 {
		sb.WriteString(strings.Repeat("]", missingBrackets))
	}
	if missingBraces > 0 {
		sb.WriteString(strings.Repeat("}", missingBraces))
	}
	return sb.String()
}
