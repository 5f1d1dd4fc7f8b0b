package llm

import (
	"strings"
	"unicode/utf8"
)

// WordWrap re-flows each line of text to at most width runes. Words longer
// than width stay whole on their own line; blank lines are kept.
func WordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var out strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		col := 0
		for _, word := range strings.Fields(line) {
			n := utf8.RuneCountInString(word)
			switch {
			case col == 0:
			case col+1+n > width:
				out.WriteByte('\n')
				col = 0
			default:
				out.WriteByte(' ')
				col++
			}
			out.WriteString(word)
			col += n
		}
	}
	return out.String()
}

// TruncateParagraphs shortens lines inside embedded script blocks to maxLen
// runes and drops blank lines within them. Text outside the blocks is kept
// as-is. Used when writing prompts to the request history log.
func TruncateParagraphs(text string, maxLen int) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	var result []string
	inBlock := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		if strings.HasPrefix(lower, "<script>") {
			inBlock = true
			result = append(result, line)
			continue
		}
		if inBlock && strings.HasPrefix(lower, "</script>") {
			inBlock = false
			result = append(result, line)
			continue
		}

		if !inBlock {
			result = append(result, line)
			continue
		}
		if trimmed == "" {
			continue
		}
		runes := []rune(trimmed)
		if len(runes) > maxLen {
			result = append(result, string(runes[:maxLen])+"...")
		} else {
			result = append(result, trimmed)
		}
	}

	return strings.Join(result, "\n")
}
