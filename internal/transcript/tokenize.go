package transcript

import "unicode"

// words splits text into word tokens. A token is a run of letters, digits and
// combining marks; apostrophes and hyphens are kept between word runes, and
// '.' or ',' between digits. Everything else separates tokens and is dropped.
func words(text string) []string {
	runes := []rune(text)
	var tokens []string

	start := -1
	for i := 0; i <= len(runes); i++ {
		if i < len(runes) && (isWordRune(runes[i]) || (start >= 0 && isJoiner(runes, i))) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, string(runes[start:i]))
			start = -1
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// isJoiner reports whether runes[i] continues the token it sits inside.
func isJoiner(runes []rune, i int) bool {
	if i == 0 || i+1 >= len(runes) {
		return false
	}
	prev, r, next := runes[i-1], runes[i], runes[i+1]
	switch r {
	case '\'', '’', '-':
		return isWordRune(prev) && isWordRune(next)
	case '.', ',':
		return unicode.IsDigit(prev) && unicode.IsDigit(next)
	default:
		return false
	}
}
