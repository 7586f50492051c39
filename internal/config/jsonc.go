package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// normalizeJSONC turns JSONC into plain JSON. Comments are blanked rather
// than removed so decode offsets still point at the original line and column.
func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

// stringEnd returns the index just past the JSON string starting at i.
func stringEnd(content string, i int) int {
	for j := i + 1; j < len(content); j++ {
		switch content[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(content)
}

func blank(out *strings.Builder, ch byte) {
	switch ch {
	case '\n', '\r', '\t':
		out.WriteByte(ch)
	default:
		out.WriteByte(' ')
	}
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	for i := 0; i < len(content); {
		ch := content[i]
		switch {
		case ch == '"':
			end := stringEnd(content, i)
			out.WriteString(content[i:end])
			i = end
		case strings.HasPrefix(content[i:], "//"):
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				out.WriteByte(' ')
				i++
			}
		case strings.HasPrefix(content[i:], "/*"):
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				return "", fmt.Errorf("unterminated block comment in JSONC")
			}
			stop := i + 2 + end + 2
			for ; i < stop; i++ {
				blank(&out, content[i])
			}
		default:
			out.WriteByte(ch)
			i++
		}
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	for i := 0; i < len(content); {
		ch := content[i]
		if ch == '"' {
			end := stringEnd(content, i)
			out.WriteString(content[i:end])
			i = end
			continue
		}
		if ch == ',' {
			rest := strings.TrimLeft(content[i+1:], " \n\r\t")
			if strings.HasPrefix(rest, "}") || strings.HasPrefix(rest, "]") {
				out.WriteByte(' ')
				i++
				continue
			}
		}
		out.WriteByte(ch)
		i++
	}

	return out.String()
}

// ensureSingleJSONValue fails when anything but whitespace follows the first
// value. The trailing value is read raw so field checks do not mask the error.
func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := min(int(offset), len(content))
	prefix := content[:max(limit-1, 0)]
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndex(prefix, "\n")
	return line, col
}
