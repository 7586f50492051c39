package config

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// ParseCommand splits raw into argv with shell-like quoting. $VAR and ${VAR}
// expand from the environment outside single quotes; a backslash escapes the
// next rune. A raw string starting with '#' is a disabled command.
func ParseCommand(raw string) (CommandConfig, error) {
	argv, err := splitCommand(raw, os.Getenv)
	if err != nil {
		return CommandConfig{}, err
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func splitCommand(input string, getenv func(string) string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		argv    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escape  bool
	)

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case escape:
			current.WriteRune(r)
			escape = false
		case r == '\\' && quote != '\'':
			escape = true
			inWord = true
		case quote != 0 && r == quote:
			quote = 0
		case r == '$' && quote != '\'':
			name, next := envName(runes, i+1)
			if name == "" {
				current.WriteRune(r)
			} else {
				current.WriteString(getenv(name))
				i = next - 1
			}
			inWord = true
		case quote != 0:
			current.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case unicode.IsSpace(r):
			if inWord {
				argv = append(argv, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if escape {
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	if inWord {
		argv = append(argv, current.String())
	}
	return argv, nil
}

// envName reads a variable name starting at runes[i], either bare or in
// braces, and returns it with the index just past it.
func envName(runes []rune, i int) (string, int) {
	if i < len(runes) && runes[i] == '{' {
		for j := i + 1; j < len(runes); j++ {
			if runes[j] == '}' {
				return string(runes[i+1 : j]), j + 1
			}
		}
		return "", i
	}
	j := i
	for j < len(runes) && (runes[j] == '_' || unicode.IsLetter(runes[j]) || (j > i && unicode.IsDigit(runes[j]))) {
		j++
	}
	return string(runes[i:j]), j
}

func mustParseCommand(raw string) CommandConfig {
	cmd, err := ParseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}
