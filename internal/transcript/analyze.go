package transcript

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	multiSpacePattern       = regexp.MustCompile(`  +`)
	spaceBeforePunctPattern = regexp.MustCompile(` +([.,!?])`)
	punctBeforeLetter       = regexp.MustCompile(`([.,!?])([A-Za-z])`)
)

// Normalizer applies the sentence heuristics of one Lexicon. The zero value
// uses DefaultLexicon. A Normalizer is immutable and safe for concurrent use.
type Normalizer struct {
	lex compiledLexicon
	ok  bool
}

// NewNormalizer compiles lex for repeated use.
func NewNormalizer(lex Lexicon) Normalizer {
	return Normalizer{lex: compile(lex), ok: true}
}

var defaultNormalizer = NewNormalizer(DefaultLexicon())

func (n Normalizer) lexicon() compiledLexicon {
	if !n.ok {
		return defaultNormalizer.lex
	}
	return n.lex
}

// Analyze splits text into sentences, terminates each one, capitalizes
// sentence starts and tidies spacing. Analyze(Analyze(x)) == Analyze(x).
func (n Normalizer) Analyze(text string) string {
	if text == "" {
		return ""
	}
	out := n.Punctuate(text)
	out = Capitalize(out)
	return cleanup(out)
}

// QuickAnalyze collapses whitespace and uppercases a leading lowercase letter.
func (n Normalizer) QuickAnalyze(text string) string {
	out := strings.Join(strings.Fields(text), " ")
	r, size := utf8.DecodeRuneInString(out)
	if size == 0 || !unicode.IsLower(r) {
		return out
	}
	return string(unicode.ToUpper(r)) + out[size:]
}

// Punctuate groups word tokens into sentences and terminates each with '.',
// '?' or '!'. Punctuation in the input is not carried over, except when text
// holds no word tokens at all.
func (n Normalizer) Punctuate(text string) string {
	lex := n.lexicon()
	tokens := words(text)

	var sentences [][]string
	var current []string
	for _, token := range tokens {
		current = append(current, token)
		if lex.isEnder(token) {
			sentences = append(sentences, current)
			current = nil
		}
	}
	if len(current) > 0 {
		sentences = append(sentences, current)
	}

	if len(sentences) == 0 {
		return terminate(lex, strings.TrimSpace(text))
	}

	parts := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		parts = append(parts, terminate(lex, strings.Join(sentence, " ")))
	}
	return strings.Join(parts, " ")
}

func terminate(lex compiledLexicon, sentence string) string {
	if sentence == "" {
		return ""
	}
	switch sentence[len(sentence)-1] {
	case '.', '!', '?':
		return sentence
	}
	switch {
	case lex.isQuestion(sentence):
		return sentence + "?"
	case lex.isExclamation(sentence):
		return sentence + "!"
	default:
		return sentence + "."
	}
}

// Capitalize uppercases the first letter of text and the first letter after
// every '.', '!' or '?'. Every other character passes through unchanged.
func Capitalize(text string) string {
	runes := []rune(text)
	next := true
	for i, r := range runes {
		if next && unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			next = false
		}
		switch r {
		case '.', '!', '?':
			next = true
		}
	}
	return string(runes)
}

func cleanup(text string) string {
	text = multiSpacePattern.ReplaceAllString(text, " ")
	text = spaceBeforePunctPattern.ReplaceAllString(text, "$1")
	text = punctBeforeLetter.ReplaceAllString(text, "$1 $2")
	return strings.TrimSpace(text)
}

// Analyze normalizes text with the default lexicon.
func Analyze(text string) string {
	return defaultNormalizer.Analyze(text)
}

// QuickAnalyze is the default normalizer's QuickAnalyze.
func QuickAnalyze(text string) string {
	return defaultNormalizer.QuickAnalyze(text)
}
