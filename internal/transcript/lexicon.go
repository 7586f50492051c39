// Package transcript normalizes raw recognizer text into punctuated,
// capitalized sentences using fixed word lexicons.
package transcript

import "strings"

// Lexicon holds the closed word lists that drive sentence heuristics.
// Entries are matched case-insensitively. A sentence ender matches one word
// token, so a phrase entry such as "thank you" never splits a sentence.
type Lexicon struct {
	SentenceEnders   []string `json:"sentence_enders"`
	QuestionWords    []string `json:"question_words"`
	ExclamationWords []string `json:"exclamation_words"`
}

// DefaultLexicon returns the built-in English lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		SentenceEnders: []string{
			"yes", "no", "okay", "ok", "thanks", "thank you", "goodbye", "bye", "please",
		},
		QuestionWords: []string{
			"who", "what", "when", "where", "why", "how", "which", "whose", "whom",
			"can", "could", "would", "should", "is", "are", "do", "does", "did",
		},
		ExclamationWords: []string{
			"wow", "amazing", "awesome", "great", "fantastic", "excellent", "wonderful",
			"terrible", "horrible", "stop", "help", "hurry", "wait",
		},
	}
}

// Merge returns l with every non-empty list in override replacing its own.
func (l Lexicon) Merge(override Lexicon) Lexicon {
	if len(override.SentenceEnders) > 0 {
		l.SentenceEnders = override.SentenceEnders
	}
	if len(override.QuestionWords) > 0 {
		l.QuestionWords = override.QuestionWords
	}
	if len(override.ExclamationWords) > 0 {
		l.ExclamationWords = override.ExclamationWords
	}
	return l
}

// compiledLexicon is the lookup form of a Lexicon.
type compiledLexicon struct {
	enders      map[string]struct{}
	questions   []string
	exclamation []string
}

func compile(l Lexicon) compiledLexicon {
	c := compiledLexicon{enders: make(map[string]struct{}, len(l.SentenceEnders))}
	for _, word := range l.SentenceEnders {
		if word = normalizeEntry(word); word != "" {
			c.enders[word] = struct{}{}
		}
	}
	for _, word := range l.QuestionWords {
		if word = normalizeEntry(word); word != "" {
			c.questions = append(c.questions, word+" ")
		}
	}
	for _, word := range l.ExclamationWords {
		if word = normalizeEntry(word); word != "" {
			c.exclamation = append(c.exclamation, word)
		}
	}
	return c
}

func normalizeEntry(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// isEnder reports whether token closes a sentence.
func (c compiledLexicon) isEnder(token string) bool {
	_, ok := c.enders[strings.ToLower(token)]
	return ok
}

func (c compiledLexicon) isQuestion(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, prefix := range c.questions {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// isExclamation reports whether sentence contains an exclamation word
// anywhere, including inside a longer word.
func (c compiledLexicon) isExclamation(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, word := range c.exclamation {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
