// Package aggregator folds a stream of revising recognizer hypotheses into
// committed transcript segments.
package aggregator

import (
	"strings"
	"unicode/utf8"
)

// State is the working transcript of one recording.
type State struct {
	// Segments are committed, in order, with no consecutive duplicates
	// except where an interruption forces a commit.
	Segments []string
	// Current is the latest uncommitted partial.
	Current string
	// LastPartial is the most recent raw partial, kept for regression checks.
	LastPartial string
}

// LiveText joins the committed segments and the current partial.
func (s *State) LiveText() string {
	parts := make([]string, 0, len(s.Segments)+1)
	parts = append(parts, s.Segments...)
	if s.Current != "" {
		parts = append(parts, s.Current)
	}
	return strings.Join(parts, " ")
}

// Commit appends text unless it is empty or equal to the last segment.
func (s *State) Commit(text string) bool {
	if text == "" {
		return false
	}
	if n := len(s.Segments); n > 0 && s.Segments[n-1] == text {
		return false
	}
	s.Segments = append(s.Segments, text)
	return true
}

// Clear drops all working text.
func (s *State) Clear() {
	s.Segments = nil
	s.Current = ""
	s.LastPartial = ""
}

// Empty reports whether no text has been captured.
func (s *State) Empty() bool {
	return len(s.Segments) == 0 && s.Current == ""
}

// Decision is the outcome of a regression check.
type Decision int

const (
	Continue Decision = iota
	CommitPrevious
)

func (d Decision) String() string {
	if d == CommitPrevious {
		return "commit"
	}
	return "continue"
}

// DefaultRegressionRatio is the fraction of the previous partial's length
// below which a non-prefix partial counts as a restart.
const DefaultRegressionRatio = 0.5

// Decide reports whether next is a restart of the hypothesis that should
// commit prev. Lengths are counted in runes.
func Decide(prev, next string) Decision {
	return DecideWithRatio(prev, next, DefaultRegressionRatio)
}

// DecideWithRatio is Decide with a configurable shrink threshold. next is a
// restart when it is shorter than floor(len(prev)*ratio) and is not a
// continuation of prev.
func DecideWithRatio(prev, next string, ratio float64) Decision {
	if prev == "" || next == "" {
		return Continue
	}
	threshold := int(float64(utf8.RuneCountInString(prev)) * ratio)
	if utf8.RuneCountInString(next) >= threshold {
		return Continue
	}
	if continues(prev, next) {
		return Continue
	}
	return CommitPrevious
}

// continues reports whether prev case-insensitively starts with next. A next
// that is exactly prev's first word is a fresh hypothesis, not a rewind.
func continues(prev, next string) bool {
	lowerPrev, lowerNext := strings.ToLower(prev), strings.ToLower(next)
	if !strings.HasPrefix(lowerPrev, lowerNext) {
		return false
	}
	words := strings.Fields(lowerPrev)
	return !(len(words) > 1 && words[0] == strings.TrimSpace(lowerNext))
}
