package moderation

import (
	"sort"
	"strings"
	"swear-jar/errors"

	goahocorasick "github.com/anknown/ahocorasick"
)

// trimmedPunctuation is stripped from both ends of every token before lookup.
const trimmedPunctuation = "!?.,"

// Matcher counts lexicon tokens in free text.
// A token matches only when, once normalized, it is exactly a lexicon word.
type Matcher struct {
	machine *goahocorasick.Machine
	size    int
}

// NewMatcher normalizes the lexicon and builds the Aho-Corasick automaton used for lookups.
func NewMatcher(words []string) (*Matcher, error) {
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		if n := Normalize(w); n != "" {
			unique[n] = struct{}{}
		}
	}
	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	sorted := make([]string, 0, len(unique))
	for w := range unique {
		sorted = append(sorted, w)
	}
	sort.Strings(sorted)

	patterns := make([][]rune, len(sorted))
	for i, w := range sorted {
		patterns[i] = []rune(w)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Matcher{machine: m, size: len(sorted)}, nil
}

// Size is the number of distinct normalized lexicon words.
func (m *Matcher) Size() int { return m.size }

// MatchCount returns how many whitespace separated tokens of text are lexicon words.
func (m *Matcher) MatchCount(text string) int {
	count := 0
	for _, token := range strings.Fields(text) {
		if m.contains(Normalize(token)) {
			count++
		}
	}
	return count
}

// Matches returns the normalized tokens of text found in the lexicon, in order of appearance.
func (m *Matcher) Matches(text string) []string {
	var words []string
	for _, token := range strings.Fields(text) {
		if n := Normalize(token); m.contains(n) {
			words = append(words, n)
		}
	}
	return words
}

// contains reports whether the automaton holds a pattern spanning the whole token.
func (m *Matcher) contains(token string) bool {
	if token == "" {
		return false
	}
	runes := []rune(token)
	for _, term := range m.machine.MultiPatternSearch(runes, false) {
		if term.Pos == 0 && len(term.Word) == len(runes) {
			return true
		}
	}
	return false
}

// Normalize lower-cases a token and strips the surrounding punctuation.
func Normalize(token string) string {
	return strings.Trim(strings.ToLower(token), trimmedPunctuation)
}
