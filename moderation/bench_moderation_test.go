package moderation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func syntheticLexicon(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return words
}

func TestMatcher_LargeLexicon(t *testing.T) {
	req := require.New(t)

	// Given a lexicon far larger than the shipped word lists
	matcher, err := NewMatcher(syntheticLexicon(50_000))
	req.NoError(err)
	req.Equal(50_000, matcher.Size())

	// Then prefixes and suffixes of lexicon words never count
	req.Zero(matcher.MatchCount("word word50000 xword1 word1x"))
	req.Equal(3, matcher.MatchCount("word1 word49999 WORD42!"))
}

func BenchmarkMatcher_MatchCount(b *testing.B) {
	matcher, err := NewMatcher(syntheticLexicon(10_000))
	if err != nil {
		b.Fatal(err)
	}
	utterance := strings.Repeat("so I told him word123 and then, well, nothing happened ", 20)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		matcher.MatchCount(utterance)
	}
}

func BenchmarkNewMatcher(b *testing.B) {
	words := syntheticLexicon(10_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := NewMatcher(words); err != nil {
			b.Fatal(err)
		}
	}
}
