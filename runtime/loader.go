// Package runtime handles the infrastructure-level tasks like loading the lexicon,
// tracking room occupancy and orchestrating the workers.
package runtime

import (
	"bufio"
	"embed"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"swear-jar/errors"

	"github.com/samber/lo"
)

//go:embed lexicon/*
var lexiconFolder embed.FS

// LexiconData is the merged word set plus the sources it came from.
type LexiconData struct {
	Words     []string
	Languages []string
}

type LexiconLoader struct {
	fs fs.FS
}

func NewLexiconLoader(f fs.FS) *LexiconLoader {
	return &LexiconLoader{fs: f}
}

// NewEmbeddedLexiconLoader reads the word lists shipped with the binary.
func NewEmbeddedLexiconLoader() *LexiconLoader {
	return NewLexiconLoader(lexiconFolder)
}

// LoadAll merges every <lang>.txt directly under dir with the optional extra
// files from disk. Blank lines and # comments are skipped.
func (l *LexiconLoader) LoadAll(dir string, extraFiles ...string) (*LexiconData, error) {
	dictionaries, err := fs.Glob(l.fs, path.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}

	words := make(map[string]struct{})
	data := &LexiconData{}
	for _, name := range dictionaries {
		if err := l.mergeEmbedded(name, words); err != nil {
			return nil, err
		}
		data.Languages = append(data.Languages, strings.TrimSuffix(path.Base(name), ".txt"))
	}

	for _, extra := range lo.Compact(extraFiles) {
		if err := mergeFile(extra, words); err != nil {
			return nil, err
		}
		data.Languages = append(data.Languages, "extra")
	}

	if len(words) == 0 {
		return nil, errors.ErrEmptyWords
	}
	data.Words = lo.Keys(words)
	return data, nil
}

func (l *LexiconLoader) mergeEmbedded(name string, into map[string]struct{}) error {
	f, err := l.fs.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return scanWords(f, into)
}

func mergeFile(name string, into map[string]struct{}) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return scanWords(f, into)
}

func scanWords(r io.Reader, into map[string]struct{}) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || word[0] == '#' {
			continue
		}
		into[word] = struct{}{}
	}
	return scanner.Err()
}
