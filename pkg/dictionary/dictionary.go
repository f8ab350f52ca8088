// Package dictionary loads exclusion word lists: plain UTF-8 text files with
// one word per line. Words in the list are emitted without brackets by the
// post-processor.
package dictionary

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"unicode/utf8"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// LoadError reports a dictionary file that could not be read or decoded
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to load dictionary: %v", e.Err)
	}
	return fmt.Sprintf("failed to load dictionary %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Set is an immutable set of trimmed, non-empty words.
// A nil *Set behaves as an empty set.
type Set struct {
	words map[string]struct{}
}

// NewSet builds a set from raw entries, applying the same trimming rules as Load
func NewSet(words ...string) *Set {
	s := &Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		s.words[w] = struct{}{}
	}
	return s
}

// Contains reports exact, case-sensitive membership
func (s *Set) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[word]
	return ok
}

// Len returns the number of distinct words
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// Words returns the entries in sorted order
func (s *Set) Words() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Status is the human readable load summary
func (s *Set) Status() string {
	return fmt.Sprintf("%d words loaded", s.Len())
}

// Load reads a dictionary file from disk
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	set, err := Parse(f)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return set, nil
}

// LoadFS reads a dictionary file from a file system
func LoadFS(fsys fs.FS, name string) (*Set, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, &LoadError{Path: name, Err: err}
	}
	defer f.Close()

	set, err := Parse(f)
	if err != nil {
		return nil, &LoadError{Path: name, Err: err}
	}
	return set, nil
}

// Parse reads a whole word list. The input must be valid UTF-8.
func Parse(r io.Reader) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	data = bytes.TrimPrefix(data, bom)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file is not valid UTF-8 text")
	}
	return NewSet(SplitLines(string(data))...), nil
}

// SplitLines splits text on every newline convention (LF, CRLF, CR and the
// Unicode line and paragraph separators). Empty lines are dropped.
func SplitLines(text string) []string {
	return strings.FieldsFunc(text, isNewline)
}

func isNewline(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
