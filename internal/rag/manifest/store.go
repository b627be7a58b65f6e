package manifest

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

// Store holds the single instruction template that governs answer prompts.
// Read must hit durable storage every time so a feedback edit takes effect
// on the very next query. Update serializes the whole read-modify-write so
// concurrent feedback turns cannot lose each other's edits.
type Store interface {
	Read() (string, error)
	Update(revise func(current string) (string, error)) (string, error)
}

type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("reading manifest %q: %w", s.path, err)
	}
	return string(data), nil
}

// Update runs revise under the single-writer lock and overwrites the file
// with its result. A revise error leaves the stored manifest untouched.
func (s *FileStore) Update(revise func(current string) (string, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Read()
	if err != nil {
		return "", err
	}
	revised, err := revise(current)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.path, []byte(revised), 0o644); err != nil {
		return "", fmt.Errorf("writing manifest %q: %w", s.path, err)
	}
	return revised, nil
}

var placeholderRe = regexp.MustCompile(`\{[a-zA-Z_]+\}`)

// Placeholders returns the set of {name} tokens in the manifest text.
func Placeholders(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, m := range placeholderRe.FindAllString(text, -1) {
		set[m] = struct{}{}
	}
	return set
}

// SamePlaceholders reports whether two manifests carry exactly the same
// placeholder tokens.
func SamePlaceholders(a, b string) bool {
	sa, sb := Placeholders(a), Placeholders(b)
	if len(sa) != len(sb) {
		return false
	}
	for token := range sa {
		if _, ok := sb[token]; !ok {
			return false
		}
	}
	return true
}

// Interpolate substitutes the retrieval context, the user question and the
// optional reference template into the manifest verbatim.
func Interpolate(manifestText, information, query, reference string) string {
	return strings.NewReplacer(
		"{information}", information,
		"{query}", query,
		"{reference}", reference,
	).Replace(manifestText)
}
