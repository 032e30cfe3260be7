// Package vocab maps tokens to the contiguous ids used by the sequence model
// and prepares one-hot training examples from raw text.
package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	Pad   = "[PAD]"
	PadID = 0
)

var (
	// ErrEmpty reports a vocabulary holding nothing besides [PAD].
	ErrEmpty = errors.New("vocab: no tokens besides " + Pad)
	// ErrUnknownToken reports a token or id outside the vocabulary.
	ErrUnknownToken = errors.New("vocab: unknown token")
)

// Vocabulary is an ordered token list with [PAD] fixed at id 0. Ids never
// move once assigned; growth only appends.
type Vocabulary struct {
	tokens []string
	index  map[string]int
}

// New returns a vocabulary holding only [PAD].
func New() *Vocabulary {
	return &Vocabulary{
		tokens: []string{Pad},
		index:  map[string]int{Pad: PadID},
	}
}

// Build creates a vocabulary from tokens: [PAD] followed by the unique valid
// tokens in sorted order.
func Build(tokens []string) *Vocabulary {
	uniq := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if tok != Pad && ValidToken(tok) {
			uniq[tok] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(uniq))
	for tok := range uniq {
		sorted = append(sorted, tok)
	}
	slices.Sort(sorted)

	v := New()
	for _, tok := range sorted {
		v.add(tok)
	}
	return v
}

func (v *Vocabulary) add(tok string) {
	v.index[tok] = len(v.tokens)
	v.tokens = append(v.tokens, tok)
}

// Size counts every token including [PAD].
func (v *Vocabulary) Size() int { return len(v.tokens) }

// ID returns the id of tok.
func (v *Vocabulary) ID(tok string) (int, bool) {
	id, ok := v.index[tok]
	return id, ok
}

// Token returns the token with the given id.
func (v *Vocabulary) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// Tokens returns a copy of the tokens in id order.
func (v *Vocabulary) Tokens() []string { return slices.Clone(v.tokens) }

// Missing lists the valid tokens not yet in the vocabulary, in first-seen
// order and without duplicates.
func (v *Vocabulary) Missing(tokens []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		if _, ok := v.index[tok]; ok || !ValidToken(tok) {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Extend appends the unseen tokens in sorted order and reports how many were
// added. Existing ids are unchanged.
func (v *Vocabulary) Extend(tokens []string) int {
	missing := v.Missing(tokens)
	slices.Sort(missing)
	for _, tok := range missing {
		v.add(tok)
	}
	return len(missing)
}

// Load reads one token per line. A leading [PAD] line is accepted, blank and
// invalid lines are skipped, and duplicates keep their first id.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer func() { _ = f.Close() }()

	v := New()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		tok := strings.TrimSpace(sc.Text())
		if tok == "" || !ValidToken(tok) {
			continue
		}
		if _, ok := v.index[tok]; ok {
			continue
		}
		v.add(tok)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	if v.Size() <= 1 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return v, nil
}

// Save writes the tokens one per line, [PAD] first.
func (v *Vocabulary) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("vocab: %w", err)
	}
	var sb strings.Builder
	for _, tok := range v.tokens {
		sb.WriteString(tok)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("vocab: %w", err)
	}
	return nil
}

// Clone returns an independent copy.
func (v *Vocabulary) Clone() *Vocabulary {
	c := &Vocabulary{
		tokens: slices.Clone(v.tokens),
		index:  make(map[string]int, len(v.index)),
	}
	for tok, id := range v.index {
		c.index[tok] = id
	}
	return c
}
