package vocab

import (
	"fmt"
	"strings"

	"github.com/samcharles93/recurrent/internal/lstm"
	"github.com/samcharles93/recurrent/internal/tensor"
)

// Encode tokenizes text and maps every token to its id.
func (v *Vocabulary) Encode(text string) ([]int, error) {
	toks := SplitDataset(text)
	ids := make([]int, len(toks))
	for i, tok := range toks {
		id, ok := v.index[tok]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownToken, tok)
		}
		ids[i] = id
	}
	return ids, nil
}

// EncodeKnown is Encode that drops unknown tokens instead of failing. It
// returns the dropped tokens.
func (v *Vocabulary) EncodeKnown(text string) (ids []int, dropped []string) {
	for _, tok := range SplitDataset(text) {
		if id, ok := v.index[tok]; ok {
			ids = append(ids, id)
		} else {
			dropped = append(dropped, tok)
		}
	}
	return ids, dropped
}

// Decode joins tokens with spaces, skipping [PAD] and attaching closing
// punctuation to the preceding word.
func (v *Vocabulary) Decode(ids []int) (string, error) {
	var sb strings.Builder
	prev := ""
	for _, id := range ids {
		tok, ok := v.Token(id)
		if !ok {
			return "", fmt.Errorf("%w: id %d", ErrUnknownToken, id)
		}
		if id == PadID {
			continue
		}
		if NeedsSpace(prev, tok) {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok)
		prev = tok
	}
	return sb.String(), nil
}

// NeedsSpace reports whether decoded text puts a space between prev and tok.
// Closing punctuation attaches to the previous token and nothing follows "("
// with a space.
func NeedsSpace(prev, tok string) bool {
	if prev == "" || prev == "(" {
		return false
	}
	return len(tok) != 1 || !strings.ContainsAny(tok, ".,!?:;)")
}

// Window returns the last n ids of ids, left-padded with [PAD].
func Window(ids []int, n int) []int {
	out := make([]int, n)
	if len(ids) >= n {
		copy(out, ids[len(ids)-n:])
		return out
	}
	copy(out[n-len(ids):], ids)
	return out
}

// OneHot flattens ids into consecutive one-hot slots of width Size.
func (v *Vocabulary) OneHot(ids []int) ([]float64, error) {
	size := v.Size()
	out := make([]float64, size*len(ids))
	for slot, id := range ids {
		if id < 0 || id >= size {
			return nil, fmt.Errorf("%w: id %d", ErrUnknownToken, id)
		}
		out[slot*size+id] = 1
	}
	return out, nil
}

// Examples slides a window of contextWindow tokens over text, left-padded
// with contextWindow [PAD] tokens, and pairs each window with the token that
// follows it. Windows touching an unknown token are skipped and counted.
func (v *Vocabulary) Examples(text string, contextWindow int) ([]lstm.Example, int, error) {
	if contextWindow <= 0 {
		return nil, 0, fmt.Errorf("vocab: context window %d must be positive", contextWindow)
	}
	toks := SplitDataset(text)
	ids := make([]int, contextWindow, contextWindow+len(toks))
	for _, tok := range toks {
		id, ok := v.index[tok]
		if !ok {
			id = -1
		}
		ids = append(ids, id)
	}

	size := v.Size()
	var (
		out     []lstm.Example
		skipped int
	)
next:
	for i := 0; i+contextWindow < len(ids); i++ {
		for _, id := range ids[i : i+contextWindow+1] {
			if id < 0 {
				skipped++
				continue next
			}
		}
		input, err := v.OneHot(ids[i : i+contextWindow])
		if err != nil {
			return nil, 0, err
		}
		target := make([]float64, size)
		target[ids[i+contextWindow]] = 1
		out = append(out, lstm.Example{
			Input:  tensor.Vector(input...),
			Target: tensor.Vector(target...),
		})
	}
	return out, skipped, nil
}
