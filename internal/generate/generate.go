// Package generate runs sliding-window autoregressive generation and
// next-token prediction over an lstm model.
package generate

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samcharles93/recurrent/internal/logits"
	"github.com/samcharles93/recurrent/internal/lstm"
	"github.com/samcharles93/recurrent/internal/tensor"
	"github.com/samcharles93/recurrent/internal/vocab"
)

type Stats struct {
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

// Generator produces tokens from a model and its vocabulary.
type Generator struct {
	Model   *lstm.Model
	Vocab   *vocab.Vocabulary
	Sampler *logits.Sampler
	// StopTokens end generation when sampled; they are not emitted.
	StopTokens []int
}

// New pairs m and v, which must agree on the vocabulary size.
func New(m *lstm.Model, v *vocab.Vocabulary, sampler *logits.Sampler) (*Generator, error) {
	if m.VocabSize() != v.Size() {
		return nil, fmt.Errorf("%w: model vocabulary %d, vocabulary %d", lstm.ErrDimension, m.VocabSize(), v.Size())
	}
	if sampler == nil {
		sampler = logits.NewSampler(logits.SamplerConfig{})
	}
	return &Generator{Model: m, Vocab: v, Sampler: sampler}, nil
}

// Logits scores the token following the last ContextWindow ids of history.
func (g *Generator) Logits(history []int) ([]float64, error) {
	window, err := g.Vocab.OneHot(vocab.Window(history, g.Model.ContextWindow()))
	if err != nil {
		return nil, err
	}
	return g.Model.PredictLogits(window)
}

// RunWithContext extends history by up to steps tokens and returns only the
// generated ids. [PAD] is never sampled. stream, when set, receives each
// decoded token as it is produced.
func (g *Generator) RunWithContext(ctx context.Context, history []int, steps int, stream func(string)) ([]int, Stats, error) {
	var stats Stats
	start := time.Now()

	toks := slices.Clone(history)
	var out []int
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return out, stats, err
		}
		scores, err := g.Logits(toks)
		if err != nil {
			return out, stats, fmt.Errorf("forward error during generation step %d: %w", i, err)
		}
		next := g.Sampler.Sample(scores, toks, []int{vocab.PadID})
		if slices.Contains(g.StopTokens, next) {
			break
		}

		toks = append(toks, next)
		out = append(out, next)
		stats.TokensGenerated++
		if stream != nil {
			s, _ := g.Vocab.Decode([]int{next})
			stream(s)
		}
	}

	stats.Duration = time.Since(start)
	if stats.Duration.Seconds() > 0 {
		stats.TPS = float64(stats.TokensGenerated) / stats.Duration.Seconds()
	}
	return out, stats, nil
}

// Result is the outcome of Generate.
type Result struct {
	Tokens []int
	Text   string
	// Dropped lists prompt tokens missing from the vocabulary.
	Dropped []string
	Stats   Stats
}

// Generate encodes prompt, ignoring unknown tokens, and produces up to
// maxTokens continuation tokens.
func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (*Result, error) {
	if maxTokens < 0 {
		return nil, fmt.Errorf("generate: max tokens %d must not be negative", maxTokens)
	}
	ids, dropped := g.Vocab.EncodeKnown(prompt)
	out, stats, err := g.RunWithContext(ctx, ids, maxTokens, nil)
	if err != nil {
		return nil, err
	}
	text, err := g.Vocab.Decode(out)
	if err != nil {
		return nil, err
	}
	return &Result{Tokens: out, Text: text, Dropped: dropped, Stats: stats}, nil
}

// Candidate is one entry of a next-token distribution.
type Candidate struct {
	ID          int     `json:"id"`
	Token       string  `json:"token"`
	Probability float64 `json:"probability"`
}

// Predict returns the n most likely tokens to follow text, most likely first.
func (g *Generator) Predict(text string, n int) ([]Candidate, []string, error) {
	ids, dropped := g.Vocab.EncodeKnown(text)
	scores, err := g.Logits(ids)
	if err != nil {
		return nil, dropped, err
	}
	probs := tensor.Softmax(tensor.Vector(scores...)).Data()
	top := logits.Top(probs, n, nil)
	out := make([]Candidate, len(top))
	for i, id := range top {
		tok, _ := g.Vocab.Token(id)
		out[i] = Candidate{ID: id, Token: tok, Probability: probs[id]}
	}
	return out, dropped, nil
}
