// Package logits turns next-token scores into token choices.
package logits

import (
	"math"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// SamplerConfig configures the behaviour of a Sampler.
type SamplerConfig struct {
	Seed          int64
	Temperature   float64
	TopK          int
	TopP          float64
	MinP          float64
	RepeatPenalty float64
	RepeatLastN   int
}

// Sampler draws token ids from logits. It is not safe for concurrent use.
type Sampler struct {
	rng    *rand.Rand
	cfg    SamplerConfig
	greedy bool
	work   []float64
	idx    []int
	prob   []float64
	seen   map[int]struct{}
}

// NewSampler returns a new sampler with the provided configuration. A
// non-positive temperature selects greedy decoding.
func NewSampler(cfg SamplerConfig) *Sampler {
	greedy := cfg.Temperature <= 0
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 40
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	if cfg.RepeatPenalty <= 0 {
		cfg.RepeatPenalty = 1.0
	}
	if cfg.RepeatLastN <= 0 {
		cfg.RepeatLastN = 64
	}
	return &Sampler{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		cfg:    cfg,
		greedy: greedy,
		seen:   make(map[int]struct{}),
	}
}

// Greedy reports whether the sampler always returns the argmax.
func (s *Sampler) Greedy() bool {
	return s.greedy || (s.cfg.TopK == 1 && s.cfg.TopP >= 1 && s.cfg.Temperature == 1)
}

// Sample draws a single index from logits, which is not modified.
//
//  1. Ids in exclude are masked out entirely.
//  2. Ids among the last RepeatLastN of recent are penalised when
//     RepeatPenalty > 1.
//  3. Greedy samplers return the argmax.
//  4. Otherwise logits are scaled by the inverse temperature, the top k are
//     kept, a softmax is taken over them, and MinP and TopP trim the tail
//     before a weighted draw.
func (s *Sampler) Sample(logits []float64, recent []int, exclude []int) int {
	if len(logits) == 0 {
		return 0
	}
	s.work = append(s.work[:0], logits...)
	work := s.work
	for _, id := range exclude {
		if id >= 0 && id < len(work) {
			work[id] = math.Inf(-1)
		}
	}
	s.penalise(work, recent)

	if s.Greedy() {
		return floats.MaxIdx(work)
	}

	invTemp := 1 / s.cfg.Temperature
	floats.Scale(invTemp, work)
	topIdx := s.topK(work, min(s.cfg.TopK, len(work)))

	maxv := work[topIdx[0]]
	if math.IsInf(maxv, -1) {
		return topIdx[0]
	}
	if cap(s.prob) < len(topIdx) {
		s.prob = make([]float64, len(topIdx))
	}
	prob := s.prob[:len(topIdx)]
	for i, id := range topIdx {
		prob[i] = math.Exp(work[id] - maxv)
	}
	sum := floats.Sum(prob)
	if sum == 0 {
		return topIdx[0]
	}
	floats.Scale(1/sum, prob)

	if s.cfg.MinP > 0 {
		threshold := prob[0] * s.cfg.MinP
		n := 0
		for i := range prob {
			if prob[i] >= threshold {
				prob[n] = prob[i]
				topIdx[n] = topIdx[i]
				n++
			}
		}
		if n < len(prob) {
			prob = prob[:n]
			topIdx = topIdx[:n]
			floats.Scale(1/floats.Sum(prob), prob)
		}
	}

	cut := len(prob)
	if s.cfg.TopP < 1 {
		var c float64
		for i := range prob {
			c += prob[i]
			if c >= s.cfg.TopP {
				cut = i + 1
				break
			}
		}
	}

	r := s.rng.Float64() * floats.Sum(prob[:cut])
	var c float64
	for i := 0; i < cut; i++ {
		c += prob[i]
		if r <= c {
			return topIdx[i]
		}
	}
	return topIdx[cut-1]
}

func (s *Sampler) penalise(work []float64, recent []int) {
	if s.cfg.RepeatPenalty <= 1.0 || len(recent) == 0 {
		return
	}
	clear(s.seen)
	start := max(len(recent)-s.cfg.RepeatLastN, 0)
	for _, id := range recent[start:] {
		if id < 0 || id >= len(work) {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		if work[id] > 0 {
			work[id] /= s.cfg.RepeatPenalty
		} else {
			work[id] *= s.cfg.RepeatPenalty
		}
	}
}

// topK returns the indices of the k largest values, largest first.
func (s *Sampler) topK(values []float64, k int) []int {
	s.idx = Top(values, k, s.idx)
	return s.idx
}

// Top returns the indices of the n largest values in descending order. Ties
// keep the lower index first. dst is reused when it has capacity.
func Top(values []float64, n int, dst []int) []int {
	n = min(max(n, 0), len(values))
	inds := make([]int, len(values))
	for i := range inds {
		inds[i] = i
	}
	slices.SortFunc(inds, func(a, b int) int {
		switch {
		case values[a] > values[b]:
			return -1
		case values[a] < values[b]:
			return 1
		default:
			return a - b
		}
	})
	return append(dst[:0], inds[:n]...)
}
