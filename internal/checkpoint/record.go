// Package checkpoint persists lstm models as indented JSON records.
package checkpoint

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samcharles93/recurrent/internal/lstm"
	"github.com/samcharles93/recurrent/internal/tensor"
)

// FormatVersion is written into every record. Version 1 is the legacy layout
// that did not store the context window.
const FormatVersion = 2

var (
	ErrNotFound = errors.New("checkpoint: model file not found")
	ErrCorrupt  = errors.New("checkpoint: corrupt model file")
)

// TensorRecord is one serialised tensor.
type TensorRecord struct {
	Shape []int  `json:"shape"`
	Data  Values `json:"data"`
}

// Record is the on-disk layout. Field order is the file order.
type Record struct {
	FormatVersion int `json:"format_version"`
	InputSize     int `json:"input_size"`
	HiddenSize    int `json:"hidden_size"`
	OutputSize    int `json:"output_size"`
	ContextWindow int `json:"context_window,omitempty"`

	WeightsInputGate           *TensorRecord `json:"weights_input_gate"`
	RecurrentWeightsInputGate  *TensorRecord `json:"recurrent_weights_input_gate"`
	BiasInputGate              *TensorRecord `json:"bias_input_gate"`
	WeightsForgetGate          *TensorRecord `json:"weights_forget_gate"`
	RecurrentWeightsForgetGate *TensorRecord `json:"recurrent_weights_forget_gate"`
	BiasForgetGate             *TensorRecord `json:"bias_forget_gate"`
	WeightsCellGate            *TensorRecord `json:"weights_cell_gate"`
	RecurrentWeightsCellGate   *TensorRecord `json:"recurrent_weights_cell_gate"`
	BiasCellGate               *TensorRecord `json:"bias_cell_gate"`
	WeightsOutputGate          *TensorRecord `json:"weights_output_gate"`
	RecurrentWeightsOutputGate *TensorRecord `json:"recurrent_weights_output_gate"`
	BiasOutputGate             *TensorRecord `json:"bias_output_gate"`
	WeightsOutput              *TensorRecord `json:"weights_output"`
	BiasOutput                 *TensorRecord `json:"bias_output"`
}

// legacyRecord is the version 1 layout with PascalCase keys.
type legacyRecord struct {
	InputSize                  int           `json:"InputSize"`
	HiddenSize                 int           `json:"HiddenSize"`
	OutputSize                 int           `json:"OutputSize"`
	WeightsInputGate           *TensorRecord `json:"WeightsInputGate"`
	RecurrentWeightsInputGate  *TensorRecord `json:"RecurrentWeightsInputGate"`
	BiasInputGate              *TensorRecord `json:"BiasInputGate"`
	WeightsForgetGate          *TensorRecord `json:"WeightsForgetGate"`
	RecurrentWeightsForgetGate *TensorRecord `json:"RecurrentWeightsForgetGate"`
	BiasForgetGate             *TensorRecord `json:"BiasForgetGate"`
	WeightsCellGate            *TensorRecord `json:"WeightsCellGate"`
	RecurrentWeightsCellGate   *TensorRecord `json:"RecurrentWeightsCellGate"`
	BiasCellGate               *TensorRecord `json:"BiasCellGate"`
	WeightsOutputGate          *TensorRecord `json:"WeightsOutputGate"`
	RecurrentWeightsOutputGate *TensorRecord `json:"RecurrentWeightsOutputGate"`
	BiasOutputGate             *TensorRecord `json:"BiasOutputGate"`
	WeightsOutput              *TensorRecord `json:"WeightsOutput"`
	BiasOutput                 *TensorRecord `json:"BiasOutput"`
}

func (l legacyRecord) upgrade() *Record {
	return &Record{
		FormatVersion:              1,
		InputSize:                  l.InputSize,
		HiddenSize:                 l.HiddenSize,
		OutputSize:                 l.OutputSize,
		WeightsInputGate:           l.WeightsInputGate,
		RecurrentWeightsInputGate:  l.RecurrentWeightsInputGate,
		BiasInputGate:              l.BiasInputGate,
		WeightsForgetGate:          l.WeightsForgetGate,
		RecurrentWeightsForgetGate: l.RecurrentWeightsForgetGate,
		BiasForgetGate:             l.BiasForgetGate,
		WeightsCellGate:            l.WeightsCellGate,
		RecurrentWeightsCellGate:   l.RecurrentWeightsCellGate,
		BiasCellGate:               l.BiasCellGate,
		WeightsOutputGate:          l.WeightsOutputGate,
		RecurrentWeightsOutputGate: l.RecurrentWeightsOutputGate,
		BiasOutputGate:             l.BiasOutputGate,
		WeightsOutput:              l.WeightsOutput,
		BiasOutput:                 l.BiasOutput,
	}
}

// tensors lists the record slots in the same order as lstm.Params.Named.
func (r *Record) tensors() []**TensorRecord {
	return []**TensorRecord{
		&r.WeightsInputGate, &r.RecurrentWeightsInputGate, &r.BiasInputGate,
		&r.WeightsForgetGate, &r.RecurrentWeightsForgetGate, &r.BiasForgetGate,
		&r.WeightsCellGate, &r.RecurrentWeightsCellGate, &r.BiasCellGate,
		&r.WeightsOutputGate, &r.RecurrentWeightsOutputGate, &r.BiasOutputGate,
		&r.WeightsOutput, &r.BiasOutput,
	}
}

// NewRecord snapshots the weights of m. The record holds copies.
func NewRecord(m *lstm.Model) *Record {
	r := &Record{
		FormatVersion: FormatVersion,
		InputSize:     m.InputSize(),
		HiddenSize:    m.HiddenSize(),
		OutputSize:    m.OutputSize(),
		ContextWindow: m.ContextWindow(),
	}
	slots := r.tensors()
	for i, nt := range m.Params().Named(m.VocabSize(), m.HiddenSize()) {
		*slots[i] = &TensorRecord{
			Shape: nt.T.Shape(),
			Data:  append([]float64(nil), nt.T.Data()...),
		}
	}
	return r
}

// Window resolves the context window. A stored value must agree with
// InputSize / OutputSize; legacy records fall back to the quotient.
func (r *Record) Window() (int, error) {
	if r.InputSize <= 0 || r.HiddenSize <= 0 || r.OutputSize <= 0 {
		return 0, fmt.Errorf("%w: sizes input=%d hidden=%d output=%d", ErrCorrupt, r.InputSize, r.HiddenSize, r.OutputSize)
	}
	if r.InputSize%r.OutputSize != 0 {
		return 0, fmt.Errorf("%w: %w: input size %d is not a multiple of output size %d",
			ErrCorrupt, lstm.ErrDimension, r.InputSize, r.OutputSize)
	}
	derived := r.InputSize / r.OutputSize
	if r.ContextWindow != 0 && r.ContextWindow != derived {
		return 0, fmt.Errorf("%w: %w: context window %d disagrees with input/output %d",
			ErrCorrupt, lstm.ErrDimension, r.ContextWindow, derived)
	}
	return derived, nil
}

// Params rebuilds the parameter set, validating every tensor. The tensors own
// copies of the record's data.
func (r *Record) Params() (*lstm.Params, error) {
	p := &lstm.Params{}
	slots := r.tensors()
	for i, nt := range p.Named(r.OutputSize, r.HiddenSize) {
		tr := *slots[i]
		if tr == nil {
			return nil, fmt.Errorf("%w: missing tensor %s", ErrCorrupt, nt.Name)
		}
		t, err := tensor.New(slices.Clone(tr.Data), tr.Shape...)
		if err != nil {
			return nil, fmt.Errorf("%w: tensor %s: %w", ErrCorrupt, nt.Name, err)
		}
		*nt.T = t
	}
	if err := p.Validate(r.OutputSize, r.HiddenSize); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return p, nil
}
