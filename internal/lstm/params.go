package lstm

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/samcharles93/recurrent/internal/tensor"
)

// Params holds the fourteen weight tensors of a model. A Params value is owned
// by exactly one Model; Clone before handing weights to another model.
type Params struct {
	Wi, Ui, Bi tensor.Tensor // input gate
	Wf, Uf, Bf tensor.Tensor // forget gate
	Wc, Uc, Bc tensor.Tensor // cell candidate
	Wo, Uo, Bo tensor.Tensor // output gate

	Wout, Bout tensor.Tensor // linear head
}

// NamedTensor pairs a parameter with its stable persistence name.
type NamedTensor struct {
	Name  string
	Shape []int
	T     *tensor.Tensor
}

// Parameter names in persistence order.
const (
	NameWi   = "weights_input_gate"
	NameUi   = "recurrent_weights_input_gate"
	NameBi   = "bias_input_gate"
	NameWf   = "weights_forget_gate"
	NameUf   = "recurrent_weights_forget_gate"
	NameBf   = "bias_forget_gate"
	NameWc   = "weights_cell_gate"
	NameUc   = "recurrent_weights_cell_gate"
	NameBc   = "bias_cell_gate"
	NameWo   = "weights_output_gate"
	NameUo   = "recurrent_weights_output_gate"
	NameBo   = "bias_output_gate"
	NameWout = "weights_output"
	NameBout = "bias_output"
)

// Named lists every parameter with the shape it must have for the given sizes.
// The pointers alias p so callers can replace tensors in place.
func (p *Params) Named(vocab, hidden int) []NamedTensor {
	in := []int{vocab, hidden}
	rec := []int{hidden, hidden}
	bias := []int{hidden}
	return []NamedTensor{
		{NameWi, in, &p.Wi}, {NameUi, rec, &p.Ui}, {NameBi, bias, &p.Bi},
		{NameWf, in, &p.Wf}, {NameUf, rec, &p.Uf}, {NameBf, bias, &p.Bf},
		{NameWc, in, &p.Wc}, {NameUc, rec, &p.Uc}, {NameBc, bias, &p.Bc},
		{NameWo, in, &p.Wo}, {NameUo, rec, &p.Uo}, {NameBo, bias, &p.Bo},
		{NameWout, []int{hidden, vocab}, &p.Wout},
		{NameBout, []int{vocab}, &p.Bout},
	}
}

// Validate checks every tensor against the shapes implied by vocab and hidden.
func (p *Params) Validate(vocab, hidden int) error {
	for _, nt := range p.Named(vocab, hidden) {
		if nt.T.Rank() == 0 {
			return fmt.Errorf("%w: %s missing", ErrDimension, nt.Name)
		}
		if got := nt.T.Shape(); !slices.Equal(got, nt.Shape) {
			return fmt.Errorf("%w: %s has shape %v, want %v", ErrDimension, nt.Name, got, nt.Shape)
		}
	}
	return nil
}

// Clone deep-copies every tensor.
func (p *Params) Clone() *Params {
	return &Params{
		Wi: p.Wi.Clone(), Ui: p.Ui.Clone(), Bi: p.Bi.Clone(),
		Wf: p.Wf.Clone(), Uf: p.Uf.Clone(), Bf: p.Bf.Clone(),
		Wc: p.Wc.Clone(), Uc: p.Uc.Clone(), Bc: p.Bc.Clone(),
		Wo: p.Wo.Clone(), Uo: p.Uo.Clone(), Bo: p.Bo.Clone(),
		Wout: p.Wout.Clone(), Bout: p.Bout.Clone(),
	}
}

func zeroParams(vocab, hidden int) *Params {
	p := &Params{}
	for _, nt := range p.Named(vocab, hidden) {
		*nt.T = tensor.Zeros(nt.Shape...)
	}
	return p
}

// initParams draws input and recurrent weights uniformly, scaled by the fan
// of the per-step input; biases start at zero.
func initParams(vocab, hidden int, seed int64) *Params {
	rng := rand.New(rand.NewSource(seed))
	inScale := math.Sqrt(2.0 / float64(vocab+hidden))
	recScale := math.Sqrt(2.0 / float64(hidden))

	p := zeroParams(vocab, hidden)
	p.Wi = tensor.FillUniform(rng, inScale, vocab, hidden)
	p.Ui = tensor.FillUniform(rng, recScale, hidden, hidden)
	p.Wf = tensor.FillUniform(rng, inScale, vocab, hidden)
	p.Uf = tensor.FillUniform(rng, recScale, hidden, hidden)
	p.Wc = tensor.FillUniform(rng, inScale, vocab, hidden)
	p.Uc = tensor.FillUniform(rng, recScale, hidden, hidden)
	p.Wo = tensor.FillUniform(rng, inScale, vocab, hidden)
	p.Uo = tensor.FillUniform(rng, recScale, hidden, hidden)
	p.Wout = tensor.FillUniform(rng, recScale, hidden, vocab)
	return p
}
