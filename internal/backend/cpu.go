package backend

import (
	"fmt"

	"github.com/samcharles93/recurrent/internal/tensor"
)

// CPUBackend evaluates gates one after another on the calling goroutine.
type CPUBackend struct{}

func NewCPU() *CPUBackend {
	return &CPUBackend{}
}

func (b *CPUBackend) Name() string {
	return CPU
}

func (b *CPUBackend) Gates(x, h tensor.Tensor, gates []Gate) ([]tensor.Tensor, error) {
	out := make([]tensor.Tensor, len(gates))
	for i, g := range gates {
		act, err := EvalGate(x, h, g)
		if err != nil {
			return nil, fmt.Errorf("gate %d: %w", i, err)
		}
		out[i] = act
	}
	return out, nil
}

func (b *CPUBackend) Close() error { return nil }
