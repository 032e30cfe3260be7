package backend

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/samcharles93/recurrent/internal/tensor"
)

const (
	CPU      = "cpu"
	Parallel = "parallel"
	Auto     = "auto"
)

var ErrClosed = errors.New("backend: closed")

// Gate is one learned gate of a recurrent step: Activation(x·W + h·U + B).
type Gate struct {
	W, U, B    tensor.Tensor
	Activation tensor.Func
}

// Backend evaluates the gate activations of a single recurrent step.
//
// Implementations must be numerically interchangeable: they all evaluate each
// gate with EvalGate, so the choice of backend never changes results.
type Backend interface {
	Name() string
	Gates(x, h tensor.Tensor, gates []Gate) ([]tensor.Tensor, error)
	Close() error
}

// EvalGate is the shared kernel for one gate. Operand order is fixed:
// (x·W + h·U) + B, then the activation.
func EvalGate(x, h tensor.Tensor, g Gate) (tensor.Tensor, error) {
	xw, err := tensor.MatMul(x, g.W)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("input projection: %w", err)
	}
	hu, err := tensor.MatMul(h, g.U)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("recurrent projection: %w", err)
	}
	pre, err := tensor.Add(xw, hu)
	if err != nil {
		return tensor.Tensor{}, err
	}
	pre, err = tensor.Add(pre, g.B)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("bias: %w", err)
	}
	return tensor.Apply(pre, g.Activation), nil
}

func Normalize(name string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		return Auto, nil
	}
	switch backend {
	case CPU, Parallel, Auto:
		return backend, nil
	default:
		return "", fmt.Errorf("unknown backend %q (expected auto, cpu, or parallel)", backend)
	}
}

// New constructs the named backend. Auto selects the parallel backend when
// more than two CPUs are available. workers <= 0 means GOMAXPROCS.
func New(name string, workers int) (Backend, error) {
	backend, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	if backend == Auto {
		backend = CPU
		if runtime.GOMAXPROCS(0) > 2 {
			backend = Parallel
		}
	}
	switch backend {
	case Parallel:
		return NewParallel(workers), nil
	default:
		return NewCPU(), nil
	}
}
