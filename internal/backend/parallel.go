package backend

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/samcharles93/recurrent/internal/tensor"
)

// ParallelBackend offloads gate kernels to a fixed pool of worker goroutines.
//
// Every call to Gates enqueues one kernel per gate and then blocks on a fence
// until all of them have finished, so results are only read back after the
// whole step has completed. Kernels from different calls never share a fence.
type ParallelBackend struct {
	mu      sync.RWMutex
	closed  bool
	queue   chan kernel
	workers sync.WaitGroup
}

type kernel struct {
	run   func()
	fence *sync.WaitGroup
}

func NewParallel(workers int) *ParallelBackend {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	b := &ParallelBackend{queue: make(chan kernel, workers*4)}
	for range workers {
		b.workers.Add(1)
		go b.worker()
	}
	return b
}

func (b *ParallelBackend) worker() {
	defer b.workers.Done()
	for k := range b.queue {
		k.run()
		k.fence.Done()
	}
}

func (b *ParallelBackend) Name() string {
	return Parallel
}

func (b *ParallelBackend) Gates(x, h tensor.Tensor, gates []Gate) ([]tensor.Tensor, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrClosed
	}

	out := make([]tensor.Tensor, len(gates))
	errs := make([]error, len(gates))
	var fence sync.WaitGroup
	for i, g := range gates {
		fence.Add(1)
		b.queue <- kernel{
			run: func() {
				act, err := EvalGate(x, h, g)
				if err != nil {
					errs[i] = fmt.Errorf("gate %d: %w", i, err)
					return
				}
				out[i] = act
			},
			fence: &fence,
		}
	}
	b.mu.RUnlock()

	fence.Wait()
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Close drains the queue and stops the workers. It is safe to call twice.
func (b *ParallelBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.workers.Wait()
	return nil
}
