package main

import (
	"fmt"
	"runtime"
	"sync"
)

// ===========================================================================
// BATCH RESTORATION - Fan a set of images over a worker pool
// ===========================================================================
//
// A forward pass touches the model parameters read-only and keeps all of
// its mutable state (the per-scale feature stores) on its own stack, so
// independent images can run concurrently on the same model. The pool
// below is a plain jobs-channel fan-out: workers pull indices and write
// into disjoint slots of the output slice, so no locking is needed
// beyond the channel itself.
// ===========================================================================

// RestoreBatch runs the model over a batch of images on a fixed pool of
// workers. workers <= 0 means one per CPU. Results come back in input
// order; the first per-image error aborts the batch.
func RestoreBatch(m *FocNet, inputs []*Tensor, workers int) ([]*Tensor, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	outs := make([]*Tensor, len(inputs))
	errs := make([]error, len(inputs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outs[i], errs[i] = m.Forward(inputs[i])
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
	}
	return outs, nil
}
