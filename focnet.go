package main

import (
	"errors"
	"fmt"
	"math/rand"
)

// ===========================================================================
// FOCNET - A multi-scale restoration network driven by a traversal
// ===========================================================================
//
// FocNet ("FocNet: A Fractional Optimal Control Network for Image
// Denoising", Jia et al., CVPR 2019) restores an image by running chains
// of conv blocks at several resolution scales and exchanging features
// between neighboring scales at hand-picked points. What makes the model
// interesting to implement is not the convolutions, it is the ORDER in
// which they run.
//
// The order is not written down anywhere. It emerges from a small state
// machine walking (scale, step) coordinates:
//
//   - The walk starts at scale 0, step 0, with the stem projection of
//     the input as scale 0's first stored feature.
//   - A step whose cross-scale dependency is already materialized
//     resamples it (pool down / upsample up), widens its input with it
//     (or adopts it outright as the first feature of a still-empty
//     scale), runs its block, folds in the fractional residual sum of
//     all earlier same-scale features, and stores the result.
//   - A step whose dependency is NOT materialized yet jumps: control
//     moves to the dependency's scale at its first uncomputed step, and
//     works there until the wanted feature exists. That makes the walk
//     depth-first across scales.
//   - A scale that runs out of steps pops control back down to the
//     scale below, at ITS first uncomputed step.
//   - The walk ends when scale 0 completes its steps; a 1x1 projection
//     of scale 0's final feature is the output.
//
// Every coordinate is computed exactly once; features are never
// recomputed, only looked up. The whole control flow is decided by the
// configuration alone, which is why it can be validated and sized by a
// symbolic dry run (schedule.go) before any weights exist.
//
// A model is immutable after construction. Concurrent passes are safe:
// each Forward owns its FeatureStore, and everything shared (weights,
// dependency graph, plan) is read-only.
// ===========================================================================

// ErrInvalidInput reports an input tensor the model cannot consume.
// Wrapped errors carry the specific mismatch.
var ErrInvalidInput = errors.New("focnet: invalid input")

// FocNet is the assembled model: a stem projection, one independently
// parameterized ConvBlock per reachable (scale, step) coordinate, and a
// final 1x1 projection, tied together by the traversal in forward.
type FocNet struct {
	cfg   Config
	graph *DependencyGraph
	plan  *SchedulePlan

	stem   *Conv2D        // Channels -> NFilters, kernel-sized, with bias
	blocks [][]*ConvBlock // [scale][step]; nil where the traversal never arrives
	final  *Conv2D        // NFilters -> 1, 1x1, with bias
}

// NewFocNet validates the configuration, dry-runs the traversal, and
// allocates freshly initialized parameters. A nil config means
// DefaultConfig. The error covers structural problems and traversals
// that would not terminate.
func NewFocNet(cfg *Config) (*FocNet, error) {
	var c Config
	if cfg == nil {
		c = DefaultConfig()
	} else {
		c = cfg.clone()
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	graph, err := buildDependencyGraph(c.Communications, c.NConvsPerScale)
	if err != nil {
		return nil, err
	}
	plan, err := buildSchedulePlan(&c, graph)
	if err != nil {
		return nil, err
	}

	// One seeded source for all parameters makes fresh models
	// reproducible; allocation order (stem, blocks by coordinate, final)
	// is part of that contract and of the checkpoint layout.
	rng := rand.New(rand.NewSource(c.Seed))

	m := &FocNet{cfg: c, graph: graph, plan: plan}
	m.stem = NewConv2D(c.Channels, c.NFilters, c.KernelSize, true, rng)

	m.blocks = make([][]*ConvBlock, c.NScales)
	for s := range m.blocks {
		m.blocks[s] = make([]*ConvBlock, c.NConvsPerScale[s])
		for t := range m.blocks[s] {
			if in, ok := plan.InputChannels[Coordinate{Scale: s, Step: t}]; ok {
				m.blocks[s][t] = NewConvBlock(in, c.NFilters, c.KernelSize, rng)
			}
		}
	}

	m.final = NewConv2D(c.NFilters, 1, 1, true, rng)
	return m, nil
}

// Config returns a copy of the configuration the model was built from.
func (m *FocNet) Config() Config {
	return m.cfg.clone()
}

// Plan returns the traversal schedule fixed at construction.
func (m *FocNet) Plan() *SchedulePlan {
	return m.plan
}

// Forward restores a single image: (Channels,H,W) in, (1,H,W) out. H and
// W must be divisible by 2^(NScales-1) so every scale's resampling is
// exact. The pass is deterministic and does not mutate the model, so any
// number of Forward calls may run concurrently.
func (m *FocNet) Forward(x *Tensor) (*Tensor, error) {
	out, _, err := m.forward(x)
	return out, err
}

// forwardStats counts what one pass actually did; tests hold these equal
// to the schedule plan.
type forwardStats struct {
	order      []Coordinate
	iterations int
	jumps      int
	pops       int
	seeds      int
	concats    int
	storeLens  []int
}

// forward runs the traversal. It must advance through exactly the states
// the dry run in buildSchedulePlan predicted; the two loops are kept
// textually parallel on purpose.
func (m *FocNet) forward(x *Tensor) (*Tensor, forwardStats, error) {
	var stats forwardStats
	if err := m.checkInput(x); err != nil {
		return nil, stats, err
	}

	store := NewFeatureStore(m.cfg.NScales)
	store.Append(0, m.stem.Forward(x))

	scale, step := 0, 0
	for scale != 0 || step < m.cfg.NConvsPerScale[0] {
		stats.iterations++

		// A finished scale hands control back to the one below it,
		// resuming at that scale's first uncomputed step.
		if step >= m.cfg.NConvsPerScale[scale] {
			scale--
			step = store.Len(scale) - 1
			stats.pops++
		}

		var input *Tensor
		if src, ok := m.graph.DependencyOf(Coordinate{Scale: scale, Step: step}); ok {
			if store.Len(src.Scale) <= src.Step {
				// Dependency not materialized: go compute that scale
				// first. This coordinate will be revisited once the
				// feature exists.
				scale = src.Scale
				step = max(store.Len(scale)-1, 0)
				stats.jumps++
				continue
			}

			dep := store.At(src.Scale, src.Step)
			var resampled *Tensor
			if src.Scale > scale {
				resampled = Upsample2D(dep)
			} else {
				resampled = AvgPool2D(dep)
			}

			if store.Len(scale) == 0 {
				// First arrival at this scale: the resampled feature
				// seeds the store and is the block input as-is.
				store.Append(scale, resampled)
				input = resampled
				stats.seeds++
			} else {
				// Indexing by step rather than "last" doubles as a check
				// of the store invariant len == step+1.
				input = ConcatChannels(store.At(scale, step), resampled)
				stats.concats++
			}
		} else {
			input = store.Last(scale)
		}

		out := m.blocks[scale][step].Forward(input)
		for i, w := range residualWeights(step, m.cfg.Beta) {
			out.AddScaled(store.At(scale, i), w)
		}

		store.Append(scale, out)
		stats.order = append(stats.order, Coordinate{Scale: scale, Step: step})
		step++
	}

	for s := 0; s < store.NumScales(); s++ {
		stats.storeLens = append(stats.storeLens, store.Len(s))
	}

	// The terminal feature addressed by step count; invariantly also the
	// last slot of scale 0.
	final := store.At(0, m.cfg.NConvsPerScale[0])
	return m.final.Forward(final), stats, nil
}

func (m *FocNet) checkInput(x *Tensor) error {
	if x == nil {
		return fmt.Errorf("%w: nil tensor", ErrInvalidInput)
	}
	if x.Dims() != 3 {
		return fmt.Errorf("%w: want a (channels, height, width) tensor, got rank %d", ErrInvalidInput, x.Dims())
	}
	if x.shape[0] != m.cfg.Channels {
		return fmt.Errorf("%w: got %d channels, model expects %d", ErrInvalidInput, x.shape[0], m.cfg.Channels)
	}
	div := 1 << (m.cfg.NScales - 1)
	if x.shape[1]%div != 0 || x.shape[2]%div != 0 {
		return fmt.Errorf("%w: spatial dims %dx%d must be divisible by %d for %d scales",
			ErrInvalidInput, x.shape[1], x.shape[2], div, m.cfg.NScales)
	}
	return nil
}
