package main

import "fmt"

// ===========================================================================
// SCHEDULE PLAN - Dry-running the traversal before any arithmetic
// ===========================================================================
//
// The scheduler's control flow depends only on the configuration (step
// counts and the dependency graph), never on tensor values. That makes
// the whole traversal decidable at construction time: we can replay it
// symbolically, tracking just how many features each scale has
// materialized, and learn everything a real pass will do before paying
// for a single convolution.
//
// The dry run serves three purposes:
//
//  1. VALIDATION. A malformed communication table produces one of a small
//     set of failures, all caught here and reported as configuration
//     errors instead of hangs or panics mid-inference:
//       - a jump cycle: coordinates waiting on each other so the
//         traversal bounces forever without computing anything
//       - a pop into a scale that never materialized a feature
//       - a coordinate with no dependency and no prior feature to consume
//       - a resume position past the end of a scale's step range
//     Cycle detection uses a visited set that resets on every compute:
//     between computes the store lengths are frozen, so the transition
//     out of a coordinate is a pure function of that coordinate, and
//     revisiting one is proof of non-termination.
//
//  2. PARAMETER SIZING. A block's input width depends on traversal
//     history: a step that concatenates a cross-scale feature sees twice
//     the channels. The plan records the exact input channel count per
//     coordinate so the model can allocate correctly-shaped weights up
//     front. Coordinates the traversal never reaches get no entry and no
//     parameters, matching the lazily-built layers of the reference
//     model.
//
//  3. REGRESSION BASELINE. The event list and counters (iterations,
//     jumps, pops, seeds, concats, resamples) pin down the traversal
//     order. Tests compare a live pass against the plan, and the
//     describe command renders the plan for inspection.
// ===========================================================================

// TraceAction is the kind of one traversal event.
type TraceAction int

const (
	// TraceCompute runs the block at a coordinate and appends its output.
	TraceCompute TraceAction = iota
	// TraceJump abandons the current coordinate to go materialize an
	// unresolved cross-scale dependency first.
	TraceJump
	// TracePop returns from a finished scale to the frontier of the one
	// below it.
	TracePop
)

func (a TraceAction) String() string {
	switch a {
	case TraceCompute:
		return "compute"
	case TraceJump:
		return "jump"
	case TracePop:
		return "pop"
	default:
		return fmt.Sprintf("TraceAction(%d)", int(a))
	}
}

// TraceEvent records one action of the traversal.
type TraceEvent struct {
	Action TraceAction
	At     Coordinate // compute: the coordinate computed; jump: the blocked coordinate; pop: the coordinate resumed at

	// Dependency details, set when the blocked/computed coordinate has one.
	Source    Coordinate // the cross-scale feature slot involved
	HasSource bool
	Target    Coordinate // jump only: where the traversal resumes

	// Compute details.
	Seeded     bool // the resampled source became the scale's first feature
	Concat     bool // input widened by concatenating the resampled source
	Upsampled  bool // source came from a coarser scale
	InChannels int  // block input channel count
}

// SchedulePlan is the result of dry-running the traversal for one
// configuration. Immutable once built; shared by all forward passes.
type SchedulePlan struct {
	// Order lists every computed coordinate in execution order. Each
	// coordinate appears exactly once.
	Order []Coordinate

	// InputChannels maps each computed coordinate to its block's input
	// width. Coordinates absent from this map are never reached.
	InputChannels map[Coordinate]int

	// Events is the full action-by-action trace.
	Events []TraceEvent

	// Iterations counts loop iterations (computes + jumps).
	Iterations int

	Jumps   int
	Pops    int
	Seeds   int
	Concats int
	Pools   int // downsampling resolutions (source at a finer scale)
	Unpools int // upsampling resolutions (source at a coarser scale)
}

// Computes returns the number of computed coordinates.
func (p *SchedulePlan) Computes() int {
	return len(p.Order)
}

// Covered reports whether the traversal reaches the given coordinate.
func (p *SchedulePlan) Covered(c Coordinate) bool {
	_, ok := p.InputChannels[c]
	return ok
}

// buildSchedulePlan replays the scheduler's state machine against store
// lengths only. It mirrors the live loop in (*FocNet).forward exactly;
// the two must advance through identical states, and tests hold them to
// that.
func buildSchedulePlan(cfg *Config, g *DependencyGraph) (*SchedulePlan, error) {
	nConvs := cfg.NConvsPerScale
	plan := &SchedulePlan{
		InputChannels: make(map[Coordinate]int),
	}

	// lens[s] tracks len(FeatureStore[s]) of a live pass. Scale 0 starts
	// seeded with the stem projection.
	lens := make([]int, cfg.NScales)
	lens[0] = 1

	// Frontier coordinates visited since the last compute. Store lengths
	// only change on compute, so a repeat in here means the traversal is
	// stuck in a jump cycle.
	visited := make(map[Coordinate]bool)

	scale, step := 0, 0
	for scale != 0 || step < nConvs[0] {
		plan.Iterations++

		here := Coordinate{Scale: scale, Step: step}
		if visited[here] {
			return nil, fmt.Errorf("schedule: traversal revisits %v without computing anything: dependency cycle", here)
		}
		visited[here] = true

		// A finished scale returns control to the one below, resuming at
		// its first uncomputed step.
		if step >= nConvs[scale] {
			scale--
			step = lens[scale] - 1
			if step < 0 {
				return nil, fmt.Errorf("schedule: traversal pops into scale %d before it has any features", scale)
			}
			if step >= nConvs[scale] {
				return nil, fmt.Errorf("schedule: traversal resumes scale %d at step %d, past its %d steps", scale, step, nConvs[scale])
			}
			plan.Pops++
			plan.Events = append(plan.Events, TraceEvent{
				Action: TracePop,
				At:     Coordinate{Scale: scale, Step: step},
			})
		}

		ev := TraceEvent{
			Action: TraceCompute,
			At:     Coordinate{Scale: scale, Step: step},
		}
		if src, ok := g.DependencyOf(Coordinate{Scale: scale, Step: step}); ok {
			if lens[src.Scale] <= src.Step {
				// Dependency not materialized yet: abandon this
				// coordinate and go compute the other scale up to it.
				target := Coordinate{Scale: src.Scale, Step: max(lens[src.Scale]-1, 0)}
				plan.Jumps++
				plan.Events = append(plan.Events, TraceEvent{
					Action:    TraceJump,
					At:        Coordinate{Scale: scale, Step: step},
					Source:    src,
					HasSource: true,
					Target:    target,
				})
				scale, step = target.Scale, target.Step
				continue
			}

			ev.Source = src
			ev.HasSource = true
			ev.Upsampled = src.Scale > scale
			if ev.Upsampled {
				plan.Unpools++
			} else {
				plan.Pools++
			}
			if lens[scale] == 0 {
				// The resampled feature seeds the scale and is also the
				// block input.
				ev.Seeded = true
				ev.InChannels = cfg.NFilters
				plan.Seeds++
				lens[scale] = 1
			} else {
				ev.Concat = true
				ev.InChannels = 2 * cfg.NFilters
				plan.Concats++
			}
		} else {
			if lens[scale] == 0 {
				return nil, fmt.Errorf("schedule: %v has no dependency and scale %d has no feature to consume",
					Coordinate{Scale: scale, Step: step}, scale)
			}
			ev.InChannels = cfg.NFilters
		}

		if step >= nConvs[scale] {
			return nil, fmt.Errorf("schedule: compute requested at %v, past scale %d's %d steps",
				Coordinate{Scale: scale, Step: step}, scale, nConvs[scale])
		}

		plan.Order = append(plan.Order, ev.At)
		plan.InputChannels[ev.At] = ev.InChannels
		plan.Events = append(plan.Events, ev)
		lens[scale]++
		step++

		// Store lengths changed: earlier frontier states are reachable
		// again without implying a cycle.
		clear(visited)
	}

	return plan, nil
}
