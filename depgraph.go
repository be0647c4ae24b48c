package main

import "fmt"

// ===========================================================================
// DEPENDENCY GRAPH - Who needs whom across scales
// ===========================================================================
//
// FocNet computes features at several resolution scales, and designated
// steps exchange features with the neighboring scale. The exchange
// topology is declared per pair of adjacent scales as an ordered list of
// (upper step, lower step) pairs, and the list is read with a direction
// flag that starts at "down" and flips after every pair:
//
//   down: the LOWER (coarser) scale's step waits on the upper scale
//   up:   the UPPER (finer) scale's step waits on the lower scale
//
// The alternation is part of the architecture, not a configuration knob.
// Reading the default table this way produces the checkerboard pattern in
// which scales hand features down on one step and take them back a few
// steps later.
//
// The two sides of an entry are indexed differently:
//
//   - The receiving side is a STEP index. It is compared against the
//     traversal's step counter, so it must lie in [0, steps at scale).
//   - The source side indexes a scale's materialized feature sequence,
//     where slot 0 is the scale's seed feature and slot k+1 holds the
//     output of step k. It may therefore be as large as the step count
//     itself (the default table references slot 11 at an 11-step scale:
//     the output of that scale's final step).
//
// The graph is a plain map with at most one outgoing edge per node. It is
// built once at construction, validated, and shared read-only by every
// forward pass.
// ===========================================================================

// Coordinate identifies one materialized feature: a scale and a position
// within that scale.
type Coordinate struct {
	Scale int
	Step  int
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(scale %d, step %d)", c.Scale, c.Step)
}

// DependencyGraph maps a receiving coordinate to the cross-scale source
// it must resolve before its block can run. Immutable after construction.
type DependencyGraph struct {
	deps map[Coordinate]Coordinate
}

// buildDependencyGraph constructs the dependency map from the per-pair
// communication tables, enforcing direction alternation and validating
// every entry against the per-scale step counts.
func buildDependencyGraph(comms [][]CommPair, nConvsPerScale []int) (*DependencyGraph, error) {
	nScales := len(nConvsPerScale)
	if len(comms) != nScales-1 {
		return nil, fmt.Errorf("depgraph: got %d communication lists for %d scales, want %d",
			len(comms), nScales, nScales-1)
	}

	g := &DependencyGraph{deps: make(map[Coordinate]Coordinate)}
	for upper, pairs := range comms {
		lower := upper + 1
		down := true
		for i, p := range pairs {
			var recv, src Coordinate
			if down {
				recv = Coordinate{Scale: lower, Step: p.Lower}
				src = Coordinate{Scale: upper, Step: p.Upper}
			} else {
				recv = Coordinate{Scale: upper, Step: p.Upper}
				src = Coordinate{Scale: lower, Step: p.Lower}
			}

			// Receiving side is a step index, source side a feature slot.
			if recv.Step < 0 || recv.Step >= nConvsPerScale[recv.Scale] {
				return nil, fmt.Errorf("depgraph: scales %d-%d pair %d: receiving step %d out of range [0,%d)",
					upper, lower, i, recv.Step, nConvsPerScale[recv.Scale])
			}
			if src.Step < 0 || src.Step > nConvsPerScale[src.Scale] {
				return nil, fmt.Errorf("depgraph: scales %d-%d pair %d: source slot %d out of range [0,%d]",
					upper, lower, i, src.Step, nConvsPerScale[src.Scale])
			}
			if prev, dup := g.deps[recv]; dup {
				return nil, fmt.Errorf("depgraph: %v already depends on %v, cannot also depend on %v",
					recv, prev, src)
			}

			g.deps[recv] = src
			down = !down
		}
	}

	return g, nil
}

// DependencyOf returns the cross-scale source for a coordinate, or
// ok=false if the coordinate is computed purely from its own scale.
func (g *DependencyGraph) DependencyOf(c Coordinate) (Coordinate, bool) {
	src, ok := g.deps[c]
	return src, ok
}

// Len returns the number of dependency entries.
func (g *DependencyGraph) Len() int {
	return len(g.deps)
}
