package main

import (
	"testing"
)

// TestDefaultDependencyMap derives the dependency of every coordinate in
// the reference architecture by hand and checks the graph against the
// full table. The alternation rule reads each pair list starting "down"
// (lower scale waits on upper) and flips per entry.
func TestDefaultDependencyMap(t *testing.T) {
	cfg := DefaultConfig()
	g, err := buildDependencyGraph(cfg.Communications, cfg.NConvsPerScale)
	if err != nil {
		t.Fatalf("building default graph: %v", err)
	}

	want := map[Coordinate]Coordinate{
		// scale 0 <- scale 1
		{0, 1}: {1, 2}, {0, 2}: {1, 5}, {0, 3}: {1, 8}, {0, 4}: {1, 11},
		// scale 1 <- scales 0 and 2
		{1, 0}: {0, 1}, {1, 3}: {0, 2}, {1, 6}: {0, 3}, {1, 9}: {0, 4},
		{1, 1}: {2, 2}, {1, 4}: {2, 5}, {1, 7}: {2, 8}, {1, 10}: {2, 11},
		// scale 2 <- scales 1 and 3
		{2, 0}: {1, 1}, {2, 3}: {1, 4}, {2, 6}: {1, 7}, {2, 9}: {1, 10},
		{2, 1}: {3, 1}, {2, 4}: {3, 3}, {2, 7}: {3, 5}, {2, 10}: {3, 7},
		// scale 3 <- scale 2
		{3, 0}: {2, 1}, {3, 2}: {2, 4}, {3, 4}: {2, 7}, {3, 6}: {2, 10},
	}

	if g.Len() != len(want) {
		t.Errorf("expected %d dependencies, got %d", len(want), g.Len())
	}
	for recv, src := range want {
		got, ok := g.DependencyOf(recv)
		if !ok {
			t.Errorf("%v: expected dependency on %v, got none", recv, src)
			continue
		}
		if got != src {
			t.Errorf("%v: expected dependency on %v, got %v", recv, src, got)
		}
	}

	// Spot-check coordinates that must NOT have dependencies.
	for _, c := range []Coordinate{{0, 0}, {1, 2}, {1, 5}, {2, 8}, {3, 1}, {3, 5}} {
		if src, ok := g.DependencyOf(c); ok {
			t.Errorf("%v: expected no dependency, got %v", c, src)
		}
	}
}

// TestDependencyGraphAlternation tests the direction flip on a small
// synthetic table: entry 0 is read down, entry 1 up, entry 2 down again.
func TestDependencyGraphAlternation(t *testing.T) {
	comms := [][]CommPair{
		{{1, 0}, {1, 2}, {2, 3}},
	}
	g, err := buildDependencyGraph(comms, []int{4, 4})
	if err != nil {
		t.Fatalf("building graph: %v", err)
	}

	want := map[Coordinate]Coordinate{
		{1, 0}: {0, 1}, // down: lower step 0 waits on upper slot 1
		{0, 1}: {1, 2}, // up: upper step 1 waits on lower slot 2
		{1, 3}: {0, 2}, // down again
	}
	if g.Len() != len(want) {
		t.Fatalf("expected %d dependencies, got %d", len(want), g.Len())
	}
	for recv, src := range want {
		if got, ok := g.DependencyOf(recv); !ok || got != src {
			t.Errorf("%v: expected %v, got %v (present=%v)", recv, src, got, ok)
		}
	}
}

// TestDependencyGraphDirectionReset tests that the alternation restarts
// at "down" for every adjacent scale pair independently.
func TestDependencyGraphDirectionReset(t *testing.T) {
	comms := [][]CommPair{
		{{1, 0}}, // scales 0-1: down
		{{1, 0}}, // scales 1-2: down again, not a continuation
	}
	g, err := buildDependencyGraph(comms, []int{2, 2, 2})
	if err != nil {
		t.Fatalf("building graph: %v", err)
	}

	if src, ok := g.DependencyOf(Coordinate{1, 0}); !ok || src != (Coordinate{0, 1}) {
		t.Errorf("scales 0-1: expected (1,0) <- (0,1), got %v (present=%v)", src, ok)
	}
	if src, ok := g.DependencyOf(Coordinate{2, 0}); !ok || src != (Coordinate{1, 1}) {
		t.Errorf("scales 1-2: expected (2,0) <- (1,1), got %v (present=%v)", src, ok)
	}
}

// TestDependencyGraphSlotRange tests the asymmetric bounds: a receiving
// step must be strictly inside the scale's step count, while a source
// slot may equal it (the slot after the final step's output).
func TestDependencyGraphSlotRange(t *testing.T) {
	// Source slot == step count: legal.
	if _, err := buildDependencyGraph([][]CommPair{{{2, 0}}}, []int{2, 2}); err != nil {
		t.Errorf("source slot at step count should be legal, got %v", err)
	}

	// Receiving step == step count: out of range.
	if _, err := buildDependencyGraph([][]CommPair{{{1, 2}}}, []int{2, 2}); err == nil {
		t.Error("expected error for receiving step out of range")
	}

	// Source slot past step count: out of range.
	if _, err := buildDependencyGraph([][]CommPair{{{3, 0}}}, []int{2, 2}); err == nil {
		t.Error("expected error for source slot out of range")
	}
}

// TestDependencyGraphDuplicateReceiver tests that a coordinate cannot be
// given two dependencies.
func TestDependencyGraphDuplicateReceiver(t *testing.T) {
	// Entries 0 and 2 are both read down and both target lower step 0.
	comms := [][]CommPair{
		{{1, 0}, {2, 1}, {3, 0}},
	}
	if _, err := buildDependencyGraph(comms, []int{4, 4}); err == nil {
		t.Error("expected error for duplicate receiving coordinate")
	}
}

// TestDependencyGraphTableCount tests the one-table-per-adjacent-pair
// requirement.
func TestDependencyGraphTableCount(t *testing.T) {
	if _, err := buildDependencyGraph([][]CommPair{}, []int{2, 2}); err == nil {
		t.Error("expected error for missing communication table")
	}
	if _, err := buildDependencyGraph([][]CommPair{{}, {}}, []int{2, 2}); err == nil {
		t.Error("expected error for extra communication table")
	}
	// A single scale needs no tables at all.
	if _, err := buildDependencyGraph(nil, []int{3}); err != nil {
		t.Errorf("single scale with no tables should be legal, got %v", err)
	}
}

// TestCoordinateString pins the formatting used throughout error
// messages and traces.
func TestCoordinateString(t *testing.T) {
	c := Coordinate{Scale: 2, Step: 7}
	if got := c.String(); got != "(scale 2, step 7)" {
		t.Errorf("expected \"(scale 2, step 7)\", got %q", got)
	}
}
