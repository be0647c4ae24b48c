package main

import "fmt"

// ===========================================================================
// FEATURE STORE - Per-scale history of materialized features
// ===========================================================================
//
// Every feature the scheduler materializes stays live for the rest of the
// pass: later steps at the same scale fold it into their residual sum,
// and other scales may resample it. So each scale keeps an append-only
// sequence of its features, indexed by slot:
//
//   slot 0   = the scale's seed (stem output at scale 0, a resampled
//              cross-scale feature elsewhere)
//   slot k+1 = the output of step k
//
// A scale that has computed through step t therefore holds t+2 entries,
// and the frontier (next step to compute) is always len-1. Cross-scale
// dependency sources index these slots directly.
//
// One store is created per forward pass and discarded with it. Nothing
// outside the pass mutates it, which is what lets many passes share one
// model with no locking.
// ===========================================================================

// FeatureStore holds the features materialized so far at each scale
// during a single forward pass.
type FeatureStore struct {
	scales [][]*Tensor
}

// NewFeatureStore creates an empty store for the given number of scales.
func NewFeatureStore(nScales int) *FeatureStore {
	if nScales <= 0 {
		panic(fmt.Sprintf("feature_store: nScales must be positive, got %d", nScales))
	}
	return &FeatureStore{scales: make([][]*Tensor, nScales)}
}

// Append materializes a feature at the end of a scale's sequence.
func (fs *FeatureStore) Append(scale int, f *Tensor) {
	fs.checkScale(scale)
	if f == nil {
		panic("feature_store: cannot append nil feature")
	}
	fs.scales[scale] = append(fs.scales[scale], f)
}

// At returns the feature in the given slot of a scale.
// Panics if the slot has not been materialized.
func (fs *FeatureStore) At(scale, slot int) *Tensor {
	fs.checkScale(scale)
	if slot < 0 || slot >= len(fs.scales[scale]) {
		panic(fmt.Sprintf("feature_store: scale %d slot %d not materialized (have %d)",
			scale, slot, len(fs.scales[scale])))
	}
	return fs.scales[scale][slot]
}

// Last returns the most recently materialized feature at a scale.
func (fs *FeatureStore) Last(scale int) *Tensor {
	fs.checkScale(scale)
	n := len(fs.scales[scale])
	if n == 0 {
		panic(fmt.Sprintf("feature_store: scale %d has no features", scale))
	}
	return fs.scales[scale][n-1]
}

// Len returns the number of features materialized at a scale.
func (fs *FeatureStore) Len(scale int) int {
	fs.checkScale(scale)
	return len(fs.scales[scale])
}

// NumScales returns the number of scales the store tracks.
func (fs *FeatureStore) NumScales() int {
	return len(fs.scales)
}

func (fs *FeatureStore) checkScale(scale int) {
	if scale < 0 || scale >= len(fs.scales) {
		panic(fmt.Sprintf("feature_store: scale %d out of range [0,%d)", scale, len(fs.scales)))
	}
}
