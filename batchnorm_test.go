package main

import (
	"math"
	"testing"
)

// TestBatchNormIdentityInit tests a fresh layer: with gamma 1, beta 0,
// mean 0, var 1 it reduces to x / sqrt(1 + eps).
func TestBatchNormIdentityInit(t *testing.T) {
	bn := NewBatchNorm2D(1)

	x := NewTensor(1, 2, 2)
	x.Fill(5)

	y := bn.Forward(x)
	want := 5 / math.Sqrt(1+batchNormEps)
	for i := range y.data {
		if math.Abs(y.data[i]-want) > 1e-15 {
			t.Errorf("element %d: expected %g, got %g", i, want, y.data[i])
		}
	}
}

// TestBatchNormAffine tests the full normalization with non-trivial
// per-channel statistics: y = gamma*(x-mean)/sqrt(var+eps) + beta.
func TestBatchNormAffine(t *testing.T) {
	bn := NewBatchNorm2D(2)
	bn.Gamma.Set(2, 0)
	bn.Beta.Set(1, 0)
	bn.Mean.Set(3, 0)
	bn.Var.Set(4, 0)
	// Channel 1 keeps identity statistics.

	x := NewTensor(2, 1, 2)
	x.Set(7, 0, 0, 0)
	x.Set(3, 0, 0, 1)
	x.Set(-2, 1, 0, 0)

	y := bn.Forward(x)

	// Channel 0: 2*(7-3)/sqrt(4.001) + 1 and 2*(3-3)/sqrt(4.001) + 1.
	want00 := 2*4/math.Sqrt(4+batchNormEps) + 1
	if math.Abs(y.At(0, 0, 0)-want00) > 1e-12 {
		t.Errorf("channel 0: expected %g, got %g", want00, y.At(0, 0, 0))
	}
	if math.Abs(y.At(0, 0, 1)-1) > 1e-12 {
		t.Errorf("channel 0 at the mean: expected 1, got %g", y.At(0, 0, 1))
	}
	wantCh1 := -2 / math.Sqrt(1+batchNormEps)
	if math.Abs(y.At(1, 0, 0)-wantCh1) > 1e-15 {
		t.Errorf("channel 1: expected %g, got %g", wantCh1, y.At(1, 0, 0))
	}
}

// TestBatchNormGuards tests shape validation.
func TestBatchNormGuards(t *testing.T) {
	expectPanic(t, "zero channels", func() { NewBatchNorm2D(0) })

	bn := NewBatchNorm2D(2)
	expectPanic(t, "channel mismatch", func() { bn.Forward(NewTensor(3, 2, 2)) })
	expectPanic(t, "rank mismatch", func() { bn.Forward(NewTensor(2, 2)) })
}
