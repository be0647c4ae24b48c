package main

import (
	"testing"
)

// expectPanic runs fn and fails the test if it completes without
// panicking. Shape errors in the numeric core are contract violations
// and panic rather than returning errors.
func expectPanic(t *testing.T, msg string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", msg)
		}
	}()
	fn()
}

// TestTensorBasics tests tensor creation, shape reporting, and element
// access.
func TestTensorBasics(t *testing.T) {
	tensor := NewTensor(2, 3)

	shape := tensor.Shape()
	if len(shape) != 2 || shape[0] != 2 || shape[1] != 3 {
		t.Errorf("expected shape [2 3], got %v", shape)
	}
	if tensor.Dims() != 2 {
		t.Errorf("expected rank 2, got %d", tensor.Dims())
	}
	if tensor.Size() != 6 {
		t.Errorf("expected size 6, got %d", tensor.Size())
	}

	tensor.Set(1.5, 0, 0)
	tensor.Set(2.5, 1, 2)

	if v := tensor.At(0, 0); v != 1.5 {
		t.Errorf("expected 1.5, got %f", v)
	}
	if v := tensor.At(1, 2); v != 2.5 {
		t.Errorf("expected 2.5, got %f", v)
	}

	// Shape() must return a copy; mutating it cannot corrupt the tensor.
	shape[0] = 99
	if tensor.Shape()[0] != 2 {
		t.Error("Shape() exposed internal state")
	}
}

// TestTensorCHWLayout pins the memory layout feature maps rely on:
// element (c, y, x) lives at data[(c*height+y)*width+x].
func TestTensorCHWLayout(t *testing.T) {
	x := NewTensor(2, 3, 4) // 2 channels, 3 rows, 4 cols
	x.Set(7.0, 1, 2, 3)

	// (1*3+2)*4+3 = 23
	if x.data[23] != 7.0 {
		t.Errorf("expected data[23] = 7, got %f", x.data[23])
	}
}

// TestTensorClone tests that clones are independent copies.
func TestTensorClone(t *testing.T) {
	a := NewTensor(2, 2)
	a.Set(1.0, 0, 0)

	b := a.Clone()
	b.Set(9.0, 0, 0)

	if a.At(0, 0) != 1.0 {
		t.Errorf("clone mutation leaked into original: got %f", a.At(0, 0))
	}
	if b.At(0, 0) != 9.0 {
		t.Errorf("expected 9 in clone, got %f", b.At(0, 0))
	}
}

// TestAdd tests element-wise addition.
func TestAdd(t *testing.T) {
	a := NewTensor(2, 2)
	b := NewTensor(2, 2)
	a.Fill(1.5)
	b.Fill(2.0)

	c := Add(a, b)
	for i := range c.data {
		if c.data[i] != 3.5 {
			t.Fatalf("element %d: expected 3.5, got %f", i, c.data[i])
		}
	}

	expectPanic(t, "mismatched add", func() { Add(a, NewTensor(2, 3)) })
}

// TestAddScaled tests in-place scaled accumulation, the primitive behind
// the residual sums.
func TestAddScaled(t *testing.T) {
	a := NewTensor(3)
	a.Set(1, 0)
	a.Set(2, 1)
	a.Set(3, 2)

	b := NewTensor(3)
	b.Set(10, 0)
	b.Set(20, 1)
	b.Set(30, 2)

	a.AddScaled(b, 0.5)

	// 1+5, 2+10, 3+15
	want := []float64{6, 12, 18}
	for i, w := range want {
		if a.data[i] != w {
			t.Errorf("element %d: expected %f, got %f", i, w, a.data[i])
		}
	}

	expectPanic(t, "mismatched accumulate", func() { a.AddScaled(NewTensor(4), 1) })
}

// TestScale tests scalar multiplication.
func TestScale(t *testing.T) {
	a := NewTensor(2)
	a.Set(3, 0)
	a.Set(-4, 1)

	b := Scale(a, -2)
	if b.At(0) != -6 || b.At(1) != 8 {
		t.Errorf("expected [-6 8], got [%f %f]", b.At(0), b.At(1))
	}
}

// TestReLU tests that negatives clamp to zero and positives pass through.
func TestReLU(t *testing.T) {
	x := NewTensor(4)
	x.Set(-2, 0)
	x.Set(-0.5, 1)
	x.Set(0, 2)
	x.Set(3.5, 3)

	y := ReLU(x)
	want := []float64{0, 0, 0, 3.5}
	for i, w := range want {
		if y.data[i] != w {
			t.Errorf("element %d: expected %f, got %f", i, w, y.data[i])
		}
	}
	if x.At(0) != -2 {
		t.Error("ReLU mutated its input")
	}
}

// TestConcatChannels tests channel concatenation of CHW maps, including
// the stacking order (first input's channels first).
func TestConcatChannels(t *testing.T) {
	a := NewTensor(1, 2, 2)
	a.Fill(1)
	b := NewTensor(2, 2, 2)
	b.Fill(2)

	c := ConcatChannels(a, b)

	shape := c.Shape()
	if shape[0] != 3 || shape[1] != 2 || shape[2] != 2 {
		t.Fatalf("expected shape [3 2 2], got %v", shape)
	}
	if c.At(0, 1, 1) != 1 {
		t.Errorf("channel 0 should come from the first input, got %f", c.At(0, 1, 1))
	}
	if c.At(1, 0, 0) != 2 || c.At(2, 1, 0) != 2 {
		t.Error("channels 1-2 should come from the second input")
	}

	expectPanic(t, "spatial mismatch", func() { ConcatChannels(a, NewTensor(1, 2, 3)) })
	expectPanic(t, "rank mismatch", func() { ConcatChannels(a, NewTensor(2, 2)) })
}

// TestNewTensorRejectsBadShapes tests constructor validation.
func TestNewTensorRejectsBadShapes(t *testing.T) {
	expectPanic(t, "empty shape", func() { NewTensor() })
	expectPanic(t, "zero dim", func() { NewTensor(2, 0) })
	expectPanic(t, "negative dim", func() { NewTensor(-1) })
}
