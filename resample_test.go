package main

import "testing"

// TestAvgPool2D tests 2x2 average pooling on a hand-filled map.
func TestAvgPool2D(t *testing.T) {
	x := NewTensor(1, 4, 4)
	// Row-major 0..15: the top-left 2x2 block is {0,1,4,5}, mean 2.5.
	for i := 0; i < 16; i++ {
		x.data[i] = float64(i)
	}

	y := AvgPool2D(x)

	shape := y.Shape()
	if shape[0] != 1 || shape[1] != 2 || shape[2] != 2 {
		t.Fatalf("expected shape [1 2 2], got %v", shape)
	}

	// (0+1+4+5)/4, (2+3+6+7)/4, (8+9+12+13)/4, (10+11+14+15)/4
	want := []float64{2.5, 4.5, 10.5, 12.5}
	for i, w := range want {
		if y.data[i] != w {
			t.Errorf("element %d: expected %f, got %f", i, w, y.data[i])
		}
	}
}

// TestAvgPool2DMultiChannel tests that channels pool independently.
func TestAvgPool2DMultiChannel(t *testing.T) {
	x := NewTensor(2, 2, 2)
	for i := 0; i < 4; i++ {
		x.data[i] = 1 // channel 0
		x.data[4+i] = 3
	}

	y := AvgPool2D(x)
	if y.At(0, 0, 0) != 1 || y.At(1, 0, 0) != 3 {
		t.Errorf("expected channel means [1 3], got [%f %f]", y.At(0, 0, 0), y.At(1, 0, 0))
	}
}

// TestUpsample2D tests nearest-neighbor duplication.
func TestUpsample2D(t *testing.T) {
	x := NewTensor(1, 2, 2)
	x.Set(1, 0, 0, 0)
	x.Set(2, 0, 0, 1)
	x.Set(3, 0, 1, 0)
	x.Set(4, 0, 1, 1)

	y := Upsample2D(x)

	shape := y.Shape()
	if shape[0] != 1 || shape[1] != 4 || shape[2] != 4 {
		t.Fatalf("expected shape [1 4 4], got %v", shape)
	}

	want := [][]float64{
		{1, 1, 2, 2},
		{1, 1, 2, 2},
		{3, 3, 4, 4},
		{3, 3, 4, 4},
	}
	for yy := 0; yy < 4; yy++ {
		for xx := 0; xx < 4; xx++ {
			if got := y.At(0, yy, xx); got != want[yy][xx] {
				t.Errorf("(%d,%d): expected %f, got %f", yy, xx, want[yy][xx], got)
			}
		}
	}
}

// TestPoolUpsampleRoundTrip tests that pooling undoes upsampling exactly:
// every 2x2 block of an upsampled map is constant, so averaging it
// recovers the original value.
func TestPoolUpsampleRoundTrip(t *testing.T) {
	x := NewTensor(2, 2, 2)
	for i := range x.data {
		x.data[i] = float64(i) * 0.25
	}

	y := AvgPool2D(Upsample2D(x))
	if !shapeEqual(y.shape, x.shape) {
		t.Fatalf("expected shape %v, got %v", x.shape, y.shape)
	}
	for i := range x.data {
		if y.data[i] != x.data[i] {
			t.Errorf("element %d: expected %f, got %f", i, x.data[i], y.data[i])
		}
	}
}

// TestResamplePanics tests shape guards: pooling needs even spatial dims,
// both need rank 3.
func TestResamplePanics(t *testing.T) {
	expectPanic(t, "odd pool dims", func() { AvgPool2D(NewTensor(1, 3, 4)) })
	expectPanic(t, "pool rank", func() { AvgPool2D(NewTensor(4, 4)) })
	expectPanic(t, "upsample rank", func() { Upsample2D(NewTensor(4, 4)) })
}
