package main

import (
	"fmt"
	"math"
)

// ===========================================================================
// TENSOR - The numeric substrate for feature maps
// ===========================================================================
//
// Everything the network touches is a Tensor: a flat float64 slice plus a
// shape. Feature maps are rank-3 tensors in channel-major (CHW) order:
//
//   shape = [channels, height, width]
//   element (c, y, x) lives at data[(c*height + y)*width + x]
//
// CHW keeps each channel contiguous, which makes two operations on the hot
// path trivial:
//   - channel concatenation is two copy() calls (see ConcatChannels)
//   - the im2col weight matrix in conv2d.go is the conv weight tensor
//     reinterpreted in place, no reshuffling
//
// Parameter tensors reuse the same type at other ranks (conv weights are
// rank 4, batch-norm statistics rank 1).
//
// Shape errors inside the numeric core are programmer bugs, not runtime
// conditions, so they panic. Errors that can be caused by user input
// (config files, checkpoints, images) are returned as error values from
// the layers that parse them.
// ===========================================================================

// Tensor is a multi-dimensional array of float64 values stored in
// row-major (C-contiguous) order.
//
// Tensor is not safe for concurrent mutation. The forward pass never
// mutates shared tensors, so read-only sharing across goroutines is fine.
type Tensor struct {
	data  []float64 // Flat storage for all elements
	shape []int     // Dimensions, e.g. [channels, height, width]
}

// NewTensor creates a tensor with the given shape, initialized to zero.
// Panics if the shape is empty or contains non-positive dimensions.
func NewTensor(shape ...int) *Tensor {
	if len(shape) == 0 {
		panic("tensor: shape cannot be empty")
	}

	size := 1
	for i, dim := range shape {
		if dim <= 0 {
			panic(fmt.Sprintf("tensor: shape[%d] must be positive, got %d", i, dim))
		}
		size *= dim
	}

	// Copy the shape slice to prevent external mutation
	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)

	return &Tensor{
		data:  make([]float64, size),
		shape: shapeCopy,
	}
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	shape := make([]int, len(t.shape))
	copy(shape, t.shape)
	return shape
}

// Dims returns the number of dimensions (rank) of the tensor.
func (t *Tensor) Dims() int {
	return len(t.shape)
}

// Size returns the total number of elements in the tensor.
func (t *Tensor) Size() int {
	return len(t.data)
}

// At returns the element at the given indices.
// Panics if indices are invalid.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.flatIndex(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are invalid.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.flatIndex(indices)] = value
}

// flatIndex converts multi-dimensional indices to a flat index.
// Panics on invalid indices.
func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: expected %d indices, got %d", len(t.shape), len(indices)))
	}

	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index[%d]=%d out of bounds [0,%d)", i, indices[i], t.shape[i]))
		}
		idx += indices[i] * stride
		stride *= t.shape[i]
	}

	return idx
}

// Clone creates a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	clone := NewTensor(t.shape...)
	copy(clone.data, t.data)
	return clone
}

// Fill sets every element to the given value.
func (t *Tensor) Fill(value float64) {
	for i := range t.data {
		t.data[i] = value
	}
}

// String returns a short description of the tensor for debugging.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, size=%d)", t.shape, len(t.data))
}

// ===========================================================================
// OPERATIONS
// ===========================================================================

// Add performs element-wise addition: out = a + b.
// Panics if shapes don't match.
func Add(a, b *Tensor) *Tensor {
	if !shapeEqual(a.shape, b.shape) {
		panic(fmt.Sprintf("tensor: cannot add shapes %v and %v", a.shape, b.shape))
	}

	out := NewTensor(a.shape...)
	for i := range out.data {
		out.data[i] = a.data[i] + b.data[i]
	}

	return out
}

// AddScaled accumulates scale*other into the receiver in place:
// t += scale * other. Panics if shapes don't match.
//
// The residual accumulation in the scheduler folds every earlier feature
// at a scale into the newest one; doing that in place avoids one
// feature-map allocation per prior step.
func (t *Tensor) AddScaled(other *Tensor, scale float64) {
	if !shapeEqual(t.shape, other.shape) {
		panic(fmt.Sprintf("tensor: cannot accumulate shapes %v and %v", t.shape, other.shape))
	}

	for i := range t.data {
		t.data[i] += scale * other.data[i]
	}
}

// Scale multiplies all elements by a scalar: out = a * scalar.
func Scale(a *Tensor, scalar float64) *Tensor {
	out := NewTensor(a.shape...)
	for i := range out.data {
		out.data[i] = a.data[i] * scalar
	}
	return out
}

// ReLU applies the rectified linear unit: f(x) = max(0, x).
func ReLU(x *Tensor) *Tensor {
	out := NewTensor(x.shape...)
	for i := range x.data {
		out.data[i] = math.Max(0, x.data[i])
	}
	return out
}

// ConcatChannels concatenates two CHW feature maps along the channel
// axis: (C1,H,W) + (C2,H,W) -> (C1+C2,H,W). Panics if either tensor is
// not rank 3 or the spatial dimensions differ.
//
// Because channels are the outermost axis, the result is just the two
// backing slices laid end to end.
func ConcatChannels(a, b *Tensor) *Tensor {
	if len(a.shape) != 3 || len(b.shape) != 3 {
		panic("tensor: ConcatChannels requires rank-3 tensors")
	}
	if a.shape[1] != b.shape[1] || a.shape[2] != b.shape[2] {
		panic(fmt.Sprintf("tensor: cannot concat spatial shapes %v and %v", a.shape, b.shape))
	}

	out := NewTensor(a.shape[0]+b.shape[0], a.shape[1], a.shape[2])
	copy(out.data, a.data)
	copy(out.data[len(a.data):], b.data)
	return out
}

// ===========================================================================
// HELPERS
// ===========================================================================

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
