package main

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// ===========================================================================
// CONV2D - Convolution as one big matrix multiply
// ===========================================================================
//
// A direct convolution is six nested loops with terrible memory locality.
// The standard trick (im2col, "image to columns") trades memory for one
// dense matrix multiply:
//
//   1. Unroll every kxk input patch into a column of a scratch matrix:
//        cols: (inC*k*k, H*W)     one column per output pixel
//   2. View the weight tensor (outC, inC, k, k), which is already
//      contiguous in that order, as a matrix:
//        weights: (outC, inC*k*k)    no copy, same backing array
//   3. Multiply:
//        out = weights @ cols      -> (outC, H*W) = the output map
//
// Step 3 goes through gonum's BLAS-backed Dense.Mul, and all three
// matrices wrap existing float64 slices, so the only traffic beyond the
// multiply itself is the patch unrolling.
//
// "Same" zero padding keeps spatial dimensions unchanged; stride is
// always 1 in this architecture. The scratch matrix is the largest
// transient allocation in a pass (inC*k*k*H*W floats), so it is recycled
// through a sync.Pool; with several passes running on a worker pool each
// goroutine effectively keeps its own scratch.
// ===========================================================================

// im2colPool recycles patch-matrix scratch buffers across Forward calls.
var im2colPool = sync.Pool{
	New: func() any { return new([]float64) },
}

// Conv2D is a 2-D convolution layer with "same" zero padding and stride
// 1. Bias is optional: the scheduler's internal blocks run without it
// (batch norm supplies the shift), while the stem and final projection
// carry one.
type Conv2D struct {
	InChannels  int
	OutChannels int
	Kernel      int

	W *Tensor // (OutChannels, InChannels, Kernel, Kernel)
	B *Tensor // (OutChannels), nil when the layer has no bias
}

// NewConv2D creates a convolution layer with He-initialized weights
// (normal draws scaled by sqrt(2/fanIn), the right variance for layers
// feeding ReLUs) and, if bias is requested, a zero bias vector.
func NewConv2D(inChannels, outChannels, kernel int, bias bool, rng *rand.Rand) *Conv2D {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: channel counts must be positive, got %d -> %d", inChannels, outChannels))
	}
	if kernel <= 0 || kernel%2 == 0 {
		panic(fmt.Sprintf("conv2d: kernel must be positive and odd, got %d", kernel))
	}

	c := &Conv2D{
		InChannels:  inChannels,
		OutChannels: outChannels,
		Kernel:      kernel,
		W:           NewTensor(outChannels, inChannels, kernel, kernel),
	}

	std := math.Sqrt(2.0 / float64(inChannels*kernel*kernel))
	for i := range c.W.data {
		c.W.data[i] = rng.NormFloat64() * std
	}

	if bias {
		c.B = NewTensor(outChannels)
	}
	return c
}

// Forward applies the convolution to a CHW feature map:
// (InChannels,H,W) -> (OutChannels,H,W). Panics on a channel mismatch;
// the model validates shapes before a pass starts.
func (c *Conv2D) Forward(x *Tensor) *Tensor {
	if len(x.shape) != 3 {
		panic("conv2d: Forward requires a rank-3 tensor")
	}
	if x.shape[0] != c.InChannels {
		panic(fmt.Sprintf("conv2d: input has %d channels, layer expects %d", x.shape[0], c.InChannels))
	}

	h, w := x.shape[1], x.shape[2]
	hw := h * w
	k := c.Kernel
	pad := k / 2
	rows := c.InChannels * k * k

	buf := im2colPool.Get().(*[]float64)
	if cap(*buf) < rows*hw {
		*buf = make([]float64, rows*hw)
	}
	cols := (*buf)[:rows*hw]

	// Unroll patches. Every cell is written (zeros for padding), so a
	// recycled buffer needs no clearing.
	row := 0
	for ic := 0; ic < c.InChannels; ic++ {
		chanOff := ic * hw
		for ky := 0; ky < k; ky++ {
			for kx := 0; kx < k; kx++ {
				dst := cols[row*hw : (row+1)*hw]
				for y := 0; y < h; y++ {
					sy := y + ky - pad
					dstRow := dst[y*w : y*w+w]
					if sy < 0 || sy >= h {
						for xx := range dstRow {
							dstRow[xx] = 0
						}
						continue
					}
					srcRow := x.data[chanOff+sy*w : chanOff+sy*w+w]
					for xx := 0; xx < w; xx++ {
						sx := xx + kx - pad
						if sx < 0 || sx >= w {
							dstRow[xx] = 0
						} else {
							dstRow[xx] = srcRow[sx]
						}
					}
				}
				row++
			}
		}
	}

	out := NewTensor(c.OutChannels, h, w)

	// All three matrices wrap existing backing slices; Mul writes the
	// product straight into the output tensor.
	wm := mat.NewDense(c.OutChannels, rows, c.W.data)
	cm := mat.NewDense(rows, hw, cols)
	om := mat.NewDense(c.OutChannels, hw, out.data)
	om.Mul(wm, cm)

	im2colPool.Put(buf)

	if c.B != nil {
		for oc := 0; oc < c.OutChannels; oc++ {
			b := c.B.data[oc]
			dst := out.data[oc*hw : (oc+1)*hw]
			for i := range dst {
				dst[i] += b
			}
		}
	}

	return out
}
