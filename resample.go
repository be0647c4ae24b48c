package main

import "fmt"

// ===========================================================================
// RESAMPLING - Moving features between adjacent scales
// ===========================================================================
//
// Adjacent scales differ by exactly a factor of two per spatial axis, so
// only two kernels are needed: 2x2 average pooling down, 2x nearest-
// neighbor duplication up. Channel count is preserved by both.
//
// The paper's architecture sketches a learned "switching" operator for
// aligning upsampled features; plain nearest-neighbor upsampling stands
// in for it here.
//
// The model validates input sizes up front (spatial dimensions divisible
// by 2^(scales-1)), so inside a pass every pooled dimension is even.
// ===========================================================================

// AvgPool2D downsamples a CHW feature map by averaging each 2x2 block:
// (C,H,W) -> (C,H/2,W/2). Panics if the input is not rank 3 or has odd
// spatial dimensions.
func AvgPool2D(x *Tensor) *Tensor {
	if len(x.shape) != 3 {
		panic("resample: AvgPool2D requires a rank-3 tensor")
	}
	c, h, w := x.shape[0], x.shape[1], x.shape[2]
	if h%2 != 0 || w%2 != 0 {
		panic(fmt.Sprintf("resample: AvgPool2D requires even spatial dims, got %dx%d", h, w))
	}

	out := NewTensor(c, h/2, w/2)
	for ch := 0; ch < c; ch++ {
		src := x.data[ch*h*w:]
		dst := out.data[ch*(h/2)*(w/2):]
		for y := 0; y < h/2; y++ {
			top := src[(2*y)*w:]
			bot := src[(2*y+1)*w:]
			row := dst[y*(w/2):]
			for xx := 0; xx < w/2; xx++ {
				row[xx] = (top[2*xx] + top[2*xx+1] + bot[2*xx] + bot[2*xx+1]) / 4
			}
		}
	}
	return out
}

// Upsample2D upsamples a CHW feature map by duplicating each value into
// a 2x2 block (nearest neighbor): (C,H,W) -> (C,2H,2W).
func Upsample2D(x *Tensor) *Tensor {
	if len(x.shape) != 3 {
		panic("resample: Upsample2D requires a rank-3 tensor")
	}
	c, h, w := x.shape[0], x.shape[1], x.shape[2]

	out := NewTensor(c, 2*h, 2*w)
	for ch := 0; ch < c; ch++ {
		src := x.data[ch*h*w:]
		dst := out.data[ch*4*h*w:]
		for y := 0; y < h; y++ {
			srcRow := src[y*w : y*w+w]
			top := dst[(2*y)*2*w:]
			bot := dst[(2*y+1)*2*w:]
			for xx, v := range srcRow {
				top[2*xx] = v
				top[2*xx+1] = v
				bot[2*xx] = v
				bot[2*xx+1] = v
			}
		}
	}
	return out
}
