package main

import (
	"fmt"
	"math"
)

// ===========================================================================
// BATCH NORM (inference) - Per-channel affine renormalization
// ===========================================================================
//
// At inference time batch normalization is a fixed per-channel affine
// map built from the statistics learned during training:
//
//   y = gamma * (x - mean) / sqrt(var + eps) + beta
//
// which folds into y = scale*x + shift with one scale/shift pair per
// channel. A freshly constructed layer carries identity statistics
// (gamma 1, beta 0, mean 0, var 1), so before any training it only
// shrinks values by the epsilon term.
// ===========================================================================

// batchNormEps is the Keras default the published FocNet weights assume.
const batchNormEps = 1e-3

// BatchNorm2D normalizes each channel of a CHW feature map with fixed
// per-channel statistics.
type BatchNorm2D struct {
	Gamma *Tensor // (C) learned scale
	Beta  *Tensor // (C) learned shift
	Mean  *Tensor // (C) running mean
	Var   *Tensor // (C) running variance
	Eps   float64
}

// NewBatchNorm2D creates an identity-initialized layer for the given
// channel count.
func NewBatchNorm2D(channels int) *BatchNorm2D {
	if channels <= 0 {
		panic(fmt.Sprintf("batchnorm: channels must be positive, got %d", channels))
	}

	bn := &BatchNorm2D{
		Gamma: NewTensor(channels),
		Beta:  NewTensor(channels),
		Mean:  NewTensor(channels),
		Var:   NewTensor(channels),
		Eps:   batchNormEps,
	}
	bn.Gamma.Fill(1)
	bn.Var.Fill(1)
	return bn
}

// Forward normalizes a (C,H,W) feature map channel by channel.
func (bn *BatchNorm2D) Forward(x *Tensor) *Tensor {
	if len(x.shape) != 3 {
		panic("batchnorm: Forward requires a rank-3 tensor")
	}
	c := x.shape[0]
	if c != bn.Gamma.shape[0] {
		panic(fmt.Sprintf("batchnorm: input has %d channels, layer expects %d", c, bn.Gamma.shape[0]))
	}

	hw := x.shape[1] * x.shape[2]
	out := NewTensor(x.shape...)
	for ch := 0; ch < c; ch++ {
		scale := bn.Gamma.data[ch] / math.Sqrt(bn.Var.data[ch]+bn.Eps)
		shift := bn.Beta.data[ch] - bn.Mean.data[ch]*scale

		src := x.data[ch*hw : (ch+1)*hw]
		dst := out.data[ch*hw : (ch+1)*hw]
		for i, v := range src {
			dst[i] = scale*v + shift
		}
	}
	return out
}
