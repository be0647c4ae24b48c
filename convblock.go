package main

import "math/rand"

// ===========================================================================
// CONV BLOCK - The repeated unit of the network
// ===========================================================================
//
// Every scheduled step runs one ConvBlock: convolution (no bias) ->
// batch norm -> ReLU. The convolution goes biasless because batch norm's
// beta immediately absorbs any constant offset.
//
// Blocks do not share weights. Each (scale, step) coordinate owns its own
// independently initialized block, and a block's input width is fixed by
// the schedule: normally the network's filter count, twice that at steps
// whose input concatenates a cross-scale feature.
// ===========================================================================

// ConvBlock is one conv -> batchnorm -> ReLU stage.
type ConvBlock struct {
	Conv *Conv2D
	Norm *BatchNorm2D
}

// NewConvBlock creates a block mapping inChannels to outChannels with the
// given square kernel.
func NewConvBlock(inChannels, outChannels, kernel int, rng *rand.Rand) *ConvBlock {
	return &ConvBlock{
		Conv: NewConv2D(inChannels, outChannels, kernel, false, rng),
		Norm: NewBatchNorm2D(outChannels),
	}
}

// Forward applies the block to a CHW feature map, preserving spatial
// dimensions.
func (b *ConvBlock) Forward(x *Tensor) *Tensor {
	h := b.Conv.Forward(x)
	h = b.Norm.Forward(h)
	return ReLU(h)
}
