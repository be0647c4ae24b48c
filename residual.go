package main

// ===========================================================================
// RESIDUAL WEIGHTS - Fractional-order memory of earlier features
// ===========================================================================
//
// FocNet ("FocNet: A Fractional Optimal Control Network for Image
// Denoising", Jia et al., CVPR 2019) treats the chain of features at one
// scale as a discretized differential equation. Instead of the usual
// single skip connection, each new feature receives a weighted sum of ALL
// earlier features at that scale, with weights patterned after
// fractional-order backward-difference coefficients.
//
// The schedule is generated by a recursion, newest to oldest:
//
//   w[step-1] = beta                                  (immediate predecessor)
//   w[k-1]    = (1 - (1+beta)/(step-k+1)) * w[k]      for k = step-1 .. 1
//
// and returned in chronological order (oldest feature first). For the
// default beta = 0.2 the magnitudes fall off quickly:
//
//   step 1: [0.2]
//   step 2: [0.08, 0.2]
//   step 3: [0.048, 0.08, 0.2]
//
// For beta > 1 the leading factor goes negative and some weights flip
// sign. That is defined behavior, not an error: beta is a modeling
// parameter and is used exactly as configured.
// ===========================================================================

// residualWeights returns the weight applied to each of the step prior
// features at a scale when computing the feature at the given step, in
// chronological order (oldest first). Step 0 has no prior features and
// gets an empty schedule: the first feature at a scale is the raw block
// output with no residual term.
func residualWeights(step int, beta float64) []float64 {
	if step <= 0 {
		return nil
	}

	w := make([]float64, step)
	w[step-1] = beta
	for k := step - 1; k >= 1; k-- {
		w[k-1] = (1 - (1+beta)/float64(step-k+1)) * w[k]
	}
	return w
}
