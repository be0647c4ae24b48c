package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ===========================================================================
// DENOISE CLI - Restore images with a trained model
// ===========================================================================
//
// This is the inference entry point: load a checkpoint, read noisy PNGs,
// run each through the network, write the restored versions. Images are
// independent, so the batch fans out over a worker pool; the model itself
// is shared read-only between workers.
//
// The network has no fixed input size, but every spatial dimension must
// be divisible by 2^(n_scales-1) so the coarsest scale still has whole
// pixels. Inputs that do not divide are rejected rather than silently
// cropped or padded.
// ===========================================================================

// RunDenoiseCommand implements the restoration CLI.
func RunDenoiseCommand(args []string) error {
	fs := flag.NewFlagSet("denoise", flag.ExitOnError)

	modelPath := fs.String("model", "focnet.bin", "Model checkpoint to restore with")
	outDir := fs.String("out", "restored", "Directory for restored images")
	workers := fs.Int("workers", 0, "Worker goroutines (0 = one per CPU)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return fmt.Errorf("no input images: pass PNG paths after the flags")
	}

	// Step 1: Load the model
	fmt.Printf("Step 1: Loading model from %s\n", *modelPath)
	model, err := LoadFocNet(*modelPath)
	if err != nil {
		return err
	}
	cfg := model.Config()
	fmt.Printf("  %d scales, %d filters, %d conv blocks on the schedule\n",
		cfg.NScales, cfg.NFilters, model.Plan().Computes())
	fmt.Println()

	// Step 2: Load the inputs
	fmt.Printf("Step 2: Loading %d image(s)\n", len(paths))
	divisor := 1 << (cfg.NScales - 1)
	images := make([]*Tensor, len(paths))
	for i, path := range paths {
		img, err := LoadImage(path)
		if err != nil {
			return err
		}
		shape := img.Shape()
		if shape[1]%divisor != 0 || shape[2]%divisor != 0 {
			return fmt.Errorf("%s is %dx%d; with %d scales both sides must be divisible by %d",
				path, shape[2], shape[1], cfg.NScales, divisor)
		}
		fmt.Printf("  %s (%dx%d)\n", path, shape[2], shape[1])
		images[i] = img
	}
	fmt.Println()

	// Step 3: Restore
	fmt.Println("Step 3: Restoring")
	start := time.Now()
	restored, err := RestoreBatch(model, images, *workers)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	fmt.Printf("  %d image(s) in %s\n", len(restored), elapsed.Round(time.Millisecond))
	fmt.Println()

	// Step 4: Write the results
	fmt.Printf("Step 4: Writing restored images to %s\n", *outDir)
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}
	for i, out := range restored {
		dst := filepath.Join(*outDir, filepath.Base(paths[i]))
		if err := SaveImage(dst, out); err != nil {
			return err
		}
		fmt.Printf("  %s\n", dst)
	}

	return nil
}
