package main

import (
	"flag"
	"fmt"
	"os"
)

// ===========================================================================
// INIT CLI - Scaffold an architecture file and a fresh model
// ===========================================================================
//
// Writes the annotated default architecture file so there is something
// concrete to edit, and optionally a freshly initialized checkpoint built
// from it. The checkpoint is untrained (He-initialized convolutions,
// identity batch norms); it exists so the denoise pipeline can be
// exercised end to end before real weights are available.
// ===========================================================================

// RunInitCommand implements the scaffolding CLI.
func RunInitCommand(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)

	configPath := fs.String("config", "focnet.yaml", "Architecture file to write")
	modelPath := fs.String("model", "", "Also write a fresh checkpoint here (empty = skip)")
	force := fs.Bool("force", false, "Overwrite existing files")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := WriteDefaultArchitecture(*configPath, *force); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", *configPath)

	if *modelPath == "" {
		return nil
	}
	if !*force {
		if _, err := os.Stat(*modelPath); err == nil {
			return fmt.Errorf("%s already exists (use -force to overwrite)", *modelPath)
		}
	}

	cfg, err := LoadArchitecture(*configPath)
	if err != nil {
		return err
	}
	model, err := NewFocNet(&cfg)
	if err != nil {
		return err
	}
	if err := model.Save(*modelPath); err != nil {
		return err
	}

	info, err := os.Stat(*modelPath)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d parameters, %.1f MB, untrained)\n",
		*modelPath, parameterCount(&cfg, model.Plan()), float64(info.Size())/(1<<20))
	return nil
}
