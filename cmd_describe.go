package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ===========================================================================
// DESCRIBE CLI - Inspect an architecture without building it
// ===========================================================================
//
// The traversal order is the least obvious part of this network: it is
// fully determined by the config, but only by replaying the scheduler.
// This command builds the dependency graph and the schedule plan (no
// weight tensors, so it is instant even for large filter counts) and
// prints what a forward pass will do, down to the per-iteration trace
// with -trace.
// ===========================================================================

var (
	describeTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	describeHeadStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	describeWarnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	describeDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)

// RunDescribeCommand implements the architecture inspection CLI.
func RunDescribeCommand(args []string) error {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)

	configPath := fs.String("config", "", "Architecture file (empty = built-in defaults)")
	trace := fs.Bool("trace", false, "Print the full iteration-by-iteration trace")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := DefaultConfig()
	source := "built-in defaults"
	if *configPath != "" {
		loaded, err := LoadArchitecture(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		source = *configPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	graph, err := buildDependencyGraph(cfg.Communications, cfg.NConvsPerScale)
	if err != nil {
		return err
	}
	plan, err := buildSchedulePlan(&cfg, graph)
	if err != nil {
		return err
	}

	fmt.Println(describeTitleStyle.Render("FOCNET ARCHITECTURE") + describeDimStyle.Render("  ("+source+")"))
	fmt.Println()

	fmt.Println(describeHeadStyle.Render("Network"))
	fmt.Printf("  scales:     %d\n", cfg.NScales)
	fmt.Printf("  filters:    %d\n", cfg.NFilters)
	fmt.Printf("  kernel:     %dx%d\n", cfg.KernelSize, cfg.KernelSize)
	fmt.Printf("  beta:       %g\n", cfg.Beta)
	fmt.Printf("  channels:   %d in, 1 out\n", cfg.Channels)
	fmt.Printf("  blocks:     %v per scale (%d reachable)\n", cfg.NConvsPerScale, plan.Computes())
	fmt.Printf("  parameters: %d\n", parameterCount(&cfg, plan))
	fmt.Printf("  input:      H and W divisible by %d\n", 1<<(cfg.NScales-1))
	fmt.Println()

	fmt.Println(describeHeadStyle.Render("Cross-scale dependencies"))
	for s := 0; s < cfg.NScales; s++ {
		for t := 0; t < cfg.NConvsPerScale[s]; t++ {
			at := Coordinate{Scale: s, Step: t}
			src, ok := graph.DependencyOf(at)
			if !ok {
				continue
			}
			dir := "downsample"
			if src.Scale > s {
				dir = "upsample"
			}
			unreachable := ""
			if !plan.Covered(at) {
				unreachable = "  " + describeWarnStyle.Render("(never reached)")
			}
			fmt.Printf("  scale %d step %-2d  <-  scale %d slot %-2d  %s%s\n",
				s, t, src.Scale, src.Step, describeDimStyle.Render(dir), unreachable)
		}
	}
	fmt.Println()

	fmt.Println(describeHeadStyle.Render("Traversal schedule"))
	fmt.Printf("  %d iterations: %d computes, %d jumps\n", plan.Iterations, plan.Computes(), plan.Jumps)
	fmt.Printf("  %d pops, %d seeds, %d concats\n", plan.Pops, plan.Seeds, plan.Concats)
	fmt.Printf("  %d downsamples, %d upsamples\n", plan.Pools, plan.Unpools)
	fmt.Println()

	fmt.Println(describeHeadStyle.Render("Compute order") + describeDimStyle.Render("  (scale, step)"))
	var line strings.Builder
	for i, c := range plan.Order {
		fmt.Fprintf(&line, " (%d,%-2d)", c.Scale, c.Step)
		if (i+1)%8 == 0 || i == len(plan.Order)-1 {
			fmt.Println(" " + line.String())
			line.Reset()
		}
	}
	fmt.Println()

	if *trace {
		fmt.Println(describeHeadStyle.Render("Trace"))
		for i, ev := range plan.Events {
			fmt.Printf("  %3d  %s\n", i, formatTraceEvent(ev))
		}
		fmt.Println()
	}

	return nil
}

func formatTraceEvent(ev TraceEvent) string {
	switch ev.Action {
	case TraceJump:
		return fmt.Sprintf("jump     %v blocked on scale %d slot %d, resume at %v",
			ev.At, ev.Source.Scale, ev.Source.Step, ev.Target)
	case TracePop:
		return fmt.Sprintf("pop      back to %v", ev.At)
	default:
		var notes []string
		if ev.HasSource {
			dir := "downsampled"
			if ev.Upsampled {
				dir = "upsampled"
			}
			notes = append(notes, fmt.Sprintf("%s from scale %d slot %d", dir, ev.Source.Scale, ev.Source.Step))
		}
		if ev.Seeded {
			notes = append(notes, "seed")
		}
		if ev.Concat {
			notes = append(notes, "concat")
		}
		suffix := ""
		if len(notes) > 0 {
			suffix = "  (" + strings.Join(notes, ", ") + ")"
		}
		return fmt.Sprintf("compute  %v in=%d%s", ev.At, ev.InChannels, suffix)
	}
}

// parameterCount totals the learnable parameters the plan will allocate:
// the stem, one conv + batch norm per reachable coordinate, and the
// final projection.
func parameterCount(cfg *Config, plan *SchedulePlan) int {
	k2 := cfg.KernelSize * cfg.KernelSize
	total := cfg.Channels*cfg.NFilters*k2 + cfg.NFilters // stem
	for _, in := range plan.InputChannels {
		total += in*cfg.NFilters*k2 + 4*cfg.NFilters // conv (no bias) + batch norm
	}
	total += cfg.NFilters + 1 // final 1x1 projection
	return total
}
