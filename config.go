package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ===========================================================================
// CONFIGURATION
// ===========================================================================
//
// Two layers of configuration:
//
//   Config                the in-memory hyperparameters the model is
//                         built from; also serialized into checkpoint
//                         headers as JSON
//   architecture files    YAML documents for the CLI, merged over the
//                         defaults so a file only needs the fields it
//                         changes
//
// Structural validation lives here (lengths, positivity, kernel parity).
// The deeper semantic validation, that the communication tables describe
// a terminating traversal, happens in the dependency graph construction
// and the schedule dry run; NewFocNet runs all three.
// ===========================================================================

// CommPair declares one feature exchange between a pair of adjacent
// scales: a position at the upper (finer) scale and one at the lower
// (coarser) scale. Which side waits on which is decided by the pair's
// position in its table: entries alternate, starting with the lower side
// waiting on the upper.
type CommPair struct {
	Upper int `json:"upper"`
	Lower int `json:"lower"`
}

// Config holds the hyperparameters the network is constructed from.
type Config struct {
	NScales        int          `json:"n_scales"`        // resolution levels
	NFilters       int          `json:"n_filters"`       // channel width of internal blocks
	KernelSize     int          `json:"kernel_size"`     // square conv kernel, odd
	Channels       int          `json:"channels"`        // input image channels
	Beta           float64      `json:"beta"`            // residual decay parameter
	Seed           int64        `json:"seed"`            // weight init seed for fresh models
	NConvsPerScale []int        `json:"n_convs_per_scale"`
	Communications [][]CommPair `json:"communications_between_scales"`
}

// DefaultConfig returns the reference FocNet architecture: four scales,
// 128 filters, and the hand-designed communication tables.
func DefaultConfig() Config {
	return Config{
		NScales:        4,
		NFilters:       128,
		KernelSize:     3,
		Channels:       1,
		Beta:           0.2,
		Seed:           1,
		NConvsPerScale: []int{5, 11, 11, 7},
		Communications: DefaultCommunications(),
	}
}

// DefaultCommunications returns the reference communication tables, one
// per adjacent scale pair.
func DefaultCommunications() [][]CommPair {
	return [][]CommPair{
		{ // scales 0-1
			{1, 0}, {1, 2}, {2, 3}, {2, 5}, {3, 6}, {3, 8}, {4, 9}, {4, 11},
		},
		{ // scales 1-2
			{1, 0}, {1, 2}, {4, 3}, {4, 5}, {7, 6}, {7, 8}, {10, 9}, {10, 11},
		},
		{ // scales 2-3
			{1, 0}, {1, 1}, {4, 2}, {4, 3}, {7, 4}, {7, 5}, {10, 6}, {10, 7},
		},
	}
}

// Validate checks the structural constraints of the configuration.
// Traversal-level problems (cycles, unreachable reads) are reported by
// NewFocNet via the schedule dry run.
func (c *Config) Validate() error {
	if c.NScales < 1 {
		return fmt.Errorf("config: n_scales must be at least 1, got %d", c.NScales)
	}
	if c.NScales > 30 {
		// Each scale halves resolution; 2^(n_scales-1) must stay a sane
		// spatial divisor.
		return fmt.Errorf("config: n_scales %d is not supported (max 30)", c.NScales)
	}
	if c.NFilters < 1 {
		return fmt.Errorf("config: n_filters must be at least 1, got %d", c.NFilters)
	}
	if c.KernelSize < 1 || c.KernelSize%2 == 0 {
		return fmt.Errorf("config: kernel_size must be a positive odd number, got %d", c.KernelSize)
	}
	if c.Channels < 1 {
		return fmt.Errorf("config: channels must be at least 1, got %d", c.Channels)
	}
	if len(c.NConvsPerScale) != c.NScales {
		return fmt.Errorf("config: n_convs_per_scale has %d entries, want one per scale (%d)",
			len(c.NConvsPerScale), c.NScales)
	}
	for i, n := range c.NConvsPerScale {
		if n < 1 {
			return fmt.Errorf("config: n_convs_per_scale[%d] must be at least 1, got %d", i, n)
		}
	}
	if len(c.Communications) != c.NScales-1 {
		return fmt.Errorf("config: communications_between_scales has %d tables, want one per adjacent scale pair (%d)",
			len(c.Communications), c.NScales-1)
	}
	return nil
}

// clone deep-copies the configuration so a constructed model cannot be
// mutated through slices the caller still holds.
func (c *Config) clone() Config {
	out := *c
	out.NConvsPerScale = append([]int(nil), c.NConvsPerScale...)
	out.Communications = make([][]CommPair, len(c.Communications))
	for i, pairs := range c.Communications {
		out.Communications[i] = append([]CommPair(nil), pairs...)
	}
	return out
}

// ===========================================================================
// ARCHITECTURE FILES
// ===========================================================================

// defaultArchitectureYAML is the documented template written by the init
// command. Loading it back yields exactly DefaultConfig().
const defaultArchitectureYAML = `# FocNet architecture description.
#
# Scale 0 is full resolution; every further scale halves both spatial
# dimensions. Input spatial dimensions must be divisible by
# 2^(n_scales-1).

n_scales: 4
n_filters: 128
kernel_size: 3

# Channels in the input image (grayscale = 1).
channels: 1

# Decay parameter for the fractional-order residual weighting. Values
# outside (0,1) are accepted and change the weight magnitudes; they are
# used exactly as written.
beta: 0.2

# Seed for weight initialization of fresh (untrained) models.
seed: 1

# Convolution steps per scale, finest scale first.
n_convs_per_scale: [5, 11, 11, 7]

# Cross-scale communication tables, one per adjacent scale pair
# (0-1, 1-2, 2-3). Each entry is [upper step, lower step]. Entries in a
# table alternate direction, starting with the lower scale waiting on the
# upper; the receiving side names a step, the source side a feature slot
# (0 = the scale's seed, k+1 = the output of step k).
communications_between_scales:
  - [[1, 0], [1, 2], [2, 3], [2, 5], [3, 6], [3, 8], [4, 9], [4, 11]]
  - [[1, 0], [1, 2], [4, 3], [4, 5], [7, 6], [7, 8], [10, 9], [10, 11]]
  - [[1, 0], [1, 1], [4, 2], [4, 3], [7, 4], [7, 5], [10, 6], [10, 7]]
`

// architectureFile is the wire form of an architecture YAML document.
// Scalar fields are pointers so "absent" and "zero" stay distinguishable;
// absent fields keep their defaults.
type architectureFile struct {
	NScales        *int      `yaml:"n_scales"`
	NFilters       *int      `yaml:"n_filters"`
	KernelSize     *int      `yaml:"kernel_size"`
	Channels       *int      `yaml:"channels"`
	Beta           *float64  `yaml:"beta"`
	Seed           *int64    `yaml:"seed"`
	NConvsPerScale []int     `yaml:"n_convs_per_scale"`
	Communications [][][]int `yaml:"communications_between_scales"`
}

// LoadArchitecture reads a YAML architecture file, merges it over the
// default configuration, and validates the result.
func LoadArchitecture(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading architecture file: %w", err)
	}
	return parseArchitecture(raw)
}

func parseArchitecture(raw []byte) (Config, error) {
	var f architectureFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Config{}, fmt.Errorf("config: parsing architecture file: %w", err)
	}

	cfg := DefaultConfig()
	if f.NScales != nil {
		cfg.NScales = *f.NScales
	}
	if f.NFilters != nil {
		cfg.NFilters = *f.NFilters
	}
	if f.KernelSize != nil {
		cfg.KernelSize = *f.KernelSize
	}
	if f.Channels != nil {
		cfg.Channels = *f.Channels
	}
	if f.Beta != nil {
		cfg.Beta = *f.Beta
	}
	if f.Seed != nil {
		cfg.Seed = *f.Seed
	}
	if f.NConvsPerScale != nil {
		cfg.NConvsPerScale = append([]int(nil), f.NConvsPerScale...)
	}
	if f.Communications != nil {
		comms, err := convertCommunications(f.Communications)
		if err != nil {
			return Config{}, err
		}
		cfg.Communications = comms
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// convertCommunications turns the YAML [upper, lower] pair lists into
// typed communication tables.
func convertCommunications(raw [][][]int) ([][]CommPair, error) {
	comms := make([][]CommPair, len(raw))
	for i, pairs := range raw {
		comms[i] = make([]CommPair, len(pairs))
		for j, p := range pairs {
			if len(p) != 2 {
				return nil, fmt.Errorf("config: communications_between_scales[%d][%d] has %d values, want [upper, lower]",
					i, j, len(p))
			}
			comms[i][j] = CommPair{Upper: p[0], Lower: p[1]}
		}
	}
	return comms, nil
}

// WriteDefaultArchitecture writes the documented default architecture
// file. An existing file is left alone unless force is set.
func WriteDefaultArchitecture(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config: %s already exists (use -force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, []byte(defaultArchitectureYAML), 0o644); err != nil {
		return fmt.Errorf("config: writing architecture file: %w", err)
	}
	return nil
}
