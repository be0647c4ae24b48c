package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ===========================================================================
// CHECKPOINTS - Saving and loading model parameters
// ===========================================================================
//
// Plain binary format:
//
//   uint32 (LE)   length of the config header
//   JSON          the Config the model was built from
//   float64...    raw little-endian dumps of every parameter tensor
//
// Tensor shapes are not stored; they are fully determined by the config
// (the schedule dry run recovers each block's input width), so loading
// rebuilds the model from the header and streams data into the freshly
// allocated tensors. The enumeration order in parameters() is the file
// layout: stem, then each reachable coordinate in (scale, step) order
// with its conv weights and batch-norm statistics, then the final
// projection.
// ===========================================================================

// maxCheckpointHeader bounds the config header of a well-formed file.
const maxCheckpointHeader = 16 << 20

type namedTensor struct {
	name string
	t    *Tensor
}

// parameters lists every parameter tensor in checkpoint order, with a
// stable name for error reporting. Both Save and LoadFocNet walk this
// list, so the order is defined in exactly one place.
func (m *FocNet) parameters() []namedTensor {
	params := []namedTensor{
		{"stem weights", m.stem.W},
		{"stem bias", m.stem.B},
	}
	for s, scaleBlocks := range m.blocks {
		for t, b := range scaleBlocks {
			if b == nil {
				// Coordinate the traversal never reaches; no parameters.
				continue
			}
			prefix := fmt.Sprintf("scale %d step %d", s, t)
			params = append(params,
				namedTensor{prefix + " conv weights", b.Conv.W},
				namedTensor{prefix + " bn gamma", b.Norm.Gamma},
				namedTensor{prefix + " bn beta", b.Norm.Beta},
				namedTensor{prefix + " bn mean", b.Norm.Mean},
				namedTensor{prefix + " bn var", b.Norm.Var},
			)
		}
	}
	return append(params,
		namedTensor{"final weights", m.final.W},
		namedTensor{"final bias", m.final.B},
	)
}

// Save writes the model to a file.
func (m *FocNet) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("checkpoint: create: %w", err)
	}
	defer f.Close()

	configJSON, err := json.Marshal(m.cfg)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal config: %w", err)
	}

	if err := binary.Write(f, binary.LittleEndian, uint32(len(configJSON))); err != nil {
		return fmt.Errorf("checkpoint: write header length: %w", err)
	}
	if _, err := f.Write(configJSON); err != nil {
		return fmt.Errorf("checkpoint: write config: %w", err)
	}

	for _, p := range m.parameters() {
		if err := binary.Write(f, binary.LittleEndian, p.t.data); err != nil {
			return fmt.Errorf("checkpoint: write %s: %w", p.name, err)
		}
	}

	return nil
}

// LoadFocNet reads a model from a file, rebuilding it from the embedded
// config and overwriting the fresh parameters with the stored ones.
func LoadFocNet(filename string) (*FocNet, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open: %w", err)
	}
	defer f.Close()

	var headerLen uint32
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("checkpoint: read header length: %w", err)
	}
	if headerLen == 0 || headerLen > maxCheckpointHeader {
		return nil, fmt.Errorf("checkpoint: implausible header length %d", headerLen)
	}

	configJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(f, configJSON); err != nil {
		return nil, fmt.Errorf("checkpoint: read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(configJSON, &cfg); err != nil {
		return nil, fmt.Errorf("checkpoint: parse config: %w", err)
	}

	// Rebuilding re-runs validation and the schedule dry run, so a
	// checkpoint with a nonsense config fails here, before any data is
	// read.
	model, err := NewFocNet(&cfg)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: config: %w", err)
	}

	for _, p := range model.parameters() {
		if err := binary.Read(f, binary.LittleEndian, p.t.data); err != nil {
			return nil, fmt.Errorf("checkpoint: read %s: %w", p.name, err)
		}
	}

	return model, nil
}
