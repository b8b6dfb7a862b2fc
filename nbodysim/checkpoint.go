package nbodysim

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Checkpoint is a resumable snapshot of a run: the number of completed
// steps and the full body set at that point.
type Checkpoint struct {
	Step   int
	Bodies []Body
}

// SaveCheckpoint writes a gob-encoded snapshot. A partially written file
// is removed rather than left behind.
func SaveCheckpoint(path string, cp Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("nbodysim: save checkpoint: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(cp); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("nbodysim: save checkpoint: %w", err)
	}
	return f.Close()
}

// LoadCheckpoint reads a snapshot written by SaveCheckpoint.
func LoadCheckpoint(path string) (Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("nbodysim: load checkpoint: %w", err)
	}
	defer f.Close()

	var cp Checkpoint
	if err := gob.NewDecoder(f).Decode(&cp); err != nil {
		return Checkpoint{}, fmt.Errorf("nbodysim: load checkpoint: %w", err)
	}
	return cp, nil
}
