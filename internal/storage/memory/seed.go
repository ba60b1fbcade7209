package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReadSeed parses a master data file. Unknown keys are rejected so a typo in
// the file does not silently leave a list empty.
func ReadSeed(path string) (Seed, error) {
	const op = "storage.memory.ReadSeed"

	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	var seed Seed
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("%s: %w", op, err)
	}
	return seed, nil
}
