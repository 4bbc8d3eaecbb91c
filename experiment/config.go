package experiment

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// LoadConfig reads an experiment definition from a TOML file, fills its
// defaults and validates it.
func LoadConfig(path string) (Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Experiment{}, fmt.Errorf("error reading experiment file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return Experiment{}, fmt.Errorf("error parsing experiment file: %w", err)
	}

	var e Experiment
	if err := tree.Unmarshal(&e); err != nil {
		return Experiment{}, fmt.Errorf("error unmarshaling experiment: %w", err)
	}

	e.Normalize()
	if err := e.Validate(); err != nil {
		return Experiment{}, err
	}

	return e, nil
}
