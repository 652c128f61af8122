package knowledge

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/bankbot.yaml
var defaultDataset []byte

// Default returns the dataset shipped with the binary.
func Default() (Dataset, error) {
	return ParseYAML(defaultDataset)
}

// ParseYAML decodes a dataset document.
func ParseYAML(b []byte) (Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(b, &d); err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	return d, nil
}

// LoadFile reads a dataset from a YAML file.
func LoadFile(path string) (Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	return ParseYAML(b)
}
