package plugindef

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Calculator mirrors .fz/calculators/*.json: where a calculator runs (uri)
// and, per model id, the command the framework launches for it.
type Calculator struct {
	URI    string            `json:"uri"`
	Models map[string]string `json:"models"`
}

func LoadCalculator(path string) (Calculator, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Calculator{}, err
	}

	var calc Calculator
	if err := json.Unmarshal(content, &calc); err != nil {
		return Calculator{}, fmt.Errorf("parse calculator %s: %w", path, err)
	}

	if err := calc.Validate(); err != nil {
		return Calculator{}, fmt.Errorf("%s: %w", path, err)
	}

	return calc, nil
}

func (c Calculator) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("uri required")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model required")
	}
	return nil
}

func (c Calculator) HasModel(id string) bool {
	_, ok := c.Models[id]
	return ok
}

func CalculatorFiles(root string) ([]string, error) {
	return filepath.Glob(filepath.Join(root, "calculators", "*.json"))
}
