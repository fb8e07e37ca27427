// Package plugindef loads and validates the .fz plugin definition files
// (model and calculator JSON) and inspects Serpent input decks for the
// variable markers the fz framework substitutes before a run.
package plugindef

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const ModelID = "Serpent"

// Model mirrors .fz/models/Serpent.json. Output maps a result series name to
// the harvest expression the framework evaluates after a successful run; the
// invoker never evaluates these itself.
type Model struct {
	ID            string            `json:"id"`
	VarPrefix     string            `json:"varprefix"`
	FormulaPrefix string            `json:"formulaprefix"`
	Delim         string            `json:"delim"`
	CommentLine   string            `json:"commentline"`
	Output        map[string]string `json:"output"`
}

// Default returns the canonical Serpent model: ${var} substitution markers,
// @{formula} expressions, % comment lines, and the keff series read from the
// <basename>_res.m file.
func Default() Model {
	output := map[string]string{}
	for _, series := range []string{"absKeff", "anaKeff", "colKeff", "impKeff"} {
		output[series] = fmt.Sprintf("read(prefix+'_res.m').resdata['%s'][0]", series)
		output[series+"_err"] = fmt.Sprintf("read(prefix+'_res.m').resdata['%s'][1]", series)
	}
	output["burnup"] = "read(prefix+'_res.m').resdata.get('burnup', [])"
	output["burnDays"] = "read(prefix+'_res.m').resdata.get('burnDays', [])"

	return Model{
		ID:            ModelID,
		VarPrefix:     "$",
		FormulaPrefix: "@",
		Delim:         "{}",
		CommentLine:   "%",
		Output:        output,
	}
}

func LoadModel(path string) (Model, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Model{}, err
	}

	var model Model
	if err := json.Unmarshal(content, &model); err != nil {
		return Model{}, fmt.Errorf("parse model %s: %w", path, err)
	}

	if err := model.Validate(); err != nil {
		return Model{}, fmt.Errorf("%s: %w", path, err)
	}

	return model, nil
}

func (m Model) Validate() error {
	if m.ID != ModelID {
		return fmt.Errorf("model id must be %q, got %q", ModelID, m.ID)
	}
	if m.VarPrefix == "" {
		return fmt.Errorf("varprefix required")
	}
	if len(m.Delim) != 2 {
		return fmt.Errorf("delim must be an open/close character pair, got %q", m.Delim)
	}
	// Serpent input decks use % for comments.
	if m.CommentLine != "%" {
		return fmt.Errorf("commentline must be %q, got %q", "%", m.CommentLine)
	}
	if len(m.Output) == 0 {
		return fmt.Errorf("at least one output series required")
	}
	return nil
}

// ModelFiles lists the model definition files under a plugin root
// (conventionally ".fz").
func ModelFiles(root string) ([]string, error) {
	return filepath.Glob(filepath.Join(root, "models", "*.json"))
}
