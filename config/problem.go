package config

import (
	gojson "encoding/json"
	"fmt"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/groupmix/groupmix/core/model"
)

// LoadProblem reads a problem definition from a yaml or json document.
func LoadProblem(path string) (model.Problem, error) {
	var p model.Problem
	if err := loadDocument(path, &p); err != nil {
		return model.Problem{}, fmt.Errorf("load problem %s: %w", path, err)
	}
	return p, nil
}

// LoadSolution reads a candidate schedule from a yaml or json document.
// Final solutions and intermediate snapshots share the same shape.
func LoadSolution(path string) (model.Solution, error) {
	var s model.Solution
	if err := loadDocument(path, &s); err != nil {
		return model.Solution{}, fmt.Errorf("load solution %s: %w", path, err)
	}
	return s, nil
}

// loadDocument parses the file with koanf and re-encodes the raw tree as
// JSON so the model's tagged-union decoding applies to yaml input too.
func loadDocument(path string, out any) error {
	k := koanf.New(".")
	parser, err := parserFor(path)
	if err != nil {
		return err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return err
	}
	raw, err := gojson.Marshal(k.Raw())
	if err != nil {
		return err
	}
	return gojson.Unmarshal(raw, out)
}
