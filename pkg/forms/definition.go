package forms

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadDefinition reads a form definition in YAML or JSON. Unknown keys are
// rejected so typos in field attributes do not pass silently.
func LoadDefinition(r io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Definition
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("form definition is empty")
		}
		return nil, fmt.Errorf("parse form definition: %w", err)
	}
	return &d, nil
}

// LoadValues reads submitted values in YAML or JSON.
func LoadValues(r io.Reader) (map[string]any, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse form values: %w", err)
	}
	return values, nil
}
