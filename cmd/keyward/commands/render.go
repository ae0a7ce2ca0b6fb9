package commands

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// render writes v as indented JSON when asJSON is set, else as YAML.
func render(w io.Writer, v any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
