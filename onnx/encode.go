package onnx

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// EncodeYAML serializes the model for storage. This is the format the CLI
// writes to disk.
func (m *Model) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(m)
}

// EncodeJSON serializes the model as indented canonical JSON, used by
// golden-file snapshots where byte-stable output matters.
func (m *Model) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
