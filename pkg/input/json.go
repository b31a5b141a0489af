// Package input provides the three ways election data enters the tool:
// JSON snapshot files, live chain state over RPC, and synthetic electorates
// built programmatically.
package input

import (
	"encoding/json"
	"os"

	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
)

// JSONLoader reads and writes election data snapshots on disk.
type JSONLoader struct{}

// NewJSONLoader creates a JSON loader.
func NewJSONLoader() *JSONLoader {
	return &JSONLoader{}
}

// LoadFromFile reads a snapshot, validates it and stamps the file source.
func (l *JSONLoader) LoadFromFile(path string) (*election.ElectionData, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.FileError{Message: "Failed to read file", Path: path, Err: err}
	}

	var data election.ElectionData
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, &core.FileError{Message: "Failed to parse JSON: " + err.Error(), Path: path, Err: err}
	}

	if err := data.Validate(); err != nil {
		return nil, err
	}

	if data.Metadata == nil {
		data.Metadata = &election.ElectionMetadata{}
	}
	if data.Metadata.Source == "" {
		data.Metadata.Source = core.SourceFile
	}
	return &data, nil
}

// SaveToFile writes a snapshot as indented JSON.
func (l *JSONLoader) SaveToFile(data *election.ElectionData, path string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return &core.InvalidDataError{Message: "Failed to serialize election data: " + err.Error()}
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0644); err != nil {
		return &core.FileError{Message: "Failed to write file", Path: path, Err: err}
	}
	return nil
}
