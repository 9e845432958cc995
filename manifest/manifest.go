// Package manifest models the dependency manifest of a packaged Node
// application and derives deterministic cache keys from it.
//
// A manifest is the subset of package.json the packager cares about: the
// project name and the dependency name→version map. Normalization strips
// dependencies the target runtime already provides, so the same logical
// dependency set always installs and hashes identically.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest is a project name plus its dependency map.
type Manifest struct {
	Name         string            `json:"name"`
	Dependencies map[string]string `json:"dependencies"`
}

// Parse decodes a manifest from JSON bytes.
//
// Returns [ErrMalformed] when the payload is not valid JSON or is missing
// the name or the dependencies mapping.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("%w: missing name", ErrMalformed)
	}
	if m.Dependencies == nil {
		return Manifest{}, fmt.Errorf("%w: missing dependencies", ErrMalformed)
	}
	return m, nil
}

// Load reads and parses a manifest file, conventionally package.json.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: read %s: %v", ErrMalformed, path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Clone returns a deep copy of the manifest.
func (m Manifest) Clone() Manifest {
	deps := make(map[string]string, len(m.Dependencies))
	for k, v := range m.Dependencies {
		deps[k] = v
	}
	return Manifest{Name: m.Name, Dependencies: deps}
}

// Encode renders the manifest as JSON suitable for writing back to disk
// as the installer's input file.
func (m Manifest) Encode() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
