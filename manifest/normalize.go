package manifest

import (
	"log/slog"
	"os"
)

// DefaultRuntimeModulesDir is where the managed Node runtime keeps its
// preinstalled packages.
const DefaultRuntimeModulesDir = "/var/runtime/node_modules"

// FixedExclusions lists packages the target runtime always provides.
var FixedExclusions = []string{"aws-sdk"}

// ExclusionProvider reports the dependency names that must be stripped
// from a manifest before installing or hashing.
type ExclusionProvider interface {
	Exclusions() []string
}

// Fixed is an ExclusionProvider backed by a static list.
type Fixed []string

// Exclusions returns the list as-is.
func (f Fixed) Exclusions() []string { return f }

// RuntimeProbed discovers exclusions by listing the runtime's installed
// package directory. When the probe fails or finds nothing, it falls
// back to Fallback so normalization still strips the known set outside
// the runtime.
type RuntimeProbed struct {
	// Dir is the runtime package directory. Empty means
	// DefaultRuntimeModulesDir.
	Dir string

	// Fallback supplies exclusions when the probe yields nothing.
	Fallback ExclusionProvider

	// Logger records probe failures. Nil discards.
	Logger *slog.Logger
}

// Exclusions lists the entries of Dir, one exclusion per subdirectory.
func (r RuntimeProbed) Exclusions() []string {
	dir := r.Dir
	if dir == "" {
		dir = DefaultRuntimeModulesDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		if err != nil {
			r.log().Debug("runtime probe failed, using fallback", "dir", dir, "error", err)
		}
		if r.Fallback != nil {
			return r.Fallback.Exclusions()
		}
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 && r.Fallback != nil {
		return r.Fallback.Exclusions()
	}
	return names
}

func (r RuntimeProbed) log() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Normalizer strips runtime-provided dependencies from manifests.
type Normalizer struct {
	provider ExclusionProvider
}

// NewNormalizer creates a Normalizer. A nil provider means the fixed
// built-in exclusion list.
func NewNormalizer(provider ExclusionProvider) *Normalizer {
	if provider == nil {
		provider = Fixed(FixedExclusions)
	}
	return &Normalizer{provider: provider}
}

// Normalize returns a copy of m with every excluded dependency removed.
// The input is never mutated, and normalizing an already-normalized
// manifest is a no-op.
func (n *Normalizer) Normalize(m Manifest) Manifest {
	out := m.Clone()
	for _, name := range n.provider.Exclusions() {
		delete(out.Dependencies, name)
	}
	return out
}
