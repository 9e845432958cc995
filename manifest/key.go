package manifest

import (
	"crypto/md5" //nolint:gosec // cache key format, not a security boundary
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// Slug collapses every whitespace run in name into a single hyphen,
// yielding a token safe for object keys and filenames.
func Slug(name string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(name), "-")
}

// ComputeKey derives the cache key for a normalized dependency map:
//
//	modules-<slug(name)>-<hex(md5(json(deps)))>
//
// encoding/json marshals map keys in sorted order, so the hash input is
// canonical: equal dependency sets hash identically no matter how the
// source map was populated.
func ComputeKey(name string, deps map[string]string) (string, error) {
	if deps == nil {
		deps = map[string]string{}
	}
	data, err := json.Marshal(deps)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data) //nolint:gosec // see above
	return "modules-" + Slug(name) + "-" + hex.EncodeToString(sum[:]), nil
}

// Key computes the cache key for the manifest's own name and
// dependencies. The manifest should already be normalized.
func (m Manifest) Key() (string, error) {
	return ComputeKey(m.Name, m.Dependencies)
}
