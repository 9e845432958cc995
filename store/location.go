package store

import (
	"fmt"
	"path"
	"strings"
)

// Scheme is the location scheme this store serves.
const Scheme = "s3"

// Location addresses one object as a bucket plus key.
type Location struct {
	Bucket string
	Key    string
}

// ParseLocation parses an s3://bucket/key string. The key part may be
// empty, addressing the bucket root as a prefix.
func ParseLocation(s string) (Location, error) {
	rest, ok := strings.CutPrefix(s, Scheme+"://")
	if !ok {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("%w: %q has no bucket", ErrInvalidLocation, s)
	}
	return Location{Bucket: bucket, Key: strings.Trim(key, "/")}, nil
}

// IsLocation reports whether s looks like an object-store location
// rather than a filesystem path.
func IsLocation(s string) bool {
	return strings.HasPrefix(s, Scheme+"://")
}

// Join appends path elements to the location's key.
func (l Location) Join(elem ...string) Location {
	parts := append([]string{l.Key}, elem...)
	return Location{Bucket: l.Bucket, Key: strings.Trim(path.Join(parts...), "/")}
}

// Base returns the final element of the key.
func (l Location) Base() string { return path.Base(l.Key) }

// String renders the location back to scheme://bucket/key form.
func (l Location) String() string {
	if l.Key == "" {
		return Scheme + "://" + l.Bucket
	}
	return Scheme + "://" + l.Bucket + "/" + l.Key
}
