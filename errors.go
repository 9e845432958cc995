package packager

import (
	"errors"

	"github.com/malczak/lambda-node-packager/archive"
	"github.com/malczak/lambda-node-packager/manifest"
	"github.com/malczak/lambda-node-packager/npm"
	"github.com/malczak/lambda-node-packager/store"
)

// Errors defined by this package.
var (
	// ErrInvalidSourceName is returned when a bundle name does not end
	// in .tgz or .tar.gz.
	ErrInvalidSourceName = errors.New("invalid source bundle name")

	// ErrNoStore is returned when an operation needs object storage
	// but the client has none configured.
	ErrNoStore = errors.New("no object store configured")
)

// Errors re-exported from manifest.
var (
	// ErrMalformedManifest is returned when a manifest cannot be read
	// or lacks required fields.
	ErrMalformedManifest = manifest.ErrMalformed
)

// Errors re-exported from npm.
var (
	// ErrInstall is returned when the installer subprocess fails.
	ErrInstall = npm.ErrInstall
)

// Errors re-exported from archive.
var (
	// ErrCompress is returned when producing an archive fails.
	ErrCompress = archive.ErrCompress

	// ErrExtract is returned when unpacking an archive fails.
	ErrExtract = archive.ErrExtract
)

// Errors re-exported from store.
var (
	// ErrTransfer is returned when moving bytes to or from a source,
	// target, or cache location fails.
	ErrTransfer = store.ErrTransfer

	// ErrNotFound is returned when an object is absent.
	ErrNotFound = store.ErrNotFound

	// ErrInvalidLocation is returned when an object location string is
	// malformed.
	ErrInvalidLocation = store.ErrInvalidLocation
)
