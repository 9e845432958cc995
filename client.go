package packager

import (
	"context"
	"log/slog"

	"github.com/malczak/lambda-node-packager/archive"
	"github.com/malczak/lambda-node-packager/manifest"
	"github.com/malczak/lambda-node-packager/npm"
	"github.com/malczak/lambda-node-packager/store"
)

// ObjectStore moves artifact bytes between the pipelines and object
// storage. *store.Client implements it; tests substitute fakes.
type ObjectStore interface {
	// Probe checks for an object, fetching the payload when fetch is
	// true. Failures of any kind surface as a non-hit result.
	Probe(ctx context.Context, loc store.Location, fetch bool) store.ProbeResult

	// Fetch downloads an object to a local file.
	Fetch(ctx context.Context, loc store.Location, dest string) error

	// Put uploads a local file and returns the resulting location.
	Put(ctx context.Context, loc store.Location, src string) (string, error)
}

// Installer installs production dependencies into a directory holding a
// manifest file.
type Installer interface {
	Install(ctx context.Context, dir string) error
}

// Archiver compresses a path into an archive file and extracts one back
// into a directory.
type Archiver interface {
	Compress(ctx context.Context, src, dst string) error
	Extract(ctx context.Context, src, dst string) error
}

// Client runs the dependency-archive and project-archive pipelines.
//
// A zero-option client works without object storage: builds always
// miss, and sources and targets must be local paths.
type Client struct {
	store      ObjectStore
	installer  Installer
	tgz        Archiver
	zip        Archiver
	normalizer *manifest.Normalizer
	exclusions manifest.ExclusionProvider
	mode       archive.Mode
	logger     *slog.Logger
}

// NewClient creates a packager client with the given options.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{mode: archive.ModeExternal}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.installer == nil {
		c.installer = &npm.Installer{Logger: c.logger}
	}
	if c.tgz == nil {
		c.tgz = &archive.TarGz{Mode: c.mode, Logger: c.logger}
	}
	if c.zip == nil {
		c.zip = &archive.Zip{Mode: c.mode, Logger: c.logger}
	}
	c.normalizer = manifest.NewNormalizer(c.exclusions)
	return c, nil
}

// log returns the client logger, falling back to a discard logger.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
