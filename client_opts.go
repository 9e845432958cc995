package packager

import (
	"log/slog"

	"github.com/malczak/lambda-node-packager/archive"
	"github.com/malczak/lambda-node-packager/manifest"
	"github.com/malczak/lambda-node-packager/npm"
)

// Option configures a Client.
type Option func(*Client) error

// WithStore sets the object store used for cache probes, bundle
// fetches, and artifact uploads. Without one, builds run uncached and
// only local sources and targets work.
func WithStore(s ObjectStore) Option {
	return func(c *Client) error {
		c.store = s
		return nil
	}
}

// WithInstaller replaces the dependency installer. The default runs the
// npm binary in production-only mode.
func WithInstaller(i Installer) Option {
	return func(c *Client) error {
		c.installer = i
		return nil
	}
}

// WithInstallerBin keeps the default installer but points it at a
// specific binary.
func WithInstallerBin(bin string) Option {
	return func(c *Client) error {
		c.installer = &npm.Installer{Bin: bin, Logger: c.logger}
		return nil
	}
}

// WithCompressorMode selects external-tool or builtin compression for
// the default archivers.
func WithCompressorMode(mode archive.Mode) Option {
	return func(c *Client) error {
		c.mode = mode
		return nil
	}
}

// WithArchivers replaces both default archivers: tgz handles the
// dependency tarballs and bundles, zip the deployable project archive.
// A nil value keeps the corresponding default.
func WithArchivers(tgz, zip Archiver) Option {
	return func(c *Client) error {
		if tgz != nil {
			c.tgz = tgz
		}
		if zip != nil {
			c.zip = zip
		}
		return nil
	}
}

// WithExclusions sets the provider of runtime-preinstalled package
// names stripped during manifest normalization. The default is the
// fixed built-in list.
func WithExclusions(p manifest.ExclusionProvider) Option {
	return func(c *Client) error {
		c.exclusions = p
		return nil
	}
}

// WithRuntimeProbedExclusions discovers exclusions from the runtime's
// installed package directory, falling back to the fixed list.
func WithRuntimeProbedExclusions(dir string) Option {
	return func(c *Client) error {
		c.exclusions = manifest.RuntimeProbed{
			Dir:      dir,
			Fallback: manifest.Fixed(manifest.FixedExclusions),
			Logger:   c.logger,
		}
		return nil
	}
}

// WithLogger sets the logger for the client and the default
// collaborators it constructs. Apply it before options that construct
// collaborators. Nil discards all logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}
