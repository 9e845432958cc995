package packager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/malczak/lambda-node-packager/internal/fileops"
	"github.com/malczak/lambda-node-packager/manifest"
	"github.com/malczak/lambda-node-packager/store"
)

// installDirName is the isolated installation subtree inside a working
// directory.
const installDirName = ".install"

// BuildRequest describes one dependency-archive build.
type BuildRequest struct {
	// Manifest is the project manifest. Use manifest.Load to read one
	// from disk.
	Manifest manifest.Manifest

	// CacheLocation is an optional s3://bucket/prefix under which
	// dependency archives are cached. Empty disables caching.
	CacheLocation string

	// WorkDir receives all intermediate state: the installation
	// subtree and the produced archive. Created as a fresh temporary
	// root when empty; its retention is then the caller's problem, via
	// BuildResult.WorkDir.
	WorkDir string

	// Materialize extracts the installed-dependency tree into
	// MaterializeDir (or WorkDir) whether the archive came from cache
	// or a fresh install.
	Materialize bool

	// MaterializeDir overrides where the dependency tree lands. Empty
	// means WorkDir.
	MaterializeDir string
}

// BuildResult reports a completed dependency-archive build.
type BuildResult struct {
	// ArchiveName is the archive filename, "<cache key>.tgz".
	ArchiveName string

	// ArchivePath is the archive's location inside WorkDir. Empty on a
	// cache hit without materialization, where no local artifact is
	// produced.
	ArchivePath string

	// Key is the computed cache key.
	Key string

	// CacheHit reports whether the archive came from the cache.
	CacheHit bool

	// WorkDir is the working directory used, temporary or
	// caller-supplied.
	WorkDir string

	// CacheUploadErr records a failed cache publish. The build itself
	// still succeeded; the next identical build will miss and rebuild.
	CacheUploadErr error
}

// BuildModules builds or fetches the installed-dependency archive for a
// manifest.
//
// The manifest is normalized, hashed into a cache key, and, when a
// cache location is configured, probed in object storage. A hit skips
// installation entirely. A miss installs the normalized dependency set
// with the installer subprocess, compresses the resulting tree, and
// publishes it back to the cache. Cache-probe failures of any kind are
// treated as misses, never as errors.
func (c *Client) BuildModules(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	norm := c.normalizer.Normalize(req.Manifest)
	key, err := norm.Key()
	if err != nil {
		return nil, fmt.Errorf("%w: hashing dependencies: %v", ErrMalformedManifest, err)
	}
	name := key + ".tgz"

	workDir := req.WorkDir
	ownWorkDir := false
	if workDir == "" {
		workDir, err = fileops.TempRoot("packager-modules-")
		if err != nil {
			return nil, err
		}
		ownWorkDir = true
	}
	defer func() {
		if err != nil && ownWorkDir {
			fileops.RemoveBestEffort(c.log(), workDir)
		}
	}()

	materializeDir := req.MaterializeDir
	if materializeDir == "" {
		materializeDir = workDir
	}

	res := &BuildResult{ArchiveName: name, Key: key, WorkDir: workDir}
	archivePath := filepath.Join(workDir, name)

	var cacheObj store.Location
	cached := false
	if req.CacheLocation != "" {
		if c.store == nil {
			err = fmt.Errorf("%w: cache location %q", ErrNoStore, req.CacheLocation)
			return nil, err
		}
		cacheObj, err = store.ParseLocation(req.CacheLocation)
		if err != nil {
			return nil, err
		}
		cacheObj = cacheObj.Join(name)
		cached = true

		probe := c.store.Probe(ctx, cacheObj, req.Materialize)
		if probe.Hit {
			c.log().Debug("cache hit", "key", key, "location", cacheObj.String())
			res.CacheHit = true
			if req.Materialize {
				if err = os.WriteFile(archivePath, probe.Payload, 0o644); err != nil {
					err = fmt.Errorf("%w: staging cached archive: %v", ErrTransfer, err)
					return nil, err
				}
				res.ArchivePath = archivePath
				if err = c.tgz.Extract(ctx, archivePath, materializeDir); err != nil {
					return nil, err
				}
			}
			return res, nil
		}
		c.log().Debug("cache miss", "key", key, "cause", probe.Cause)
	}

	if err = c.install(ctx, norm, workDir, archivePath); err != nil {
		return nil, err
	}
	res.ArchivePath = archivePath

	if cached {
		if _, uploadErr := c.store.Put(ctx, cacheObj, archivePath); uploadErr != nil {
			c.log().Warn("cache publish failed, keeping local archive",
				"key", key, "location", cacheObj.String(), "error", uploadErr)
			res.CacheUploadErr = uploadErr
		}
	}

	if req.Materialize {
		if err = c.tgz.Extract(ctx, archivePath, materializeDir); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// install runs the installer over the normalized manifest in an
// isolated subtree of workDir and compresses the installed tree into
// archivePath. The subtree is removed afterwards so only the archive
// remains in workDir.
func (c *Client) install(ctx context.Context, norm manifest.Manifest, workDir, archivePath string) error {
	installDir := filepath.Join(workDir, installDirName)
	modulesDir := filepath.Join(installDir, "node_modules")
	if err := os.MkdirAll(modulesDir, 0o755); err != nil {
		return fmt.Errorf("create install dir: %w", err)
	}
	defer fileops.RemoveBestEffort(c.log(), installDir)

	data, err := norm.Encode()
	if err != nil {
		return fmt.Errorf("%w: encoding manifest: %v", ErrMalformedManifest, err)
	}
	if err := os.WriteFile(filepath.Join(installDir, "package.json"), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	c.log().Info("installing dependencies", "count", len(norm.Dependencies))
	if err := c.installer.Install(ctx, installDir); err != nil {
		return err
	}
	return c.tgz.Compress(ctx, modulesDir, archivePath)
}
