package packager

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/malczak/lambda-node-packager/internal/fileops"
	"github.com/malczak/lambda-node-packager/manifest"
	"github.com/malczak/lambda-node-packager/store"
)

// bundlePattern matches a project bundle filename and captures its stem.
var bundlePattern = regexp.MustCompile(`^(.+?)\.(?:tar\.gz|tgz)$`)

// ProjectRequest describes one project packaging run.
type ProjectRequest struct {
	// Source locates the project bundle, an s3://bucket/key object or
	// a local file. Its name must end in .tgz or .tar.gz.
	Source string

	// Target receives the deployable zip: an object location or a
	// local path. When it does not already end in .zip it is treated
	// as a directory and the output name is derived from the source.
	Target string

	// CacheLocation optionally enables the dependency cache, as in
	// BuildRequest.
	CacheLocation string

	// Keep retains the working root after the run, for debugging.
	Keep bool
}

// PackageProject fetches a project bundle, builds its dependency layer,
// repackages source plus dependencies into one zip, and delivers it to
// the target. It returns the resolved target location.
//
// The working root is deleted on success and on failure alike, unless
// Keep is set; a cleanup problem is logged and never displaces the
// error that caused it.
func (c *Client) PackageProject(ctx context.Context, req ProjectRequest) (resolved string, err error) {
	srcBase := sourceBase(req.Source)
	m := bundlePattern.FindStringSubmatch(srcBase)
	if m == nil {
		return "", fmt.Errorf("%w: %q must end in .tgz or .tar.gz", ErrInvalidSourceName, srcBase)
	}
	outName := m[1] + ".zip"

	resolved, targetLoc, localTarget, err := c.resolveTarget(req.Target, outName)
	if err != nil {
		return "", err
	}
	if store.IsLocation(req.Source) && c.store == nil {
		return "", fmt.Errorf("%w: source %q", ErrNoStore, req.Source)
	}

	workRoot, err := fileops.TempRoot("packager-project-")
	if err != nil {
		return "", err
	}
	defer func() {
		if req.Keep {
			c.log().Info("keeping working root", "path", workRoot)
			return
		}
		fileops.RemoveBestEffort(c.log(), workRoot)
	}()

	c.log().Info("packaging project", "source", req.Source, "target", resolved)

	bundlePath := filepath.Join(workRoot, srcBase)
	if err := c.fetchBundle(ctx, req.Source, bundlePath); err != nil {
		return "", fmt.Errorf("fetching bundle: %w", err)
	}

	pkgDir := filepath.Join(workRoot, "package")
	if err := c.tgz.Extract(ctx, bundlePath, pkgDir); err != nil {
		return "", fmt.Errorf("extracting bundle: %w", err)
	}

	man, err := manifest.Load(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		return "", fmt.Errorf("reading bundle manifest: %w", err)
	}

	if _, err := c.BuildModules(ctx, BuildRequest{
		Manifest:       man,
		CacheLocation:  req.CacheLocation,
		WorkDir:        workRoot,
		Materialize:    true,
		MaterializeDir: pkgDir,
	}); err != nil {
		return "", fmt.Errorf("building dependencies: %w", err)
	}

	zipPath := filepath.Join(workRoot, "archived-"+manifest.Slug(man.Name)+".zip")
	if err := c.zip.Compress(ctx, pkgDir, zipPath); err != nil {
		return "", fmt.Errorf("packaging: %w", err)
	}

	if localTarget {
		if err := fileops.CopyFile(zipPath, resolved); err != nil {
			return "", fmt.Errorf("delivering archive: %w: copy to %s: %v", ErrTransfer, resolved, err)
		}
	} else {
		if _, err := c.store.Put(ctx, targetLoc, zipPath); err != nil {
			return "", fmt.Errorf("delivering archive: %w", err)
		}
	}

	c.log().Info("project packaged", "target", resolved)
	return resolved, nil
}

// resolveTarget turns the requested target into a concrete destination,
// appending outName when the target is a directory or key prefix.
func (c *Client) resolveTarget(target, outName string) (resolved string, loc store.Location, local bool, err error) {
	if store.IsLocation(target) {
		if c.store == nil {
			return "", store.Location{}, false, fmt.Errorf("%w: target %q", ErrNoStore, target)
		}
		loc, err = store.ParseLocation(target)
		if err != nil {
			return "", store.Location{}, false, err
		}
		if !strings.HasSuffix(loc.Key, ".zip") {
			loc = loc.Join(outName)
		}
		return loc.String(), loc, false, nil
	}
	if !strings.HasSuffix(target, ".zip") {
		target = filepath.Join(target, outName)
	}
	return target, store.Location{}, true, nil
}

// fetchBundle stages the source bundle into the working root.
func (c *Client) fetchBundle(ctx context.Context, source, dest string) error {
	if store.IsLocation(source) {
		loc, err := store.ParseLocation(source)
		if err != nil {
			return err
		}
		return c.store.Fetch(ctx, loc, dest)
	}
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransfer, source, err)
	}
	if err := fileops.CopyFile(source, dest); err != nil {
		return fmt.Errorf("%w: copy %s: %v", ErrTransfer, source, err)
	}
	return nil
}

// sourceBase returns the final path segment of a source, for either
// location kind.
func sourceBase(source string) string {
	if store.IsLocation(source) {
		return path.Base(source)
	}
	return filepath.Base(source)
}
