// Package packager builds deployable archives for Node applications
// targeting a managed execution runtime.
//
// This package provides a unified high-level API through [Client] for
// the two pipelines: [Client.BuildModules] resolves a dependency
// manifest into an installed-dependency tarball, cached in object
// storage under a content hash of the normalized manifest; and
// [Client.PackageProject] turns a full project bundle into one
// deployable zip, reusing the dependency pipeline for the bundle's own
// manifest.
//
// # Quick Start
//
// Build a dependency archive with caching:
//
//	s, err := store.New(store.Config{Region: "eu-west-1"})
//	if err != nil {
//	    return err
//	}
//	c, err := packager.NewClient(packager.WithStore(s))
//	if err != nil {
//	    return err
//	}
//	res, err := c.BuildModules(ctx, packager.BuildRequest{
//	    Manifest:      m,
//	    CacheLocation: "s3://builds/cache",
//	})
//
// Package a project bundle end to end:
//
//	target, err := c.PackageProject(ctx, packager.ProjectRequest{
//	    Source:        "s3://uploads/foo-1.0.0.tgz",
//	    Target:        "s3://builds/releases",
//	    CacheLocation: "s3://builds/cache",
//	})
//
// # Caching
//
// The cache key depends only on the normalized dependency set: manifests
// that differ only in key order, or only in runtime-provided packages,
// share one cache entry. A probe failure of any kind is treated as a
// miss, so a degraded cache slows builds down but never fails them.
package packager
