package packager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malczak/lambda-node-packager/archive"
)

func bundleFiles() map[string][]byte {
	return map[string][]byte{
		"package.json": []byte(`{"name":"foo","dependencies":{"left-pad":"1.0.0"}}`),
		"index.js":     []byte("exports.handler = async () => 'ok'\n"),
	}
}

func workRoots(t *testing.T) map[string]bool {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "packager-project-*"))
	require.NoError(t, err)
	out := map[string]bool{}
	for _, m := range matches {
		out[m] = true
	}
	return out
}

func TestPackageProjectLocalToDirectory(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "foo-1.0.0.tgz")
	writeBundle(t, src, bundleFiles())

	c, inst := testClient(t)
	targetDir := t.TempDir()
	resolved, err := c.PackageProject(context.Background(), ProjectRequest{
		Source: src,
		Target: targetDir,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(targetDir, "foo-1.0.0.zip"), resolved)
	assert.FileExists(t, resolved)
	assert.Equal(t, 1, inst.callCount())

	// The deployable zip holds source plus installed dependencies at
	// its root.
	extracted := t.TempDir()
	z := &archive.Zip{Mode: archive.ModeBuiltin}
	require.NoError(t, z.Extract(context.Background(), resolved, extracted))
	assert.FileExists(t, filepath.Join(extracted, "index.js"))
	assert.FileExists(t, filepath.Join(extracted, "package.json"))
	assert.FileExists(t, filepath.Join(extracted, "node_modules", "left-pad", "index.js"))
}

func TestPackageProjectExplicitZipTarget(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "foo-1.0.0.tar.gz")
	writeBundle(t, src, bundleFiles())

	c, _ := testClient(t)
	target := filepath.Join(t.TempDir(), "out", "release.zip")
	resolved, err := c.PackageProject(context.Background(), ProjectRequest{
		Source: src,
		Target: target,
	})
	require.NoError(t, err)
	assert.Equal(t, target, resolved)
	assert.FileExists(t, target)
}

func TestPackageProjectStoreRoundTrip(t *testing.T) {
	t.Parallel()

	bundle := filepath.Join(t.TempDir(), "foo-1.0.0.tgz")
	writeBundle(t, bundle, bundleFiles())
	data, err := os.ReadFile(bundle)
	require.NoError(t, err)

	fs := newFakeStore()
	fs.objects["s3://uploads/foo-1.0.0.tgz"] = data

	c, _ := testClient(t, WithStore(fs))
	resolved, err := c.PackageProject(context.Background(), ProjectRequest{
		Source:        "s3://uploads/foo-1.0.0.tgz",
		Target:        "s3://releases/apps",
		CacheLocation: "s3://builds/cache",
	})
	require.NoError(t, err)

	assert.Equal(t, "s3://releases/apps/foo-1.0.0.zip", resolved)
	assert.Contains(t, fs.objects, "s3://releases/apps/foo-1.0.0.zip")

	// The dependency layer went through the cache too.
	var cachedKeys int
	for key := range fs.objects {
		if strings.HasPrefix(key, "s3://builds/cache/") {
			cachedKeys++
		}
	}
	assert.Equal(t, 1, cachedKeys)
}

func TestPackageProjectInvalidSourceName(t *testing.T) {
	fs := newFakeStore()
	c, inst := testClient(t, WithStore(fs))

	before := workRoots(t)
	_, err := c.PackageProject(context.Background(), ProjectRequest{
		Source: "s3://uploads/foo.tar",
		Target: t.TempDir(),
	})
	require.ErrorIs(t, err, ErrInvalidSourceName)

	probes, puts, gets := fs.calls()
	assert.Zero(t, probes+puts+gets, "validation must precede any network activity")
	assert.Zero(t, inst.callCount())
	assert.Equal(t, before, workRoots(t), "validation must precede any filesystem activity")
}

func TestPackageProjectRemoteTargetWithoutStore(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "foo-1.0.0.tgz")
	writeBundle(t, src, bundleFiles())

	c, _ := testClient(t)
	_, err := c.PackageProject(context.Background(), ProjectRequest{
		Source: src,
		Target: "s3://releases/apps",
	})
	require.ErrorIs(t, err, ErrNoStore)
}

func TestPackageProjectMissingSource(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t)
	_, err := c.PackageProject(context.Background(), ProjectRequest{
		Source: filepath.Join(t.TempDir(), "absent-1.0.0.tgz"),
		Target: t.TempDir(),
	})
	require.ErrorIs(t, err, ErrTransfer)
}

// failingZip stands in for a compressor that dies mid-pipeline.
type failingZip struct{}

func (failingZip) Compress(context.Context, string, string) error {
	return fmt.Errorf("%w: disk full", ErrCompress)
}

func (failingZip) Extract(context.Context, string, string) error {
	return fmt.Errorf("%w: disk full", ErrExtract)
}

func TestPackageProjectFailureCleansWorkRoot(t *testing.T) {
	src := filepath.Join(t.TempDir(), "foo-1.0.0.tgz")
	writeBundle(t, src, bundleFiles())

	c, _ := testClient(t, WithArchivers(nil, failingZip{}))
	before := workRoots(t)
	_, err := c.PackageProject(context.Background(), ProjectRequest{
		Source: src,
		Target: t.TempDir(),
	})
	require.ErrorIs(t, err, ErrCompress, "the compressor failure must surface, not a cleanup error")
	assert.Equal(t, before, workRoots(t), "working root must be deleted on failure")
}

func TestPackageProjectKeepRetainsWorkRoot(t *testing.T) {
	src := filepath.Join(t.TempDir(), "foo-1.0.0.tgz")
	writeBundle(t, src, bundleFiles())

	c, _ := testClient(t)
	before := workRoots(t)
	_, err := c.PackageProject(context.Background(), ProjectRequest{
		Source: src,
		Target: t.TempDir(),
		Keep:   true,
	})
	require.NoError(t, err)

	after := workRoots(t)
	var kept []string
	for root := range after {
		if !before[root] {
			kept = append(kept, root)
		}
	}
	require.Len(t, kept, 1, "working root must survive when retention is requested")
	t.Cleanup(func() { os.RemoveAll(kept[0]) })
	assert.DirExists(t, filepath.Join(kept[0], "package"))
}

func TestPackageProjectMalformedBundleManifest(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "foo-1.0.0.tgz")
	writeBundle(t, src, map[string][]byte{"index.js": []byte("no manifest here")})

	c, _ := testClient(t)
	_, err := c.PackageProject(context.Background(), ProjectRequest{
		Source: src,
		Target: t.TempDir(),
	})
	require.ErrorIs(t, err, ErrMalformedManifest)
}
