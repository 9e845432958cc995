package packager

import (
	"archive/tar"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/malczak/lambda-node-packager/store"
)

// fakeStore is an in-memory ObjectStore recording every call.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	probeErr error
	putErr   error

	probes []string
	puts   []string
	gets   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Probe(_ context.Context, loc store.Location, fetch bool) store.ProbeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes = append(f.probes, loc.String())
	if f.probeErr != nil {
		return store.ProbeResult{Cause: f.probeErr}
	}
	data, ok := f.objects[loc.String()]
	if !ok {
		return store.ProbeResult{Cause: store.ErrNotFound}
	}
	if fetch {
		return store.ProbeResult{Hit: true, Payload: data}
	}
	return store.ProbeResult{Hit: true}
}

func (f *fakeStore) Fetch(_ context.Context, loc store.Location, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, loc.String())
	data, ok := f.objects[loc.String()]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, loc)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func (f *fakeStore) Put(_ context.Context, loc store.Location, src string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, loc.String())
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	f.objects[loc.String()] = data
	return loc.String(), nil
}

func (f *fakeStore) calls() (probes, puts, gets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.probes), len(f.puts), len(f.gets)
}

// stubInstaller simulates npm by planting a module tree.
type stubInstaller struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (s *stubInstaller) Install(_ context.Context, dir string) error {
	s.mu.Lock()
	s.calls++
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return fail
	}
	mod := filepath.Join(dir, "node_modules", "left-pad")
	if err := os.MkdirAll(mod, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(mod, "index.js"), []byte("module.exports = pad\n"), 0o644)
}

func (s *stubInstaller) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// writeBundle builds a gzip-compressed tarball with the given files at
// the archive root, as project bundles carry them.
func writeBundle(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	out, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err = tw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, out.Close())
}
