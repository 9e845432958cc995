//go:build integration

package integration

import (
	"archive/tar"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/malczak/lambda-node-packager/store"
)

const (
	minioImage = "minio/minio:RELEASE.2024-01-16T16-07-38Z"
	minioUser  = "minioadmin"
	minioPass  = "minioadmin"
)

// startMinio launches a MinIO container and returns a store client
// wired to it.
func startMinio(t *testing.T) *store.Client {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        minioImage,
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPass,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForListeningPort("9000/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "9000")
	require.NoError(t, err)

	s, err := store.New(store.Config{
		Endpoint:  fmt.Sprintf("%s:%s", host, port.Port()),
		AccessKey: minioUser,
		SecretKey: minioPass,
		Insecure:  true,
	})
	require.NoError(t, err)
	return s
}

// fakeNpm writes a shell script that plants a module tree and records
// each invocation in callLog.
func fakeNpm(t *testing.T, callLog string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "npm")
	script := fmt.Sprintf(`#!/bin/sh
echo run >> %q
mkdir -p node_modules/left-pad
echo "module.exports = pad" > node_modules/left-pad/index.js
`, callLog)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}

// writeBundle builds a project bundle tarball with files at the
// archive root.
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
