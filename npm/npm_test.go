package npm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInstaller writes a shell script standing in for the npm binary.
func fakeInstaller(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	path := filepath.Join(t.TempDir(), "npm")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestInstallRunsInDirWithHome(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bin := fakeInstaller(t, `printf '%s\n%s\n%s' "$PWD" "$HOME" "$*" > observed.txt`)

	inst := &Installer{Bin: bin}
	require.NoError(t, inst.Install(context.Background(), dir))

	observed, err := os.ReadFile(filepath.Join(dir, "observed.txt"))
	require.NoError(t, err)
	lines := strings.Split(string(observed), "\n")
	require.Len(t, lines, 3)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(lines[0])
	require.NoError(t, err)
	assert.Equal(t, resolved, got, "cwd must be the install dir")
	assert.Equal(t, dir, lines[1], "HOME must be the install dir")
	assert.Equal(t, "install --production --no-optional", lines[2])
}

func TestInstallFailureCarriesOutput(t *testing.T) {
	t.Parallel()

	bin := fakeInstaller(t, `echo "ERR missing package" >&2; exit 1`)
	inst := &Installer{Bin: bin}

	err := inst.Install(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrInstall)
	assert.Contains(t, err.Error(), "ERR missing package")
}

func TestInstallMissingBinary(t *testing.T) {
	t.Parallel()

	inst := &Installer{Bin: filepath.Join(t.TempDir(), "no-such-npm")}
	err := inst.Install(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrInstall)
}
