// Package npm runs the dependency installer as a subprocess.
package npm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// ErrInstall is returned when the installer exits unsuccessfully.
var ErrInstall = errors.New("install failed")

// DefaultBin is the installer binary used when none is configured.
const DefaultBin = "npm"

// Installer invokes npm against a directory containing a package.json,
// installing production dependencies in place.
type Installer struct {
	// Bin is the installer binary name or path. Empty means DefaultBin.
	Bin string

	// Logger records installer invocations. Nil discards.
	Logger *slog.Logger
}

// Install runs a production-only, no-optional install inside dir. The
// directory doubles as HOME so npm keeps its per-user state inside the
// working tree instead of the host account.
func (i *Installer) Install(ctx context.Context, dir string) error {
	bin := i.Bin
	if bin == "" {
		bin = DefaultBin
	}

	cmd := exec.CommandContext(ctx, bin, "install", "--production", "--no-optional")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+dir)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	i.log().Debug("running installer", "bin", bin, "dir", dir)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s in %s: %v: %s", ErrInstall, bin, dir, err, tail(output.String()))
	}
	i.log().Debug("installer finished", "dir", dir)
	return nil
}

// tail keeps error messages readable when npm dumps a long log.
func tail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) <= 10 {
		return s
	}
	return strings.Join(lines[len(lines)-10:], "\n")
}

func (i *Installer) log() *slog.Logger {
	if i.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return i.Logger
}
