// Package archive compresses and extracts the tarballs and zips the
// packager ships around.
//
// Each format runs in one of two modes: External shells out to the
// platform tool (tar, zip) and falls back to the builtin implementation
// when the binary is not installed; Builtin always uses the in-process
// implementation. Builtin output is portable and requires no tooling on
// the host.
package archive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"golang.org/x/sync/errgroup"
)

// Mode selects how archives are produced.
type Mode int

const (
	// ModeExternal prefers the platform tool, falling back to the
	// builtin implementation when the binary is unavailable.
	ModeExternal Mode = iota

	// ModeBuiltin always uses the in-process implementation.
	ModeBuiltin
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeExternal:
		return "external"
	case ModeBuiltin:
		return "builtin"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "external":
		return ModeExternal, nil
	case "builtin":
		return ModeBuiltin, nil
	default:
		return 0, fmt.Errorf("unknown compressor mode %q", s)
	}
}

var (
	// ErrCompress is returned when producing an archive fails.
	ErrCompress = errors.New("compression failed")

	// ErrExtract is returned when unpacking an archive fails.
	ErrExtract = errors.New("extraction failed")
)

// runTool executes an external archiver, streaming its output into the
// logger. Returns exec.ErrNotFound (wrapped) when the binary is absent
// so callers can fall back to the builtin implementation.
func runTool(ctx context.Context, logger *slog.Logger, dir, name string, args ...string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	g := new(errgroup.Group)
	for stream, r := range map[string]io.Reader{
		"stdout": stdout,
		"stderr": stderr,
	} {
		g.Go(func() error {
			sc := bufio.NewScanner(r)
			for sc.Scan() {
				logger.Debug(name, "stream", stream, "line", sc.Text())
			}
			return sc.Err()
		})
	}
	if err := g.Wait(); err != nil {
		logger.Debug("draining tool output", "tool", name, "error", err)
	}
	return cmd.Wait()
}

func toolMissing(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

func logOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
