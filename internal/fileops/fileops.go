// Package fileops holds the filesystem plumbing shared by the build
// pipelines: isolated working roots, file copies, and best-effort
// cleanup that never masks a pipeline failure.
package fileops

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// TempRoot creates a fresh working root owned by one pipeline
// invocation.
func TempRoot(prefix string) (string, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", fmt.Errorf("create working root: %w", err)
	}
	return dir, nil
}

// CopyFile copies src to dst, creating dst's parent directories and
// preserving the source's mode bits.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyDir recursively copies the tree rooted at src into dst.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		return CopyFile(path, target)
	})
}

// RemoveBestEffort deletes path recursively, logging rather than
// returning any error so cleanup can never displace the failure that
// triggered it.
func RemoveBestEffort(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		logger.Warn("cleanup failed", "path", path, "error", err)
	}
}
