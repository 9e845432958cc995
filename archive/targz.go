package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// TarGz produces and unpacks gzip-compressed tarballs. The archive
// contains the source's base directory as its top-level entry, so
// extracting into a directory recreates the tree under its own name.
type TarGz struct {
	Mode   Mode
	Logger *slog.Logger
}

// Compress archives the file or directory at src into a .tgz at dst.
func (t *TarGz) Compress(ctx context.Context, src, dst string) error {
	if t.Mode == ModeExternal {
		err := runTool(ctx, t.log(), "", "tar", "-czf", dst, "-C", filepath.Dir(src), filepath.Base(src))
		if err == nil {
			return nil
		}
		if !toolMissing(err) {
			return fmt.Errorf("%w: tar %s: %v", ErrCompress, src, err)
		}
		t.log().Debug("tar binary unavailable, using builtin", "src", src)
	}
	if err := t.compressBuiltin(ctx, src, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCompress, src, err)
	}
	return nil
}

// Extract unpacks the .tgz at src into the directory dst, creating it
// if absent.
func (t *TarGz) Extract(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExtract, src, err)
	}
	if t.Mode == ModeExternal {
		err := runTool(ctx, t.log(), "", "tar", "-xzf", src, "-C", dst)
		if err == nil {
			return nil
		}
		if !toolMissing(err) {
			return fmt.Errorf("%w: tar %s: %v", ErrExtract, src, err)
		}
		t.log().Debug("tar binary unavailable, using builtin", "src", src)
	}
	if err := t.extractBuiltin(ctx, src, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExtract, src, err)
	}
	return nil
}

func (t *TarGz) compressBuiltin(ctx context.Context, src, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	root := filepath.Dir(src)
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}

func (t *TarGz) extractBuiltin(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := securePath(dst, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fs.FileMode(hdr.Mode)&0o777|0o700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil { //nolint:gosec // sizes bounded by archive contents we produced
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		default:
			// Symlinks and specials are not part of the archives this
			// system produces; skip rather than fail.
			t.log().Debug("skipping archive entry", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}
}

// securePath joins name under dst, rejecting entries that would escape.
func securePath(dst, name string) (string, error) {
	target := filepath.Join(dst, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) && target != filepath.Clean(dst) {
		return "", fmt.Errorf("entry %q escapes destination", name)
	}
	return target, nil
}

func (t *TarGz) log() *slog.Logger { return logOrDiscard(t.Logger) }
