package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
)

// Zip produces zip archives. Unlike TarGz, the source directory's
// contents sit at the archive root, matching what the managed runtime
// expects of a deployable zip.
type Zip struct {
	Mode   Mode
	Logger *slog.Logger
}

// Compress archives the contents of the directory src into a zip at dst.
func (z *Zip) Compress(ctx context.Context, src, dst string) error {
	if z.Mode == ModeExternal {
		err := runTool(ctx, z.log(), src, "zip", "-r", "-q", dst, ".")
		if err == nil {
			return nil
		}
		if !toolMissing(err) {
			return fmt.Errorf("%w: zip %s: %v", ErrCompress, src, err)
		}
		z.log().Debug("zip binary unavailable, using builtin", "src", src)
	}
	if err := z.compressBuiltin(ctx, src, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCompress, src, err)
	}
	return nil
}

// Extract unpacks the zip at src into the directory dst, creating it
// if absent.
func (z *Zip) Extract(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExtract, src, err)
	}
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExtract, src, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtract, src, err)
		}
		if err := z.extractEntry(f, dst); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtract, src, err)
		}
	}
	return nil
}

func (z *Zip) compressBuiltin(ctx context.Context, src, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
			_, err = zw.CreateHeader(hdr)
			return err
		}
		hdr.Method = zip.Deflate
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return out.Close()
}

func (z *Zip) extractEntry(f *zip.File, dst string) error {
	target, err := securePath(dst, f.Name)
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, f.Mode()&0o777|0o700)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode()&0o777)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil { //nolint:gosec // archives produced by this system
		out.Close()
		return err
	}
	return out.Close()
}

func (z *Zip) log() *slog.Logger { return logOrDiscard(z.Logger) }
