// Package archive relocates uploaded images into the archive directory under
// collision-free names.
package archive

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"log/slog"

	"snapship/internal/logging"
	"snapship/internal/services"
)

// Archiver moves files out of the watch directory after a successful upload.
type Archiver struct {
	dir    string
	logger *slog.Logger
}

// NewArchiver returns an archiver targeting dir.
func NewArchiver(dir string, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Archiver{dir: dir, logger: logger.With(logging.String(logging.FieldComponent, "archive"))}
}

// Archive moves src into the archive directory and returns the destination
// path. Name collisions are resolved with a numeric suffix. Moves fall back
// to copy+remove when the archive lives on a different filesystem.
func (a *Archiver) Archive(src string) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrArchiveMove, "archive", "ensure archive dir", "Failed to create archive directory", err)
	}

	target, err := NextAvailablePath(a.dir, filepath.Base(src))
	if err != nil {
		return "", services.Wrap(services.ErrArchiveMove, "archive", "allocate archive filename", "Unable to allocate archive filename", err)
	}

	if err := a.moveFile(src, target); err != nil {
		return "", err
	}
	return target, nil
}

// moveFile attempts a rename, falling back to copy+delete for cross-device moves.
func (a *Archiver) moveFile(source, target string) error {
	renameErr := os.Rename(source, target)
	if renameErr == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(renameErr, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if copyErr := copyFile(source, target); copyErr != nil {
			return services.Wrap(services.ErrArchiveMove, "archive", "copy archive file", "Failed to copy file into archive directory", copyErr)
		}
		if err := os.Remove(source); err != nil {
			a.logger.Warn("failed to remove source file after copy; duplicate files remain",
				logging.Error(err),
				logging.String(logging.FieldFile, source),
				logging.String(logging.FieldErrorHint, "manually delete the watched file if needed"),
				logging.String(logging.FieldImpact, "duplicate file exists in watch directory; manual cleanup needed"),
			)
		}
		return nil
	}

	return services.Wrap(services.ErrArchiveMove, "archive", "move archive file", "Failed to move file into archive directory", renameErr)
}

// copyFile copies a file from src to dst, verifying both size and content hash.
func copyFile(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	return nil
}
