package archive_test

import (
	"os"
	"path/filepath"
	"testing"

	"snapship/internal/archive"
	"snapship/internal/logging"
	"snapship/internal/testsupport"
)

func TestNextAvailablePathProbesSuffixes(t *testing.T) {
	dir := t.TempDir()

	got, err := archive.NextAvailablePath(dir, "photo.jpg")
	if err != nil {
		t.Fatalf("NextAvailablePath failed: %v", err)
	}
	if got != filepath.Join(dir, "photo.jpg") {
		t.Fatalf("expected unchanged name in empty dir, got %q", got)
	}

	testsupport.WriteFile(t, filepath.Join(dir, "photo.jpg"), 16)
	got, err = archive.NextAvailablePath(dir, "photo.jpg")
	if err != nil {
		t.Fatalf("NextAvailablePath failed: %v", err)
	}
	if got != filepath.Join(dir, "photo_1.jpg") {
		t.Fatalf("expected first suffix, got %q", got)
	}

	testsupport.WriteFile(t, filepath.Join(dir, "photo_1.jpg"), 16)
	got, err = archive.NextAvailablePath(dir, "photo.jpg")
	if err != nil {
		t.Fatalf("NextAvailablePath failed: %v", err)
	}
	if got != filepath.Join(dir, "photo_2.jpg") {
		t.Fatalf("expected second suffix, got %q", got)
	}
}

func TestNextAvailablePathHandlesNameWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "snapshot"), 16)

	got, err := archive.NextAvailablePath(dir, "snapshot")
	if err != nil {
		t.Fatalf("NextAvailablePath failed: %v", err)
	}
	if got != filepath.Join(dir, "snapshot_1") {
		t.Fatalf("unexpected path: %q", got)
	}
}

func TestArchiveMovesFile(t *testing.T) {
	base := t.TempDir()
	watchDir := filepath.Join(base, "incoming")
	archiveDir := filepath.Join(base, "uploaded")

	src := filepath.Join(watchDir, "photo.jpg")
	testsupport.WriteFile(t, src, 1024)

	archiver := archive.NewArchiver(archiveDir, logging.NewNop())
	dst, err := archiver.Archive(src)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if dst != filepath.Join(archiveDir, "photo.jpg") {
		t.Fatalf("unexpected destination: %q", dst)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source to be gone, stat err: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("expected destination to exist: %v", err)
	}
	if info.Size() != 1024 {
		t.Fatalf("unexpected size after move: %d", info.Size())
	}
}

func TestArchiveResolvesCollision(t *testing.T) {
	base := t.TempDir()
	watchDir := filepath.Join(base, "incoming")
	archiveDir := filepath.Join(base, "uploaded")

	testsupport.WriteFile(t, filepath.Join(archiveDir, "photo.jpg"), 8)
	src := filepath.Join(watchDir, "photo.jpg")
	testsupport.WriteFile(t, src, 64)

	archiver := archive.NewArchiver(archiveDir, logging.NewNop())
	dst, err := archiver.Archive(src)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if dst != filepath.Join(archiveDir, "photo_1.jpg") {
		t.Fatalf("expected suffixed destination, got %q", dst)
	}
	if _, err := os.Stat(filepath.Join(archiveDir, "photo.jpg")); err != nil {
		t.Fatalf("expected original archive file untouched: %v", err)
	}
}

func TestArchiveCreatesArchiveDir(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "incoming", "photo.jpg")
	testsupport.WriteFile(t, src, 32)

	archiveDir := filepath.Join(base, "nested", "deep", "uploaded")
	archiver := archive.NewArchiver(archiveDir, logging.NewNop())
	if _, err := archiver.Archive(src); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if _, err := os.Stat(archiveDir); err != nil {
		t.Fatalf("expected archive dir to be created: %v", err)
	}
}
