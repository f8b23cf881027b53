package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxNameAttempts = 10000

// NextAvailablePath returns dir/name when no file of that name exists,
// otherwise probes base_1.ext, base_2.ext, ... and returns the first free
// path. The result is only guaranteed unique at call time; the archive
// directory has a single writer.
func NextAvailablePath(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	free, err := pathFree(candidate)
	if err != nil {
		return "", err
	}
	if free {
		return candidate, nil
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, attempt, ext))
		free, err := pathFree(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("exhausted archive filename slots for %s in %s", name, dir)
}

func pathFree(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	return false, err
}
