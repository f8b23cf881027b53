// Package logs reads the daemon's run logs for the CLI.
package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"snapship/internal/config"
)

const pollInterval = 250 * time.Millisecond

// CurrentLogPath resolves the active daemon log file: the snapship.log
// pointer when present, otherwise the newest run-stamped log.
func CurrentLogPath(cfg *config.Config) (string, error) {
	if cfg == nil {
		return "", errors.New("configuration unavailable")
	}
	pointer := filepath.Join(cfg.Paths.LogDir, "snapship.log")
	if info, err := os.Stat(pointer); err == nil && !info.IsDir() {
		return pointer, nil
	}

	matches, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "snapship-*.log"))
	if err != nil {
		return "", fmt.Errorf("scan log directory: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no daemon logs found in %s", cfg.Paths.LogDir)
	}
	// Run IDs are zero-padded UTC timestamps, so the names sort chronologically.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// LastLines returns up to limit trailing lines of the file and the offset of
// its end, suitable as the starting point for Follow. A limit <= 0 returns no
// lines but still reports the end offset.
func LastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	scanner := newLineScanner(file)
	ring := make([]string, limit)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// ReadFrom returns complete lines appended after offset and the new offset.
func ReadFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		// The file was replaced or truncated; restart from the top.
		offset = 0
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	scanner := newLineScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, offset, fmt.Errorf("read log file: %w", err)
	}

	newOffset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, offset, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, newOffset, nil
}

// Follow polls the file for appended lines, handing each one to emit, until
// the context is cancelled.
func Follow(ctx context.Context, path string, offset int64, emit func(line string)) error {
	if emit == nil {
		return errors.New("emit callback is required")
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		lines, newOffset, err := ReadFrom(path, offset)
		if err != nil {
			return err
		}
		offset = newOffset
		for _, line := range lines {
			emit(line)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
