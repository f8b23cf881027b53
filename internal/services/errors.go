package services

import (
	"errors"
	"fmt"
	"strings"

	"snapship/internal/journal"
)

var (
	ErrTransport     = errors.New("transport failure")
	ErrFileVanished  = errors.New("file vanished")
	ErrArchiveMove   = errors.New("archive move failure")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// JournalStatus maps a per-file processing error to the terminal status the
// pipeline records for that attempt.
func JournalStatus(err error) journal.Status {
	if errors.Is(err, ErrFileVanished) {
		return journal.StatusVanished
	}
	return journal.StatusFailed
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
