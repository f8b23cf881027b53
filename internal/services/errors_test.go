package services_test

import (
	"errors"
	"strings"
	"testing"

	"snapship/internal/journal"
	"snapship/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransport, "uploader", "post", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"uploader", "post", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "pipeline", "process", "", errors.New("io"))
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected default marker, got %v", err)
	}
}

func TestJournalStatusMapping(t *testing.T) {
	vanished := services.Wrap(services.ErrFileVanished, "pipeline", "upload", "gone before upload", nil)
	if status := services.JournalStatus(vanished); status != journal.StatusVanished {
		t.Fatalf("expected vanished for missing file, got %s", status)
	}

	transport := services.Wrap(services.ErrTransport, "uploader", "post", "502", errors.New("bad gateway"))
	if status := services.JournalStatus(transport); status != journal.StatusFailed {
		t.Fatalf("expected failed for transport error, got %s", status)
	}

	if status := services.JournalStatus(nil); status != journal.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}
