package inflight_test

import (
	"sync"
	"testing"

	"snapship/internal/inflight"
)

func TestTryAcquireThenReleaseCycle(t *testing.T) {
	tracker := inflight.NewTracker()

	if !tracker.TryAcquire("/watch/photo.jpg") {
		t.Fatal("expected first acquire to succeed")
	}
	if tracker.TryAcquire("/watch/photo.jpg") {
		t.Fatal("expected duplicate acquire to fail")
	}
	if !tracker.Contains("/watch/photo.jpg") {
		t.Fatal("expected path to be tracked")
	}

	tracker.Release("/watch/photo.jpg")
	if tracker.Contains("/watch/photo.jpg") {
		t.Fatal("expected path to be released")
	}
	if !tracker.TryAcquire("/watch/photo.jpg") {
		t.Fatal("expected acquire after release to succeed")
	}
}

func TestReleaseUntrackedPathIsNoOp(t *testing.T) {
	tracker := inflight.NewTracker()
	tracker.Release("/watch/never-acquired.jpg")
	if tracker.Len() != 0 {
		t.Fatalf("expected empty tracker, got %d entries", tracker.Len())
	}
}

func TestActiveReturnsSortedPaths(t *testing.T) {
	tracker := inflight.NewTracker()
	for _, path := range []string{"/watch/c.jpg", "/watch/a.jpg", "/watch/b.jpg"} {
		if !tracker.TryAcquire(path) {
			t.Fatalf("acquire %s failed", path)
		}
	}
	got := tracker.Active()
	want := []string{"/watch/a.jpg", "/watch/b.jpg", "/watch/c.jpg"}
	if len(got) != len(want) {
		t.Fatalf("unexpected active count: %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order at %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestConcurrentAcquireAdmitsExactlyOne(t *testing.T) {
	tracker := inflight.NewTracker()

	const attempts = 64
	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- tracker.TryAcquire("/watch/contended.jpg")
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
