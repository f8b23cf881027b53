package journal

import "time"

// Status records the terminal outcome of one upload attempt.
type Status string

const (
	// StatusArchived marks an upload that succeeded and was moved to the archive.
	StatusArchived Status = "archived"
	// StatusFailed marks an upload that failed; the file remains in the watch directory.
	StatusFailed Status = "failed"
	// StatusVanished marks a file that disappeared before it could be uploaded.
	StatusVanished Status = "vanished"
)

var allStatuses = []Status{StatusArchived, StatusFailed, StatusVanished}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ValidStatus reports whether the value is a known outcome.
func ValidStatus(status Status) bool {
	_, ok := statusSet[status]
	return ok
}

// Record is one journal row describing a finished upload attempt.
type Record struct {
	ID           int64
	RequestID    string
	SourcePath   string
	FileName     string
	SizeBytes    int64
	Status       Status
	ErrorMessage string
	ArchivePath  string
	DetectedAt   time.Time
	CompletedAt  time.Time
}

// Summary aggregates journal counts for status output.
type Summary struct {
	Total    int
	Archived int
	Failed   int
	Vanished int
}
