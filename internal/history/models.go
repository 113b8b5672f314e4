package history

import "time"

// Status tracks where a job is in its lifecycle.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is one subtitle request recorded in the ledger.
type Job struct {
	ID               string
	Filename         string
	ModelSize        string
	Task             string
	Language         string
	Format           string
	MaxChars         int
	Status           Status
	ErrorMessage     string
	Segments         int
	Adjusted         int
	DetectedLanguage string
	CreatedAt        time.Time
	FinishedAt       *time.Time
	Duration         time.Duration
}

// Outcome is what a finished job reports back.
type Outcome struct {
	Segments         int
	Adjusted         int
	DetectedLanguage string
}

// Stats summarizes the ledger for status displays.
type Stats struct {
	Total     int
	Running   int
	Succeeded int
	Failed    int
}
