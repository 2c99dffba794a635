package models

import "time"

// PublishResult confirms a completed publish
type PublishResult struct {
	Target   string `json:"target"`
	Location string `json:"location"`
	Version  string `json:"version,omitempty"`
	Created  bool   `json:"created"`
}

// RunResult is the outcome of one pipeline run
type RunResult struct {
	RunID     string             `json:"run_id"`
	BoardID   string             `json:"board_id"`
	BoardName string             `json:"board_name,omitempty"`
	Fetched   int                `json:"fetched"`
	Exported  int                `json:"exported"`
	Digest    string             `json:"digest"`
	Publish   *PublishResult     `json:"publish,omitempty"`
	StartedAt time.Time          `json:"started_at"`
	Duration  time.Duration      `json:"duration"`
	Records   []NormalizedRecord `json:"-"`
}

// RunRecord is the ledger entry kept for every run, successful or not.
// Version is recorded for audit only and is never reused for a write.
type RunRecord struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	BoardID    string    `json:"board_id"`
	Target     string    `json:"target"`
	Path       string    `json:"path"`
	Success    bool      `json:"success"`
	ErrorType  string    `json:"error_type,omitempty"`
	Error      string    `json:"error,omitempty"`
	Fetched    int       `json:"fetched"`
	Exported   int       `json:"exported"`
	Location   string    `json:"location,omitempty"`
	Version    string    `json:"version,omitempty"`
	Digest     string    `json:"digest,omitempty"`
}

// RunEvent is broadcast to live listeners while a run progresses
type RunEvent struct {
	RunID    string `json:"run_id"`
	BoardID  string `json:"board_id"`
	Fetched  int    `json:"fetched,omitempty"`
	Exported int    `json:"exported,omitempty"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Run event types
const (
	EventRunStarted   = "run_started"
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"
)
