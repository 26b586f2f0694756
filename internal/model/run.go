package model

import "time"

// RefreshRun summarizes one execution of the refresh pipeline.
type RefreshRun struct {
	ID          string    `json:"runId"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Products    int       `json:"products"`
	Entries     int       `json:"entries"`
	Partial     bool      `json:"partial"`
	FailedPaths []string  `json:"failedPaths,omitempty"`
	// Removed lists archived products that this run no longer found.
	Removed []string `json:"removed,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func (r RefreshRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
