package auditstore

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates run lifecycle states.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// Run represents one pipeline execution over a product set.
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	ConfigJSON  string
	Status      Status
}

// Completed reports whether the run has been sealed.
func (r *Run) Completed() bool {
	return r != nil && r.Status == StatusCompleted
}

// Result is the persisted audit row for one product in one run.
type Result struct {
	ID             int64
	RunID          string
	Handle         string
	Category       string
	RuleTags       []string
	AITags         []string
	FinalTags      []string
	Confidence     float64
	ModelUsed      string
	NeedsReview    bool
	FailureReasons []string
	Reasoning      string
	CreatedAt      time.Time
}

// NewRunID generates a run identifier for runs the operator did not name.
func NewRunID() string {
	return uuid.NewString()
}
