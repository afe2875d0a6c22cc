package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Run Context
// =============================================================================

// RunContext carries the mutable state of a single deployment run. It is
// created once in main and passed explicitly through every component;
// nothing reads it ambiently.
type RunContext struct {
	ID        string
	StartedAt time.Time
	LogPath   string

	// Filled in as the run progresses.
	PackageManager string
	Warnings       []string
}

// NewRunContext creates a run context stamped with the run start time.
func NewRunContext() *RunContext {
	return &RunContext{
		ID:        uuid.NewString()[:8],
		StartedAt: time.Now(),
	}
}

// Warn records a non-fatal condition for the final report.
func (r *RunContext) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
