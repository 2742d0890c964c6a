// Package catalog persists pipeline run records so reruns can be audited:
// which variables succeeded, which were skipped, and what was written where.
package catalog

import (
	"context"
	"time"

	"github.com/shark-voyager/voyager-cli/internal/grid"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID        string      `json:"id"`
	Command   string      `json:"command"`
	Region    grid.Region `json:"region"`
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Status    RunStatus   `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Variable is the recorded outcome for one variable within a run.
type Variable struct {
	RunID   string   `json:"run_id"`
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Reason  string   `json:"reason,omitempty"`
	Outputs []string `json:"outputs,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus
	Limit  int
}

// Store defines the persistence interface for the run catalog.
type Store interface {
	CreateRun(ctx context.Context, command string, region grid.Region, startDate, endDate string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, status RunStatus) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	RecordVariable(ctx context.Context, v Variable) error
	ListVariables(ctx context.Context, runID string) ([]Variable, error)

	Migrate(ctx context.Context) error
	Close() error
}
