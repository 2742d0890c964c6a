package standardize

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/shark-voyager/voyager-cli/internal/grid"
)

// Outcome statuses.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
)

// Outcome records how one variable fared during a standardization run.
type Outcome struct {
	Name    string   `yaml:"name"`
	Status  string   `yaml:"status"`
	Reason  string   `yaml:"reason,omitempty"`
	Weeks   int      `yaml:"weeks,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
}

// Report summarizes a standardization run.
type Report struct {
	RunID      string      `yaml:"run_id"`
	Region     grid.Region `yaml:"region"`
	StartDate  string      `yaml:"start_date"`
	EndDate    string      `yaml:"end_date"`
	StartedAt  time.Time   `yaml:"started_at"`
	FinishedAt time.Time   `yaml:"finished_at"`
	Outcomes   []Outcome   `yaml:"variables"`
}

// Succeeded returns the names of variables that processed cleanly.
func (r *Report) Succeeded() []string {
	var names []string
	for _, o := range r.Outcomes {
		if o.Status == StatusOK {
			names = append(names, o.Name)
		}
	}
	return names
}

// Skipped returns the names of variables that were skipped.
func (r *Report) Skipped() []string {
	var names []string
	for _, o := range r.Outcomes {
		if o.Status == StatusSkipped {
			names = append(names, o.Name)
		}
	}
	return names
}

// WriteYAML writes the report to disk.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "standardize: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "standardize: write report %s", path)
	}
	return nil
}
