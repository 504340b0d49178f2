package store

import "time"

// Outcome is the result of a single walkthrough checkpoint.
type Outcome string

const (
	OutcomeOK   Outcome = "ok"
	OutcomeWarn Outcome = "warn"
	OutcomeSkip Outcome = "skip"
)

// RunStatus summarises a whole walkthrough.
type RunStatus string

const (
	RunPassed   RunStatus = "passed"
	RunWarnings RunStatus = "warnings"
	RunFailed   RunStatus = "failed"
)

// Step represents a single checkpoint of a walkthrough.
type Step struct {
	Index      int       `json:"index"`
	Name       string    `json:"name"`
	Screenshot string    `json:"screenshot,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// Run is one pass of the walkthrough against a target.
type Run struct {
	ID         string    `json:"id"`
	TargetURL  string    `json:"target_url"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     RunStatus `json:"status"`
	EntryCount int       `json:"entry_count"`
	Error      string    `json:"error,omitempty"`
	Steps      []Step    `json:"steps"`
}

// Warnings counts the steps that ended in a warning.
func (r *Run) Warnings() int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == OutcomeWarn {
			n++
		}
	}
	return n
}
