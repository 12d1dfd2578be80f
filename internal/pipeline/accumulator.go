package pipeline

import (
	"sync"

	"github.com/lewtec/labelsync/internal/domain"
)

// DefaultMaxErrors bounds the error log carried by a report
const DefaultMaxErrors = 10

// Accumulator collects per-image outcomes from concurrent workers. Outcomes
// are stored by enumeration position so the report does not depend on which
// worker finished first.
type Accumulator struct {
	mu       sync.Mutex
	outcomes []*domain.SyncOutcome
	done     int
}

// NewAccumulator sizes an accumulator for n image keys
func NewAccumulator(n int) *Accumulator {
	return &Accumulator{outcomes: make([]*domain.SyncOutcome, n)}
}

// Record stores the outcome of the key at position pos and returns how many
// outcomes have been recorded so far
func (a *Accumulator) Record(pos int, outcome domain.SyncOutcome) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.outcomes[pos] == nil {
		a.done++
	}
	a.outcomes[pos] = &outcome
	return a.done
}

// Outcomes returns the recorded outcomes in enumeration order, skipping keys
// that were never processed
func (a *Accumulator) Outcomes() []domain.SyncOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.SyncOutcome, 0, a.done)
	for _, o := range a.outcomes {
		if o != nil {
			out = append(out, *o)
		}
	}
	return out
}

// Report merges the outcomes. The error log is truncated to maxErrors once,
// after the merge; counters always reflect the true totals.
func (a *Accumulator) Report(maxErrors int) *domain.SyncReport {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	report := &domain.SyncReport{}
	var errs []string
	for _, o := range a.Outcomes() {
		if o.Failed() {
			report.Failed++
		} else {
			report.Uploaded++
		}
		if o.Reason != "" {
			errs = append(errs, o.Reason)
		}
	}
	if len(errs) > maxErrors {
		errs = errs[:maxErrors]
	}
	if len(errs) > 0 {
		report.Errors = errs
	}
	report.Success = report.Failed == 0
	return report
}
