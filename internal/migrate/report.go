package migrate

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/hupe1980/panelport/internal/savedobject"
)

// Action is what happens, or happened, to one object.
type Action string

// Actions.
const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionSkipFiltered Action = "skip-filtered"
	// ActionSkipNotNewer is the outcome of a strict import whose release
	// marker does not beat the stored one. It is not a failure.
	ActionSkipNotNewer Action = "skip-not-newer"
	ActionFail         Action = "fail"
)

// Skipped reports whether the object is left alone.
func (a Action) Skipped() bool {
	return a == ActionSkipFiltered || a == ActionSkipNotNewer
}

// Result is the outcome for one object.
type Result struct {
	Key    savedobject.Key
	Title  string
	Action Action
	// Reason explains skips and failures.
	Reason string
	// Steps names the compatibility migrations that changed the object.
	Steps []string
	Err   error
}

// Report aggregates the per-object results of an import.
type Report struct {
	Results []Result
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
}

// Count returns the number of results with action a.
func (r *Report) Count(a Action) int {
	n := 0

	for _, res := range r.Results {
		if res.Action == a {
			n++
		}
	}

	return n
}

// Written returns the number of created or updated objects.
func (r *Report) Written() int {
	return r.Count(ActionCreate) + r.Count(ActionUpdate)
}

// Failed returns the failed results.
func (r *Report) Failed() []Result {
	var failed []Result

	for _, res := range r.Results {
		if res.Action == ActionFail {
			failed = append(failed, res)
		}
	}

	return failed
}

// Merge appends the results of other.
func (r *Report) Merge(other *Report) {
	if other != nil {
		r.Results = append(r.Results, other.Results...)
	}
}

// Err combines the errors of all failed objects, or returns nil.
func (r *Report) Err() error {
	var err error

	for _, res := range r.Failed() {
		cause := res.Err
		if cause == nil {
			cause = fmt.Errorf("%s", res.Reason)
		}

		err = multierr.Append(err, fmt.Errorf("%s: %w", res.Key, cause))
	}

	return err
}
