package report

import (
	"time"

	"github.com/zllovesuki/subpulse/subscription"
	"github.com/zllovesuki/subpulse/window"
)

// Report is the outcome of one run over a single snapshot and a single "now"
type Report struct {
	RunID   string    `json:"runId"`
	Now     time.Time `json:"now"`
	Entries []Entry   `json:"entries"`
}

// Entry holds the aggregates of one window definition.
// Aggregates line up with Windows; non-series definitions have exactly one of each.
type Entry struct {
	Definition window.Definition        `json:"definition"`
	Windows    []window.Window          `json:"windows"`
	Aggregates []subscription.Aggregate `json:"aggregates"`
	Plans      []PlanEntry              `json:"plans,omitempty"`
}

// PlanEntry holds the aggregates of one plan over the same windows as its Entry
type PlanEntry struct {
	Name       string                   `json:"name"`
	ID         string                   `json:"id"`
	Aggregates []subscription.Aggregate `json:"aggregates"`
}

// Entry returns the entry with the given label
func (r *Report) Entry(label string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Definition.Label == label {
			return e, true
		}
	}
	return Entry{}, false
}

// Plan returns the plan breakdown with the given name
func (e Entry) Plan(name string) (PlanEntry, bool) {
	for _, p := range e.Plans {
		if p.Name == name {
			return p, true
		}
	}
	return PlanEntry{}, false
}
