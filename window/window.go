package window

import (
	"fmt"
	"time"
)

// Epoch is the start of every unbounded window
var Epoch = time.Unix(0, 0)

// Window is a half-open time range [Start, End) with a label
type Window struct {
	Label   string    `json:"label"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Bounded bool      `json:"bounded"` // false for "all time" windows, where no start filtering applies
}

// Contains reports whether t falls in [Start, End)
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Kind is the shape of a window Definition
type Kind string

// Defining the kinds of window definitions
const (
	KindDay     Kind = "day"     // a single calendar day, From days ago
	KindBetween Kind = "between" // From-To units ago
	KindRolling Kind = "rolling" // a series of Count consecutive buckets ending today
	KindTotal   Kind = "total"   // all time
)

// Definition describes a named window that resolves against "now"
type Definition struct {
	Label  string `json:"label"`
	Kind   Kind   `json:"kind"`
	Unit   Unit   `json:"unit,omitempty"`
	From   int    `json:"from,omitempty"`
	To     int    `json:"to,omitempty"`
	Count  int    `json:"count,omitempty"`
	ByPlan bool   `json:"byPlan,omitempty"` // also aggregate once per configured plan
}

// Day is the calendar day `ago` days before now
func Day(label string, ago int) Definition {
	return Definition{Label: label, Kind: KindDay, Unit: UnitDay, From: ago}
}

// Between is the span from `to` units ago up to `from` units ago.
// A span starting at 0 ends with today, so "0-1 weeks ago" includes the current day.
func Between(label string, unit Unit, from, to int) Definition {
	return Definition{Label: label, Kind: KindBetween, Unit: unit, From: from, To: to}
}

// Rolling is a series of `count` consecutive buckets, oldest first, the last one ending today.
// Day buckets are calendar days; other units use Between(k, k+1) buckets.
func Rolling(label string, unit Unit, count int) Definition {
	return Definition{Label: label, Kind: KindRolling, Unit: unit, Count: count}
}

// Total is the unbounded "all time" window
func Total(label string) Definition {
	return Definition{Label: label, Kind: KindTotal}
}

// PerPlan marks the definition for plan segmentation
func (d Definition) PerPlan() Definition {
	d.ByPlan = true
	return d
}

// Series reports whether the definition resolves to more than a single window
func (d Definition) Series() bool {
	return d.Kind == KindRolling
}

// Validate checks that the definition resolves to well formed windows
func (d Definition) Validate() error {
	if d.Label == "" && d.Kind != KindTotal {
		return fmt.Errorf("empty label is invalid")
	}
	switch d.Kind {
	case KindTotal:
		return nil
	case KindDay:
		if d.From < 0 {
			return fmt.Errorf("negative day offset %d is invalid", d.From)
		}
		return nil
	case KindBetween:
		if _, err := ParseUnit(string(d.Unit)); err != nil {
			return err
		}
		if d.From < 0 {
			return fmt.Errorf("negative offset %d is invalid", d.From)
		}
		if d.From >= d.To {
			return fmt.Errorf("window %d-%d %ss ago starts after it ends", d.From, d.To, d.Unit)
		}
		return nil
	case KindRolling:
		if _, err := ParseUnit(string(d.Unit)); err != nil {
			return err
		}
		if d.Count <= 0 {
			return fmt.Errorf("rolling window needs a positive count, got %d", d.Count)
		}
		return nil
	}
	return fmt.Errorf("Unknown window kind \"%s\"", d.Kind)
}

// Resolve computes the concrete windows of the definition for the given now.
// Non-series definitions always resolve to exactly one window.
func (d Definition) Resolve(now time.Time) []Window {
	switch d.Kind {
	case KindDay:
		return []Window{day(d.Label, now, d.From)}
	case KindBetween:
		return []Window{between(d.Label, now, d.Unit, d.From, d.To)}
	case KindRolling:
		windows := make([]Window, 0, d.Count)
		for k := d.Count - 1; k >= 0; k-- {
			if d.Unit == UnitDay {
				windows = append(windows, day(d.Label, now, k))
			} else {
				windows = append(windows, between(d.Label, now, d.Unit, k, k+1))
			}
		}
		return windows
	}
	return []Window{{
		Label: d.Label,
		Start: Epoch.In(now.Location()),
		End:   now,
	}}
}

func day(label string, now time.Time, ago int) Window {
	d := Shift(now, UnitDay, -ago)
	return Window{
		Label:   label,
		Start:   FloorToDay(d),
		End:     CeilToDay(d),
		Bounded: true,
	}
}

func between(label string, now time.Time, unit Unit, from, to int) Window {
	end := CeilToDay(now)
	if from > 0 {
		// share the boundary with the newer neighbour, half-open ranges keep it counted once
		end = FloorToDay(Shift(now, unit, -from))
	}
	return Window{
		Label:   label,
		Start:   FloorToDay(Shift(now, unit, -to)),
		End:     end,
		Bounded: true,
	}
}
