package domain

import "slices"

// Period is the cadence at which a target's progress resets and is archived.
type Period string

const (
	PeriodNone   Period = "none"
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

var validPeriods = []Period{PeriodNone, PeriodDaily, PeriodWeekly}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return slices.Contains(validPeriods, p)
}

// Resets reports whether targets with this period participate in reset and archival.
func (p Period) Resets() bool {
	return p == PeriodDaily || p == PeriodWeekly
}

// Kind selects how raw events translate into progress deltas.
type Kind string

const (
	KindWordCount Kind = "wordCount"
	KindTime      Kind = "time"
)

var validKinds = []Kind{KindWordCount, KindTime}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return slices.Contains(validKinds, k)
}
