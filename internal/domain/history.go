package domain

import "time"

// dateKeyLayout formats the calendar-day key for history buckets.
const dateKeyLayout = "2006-01-02"

// DateKey returns the history bucket key for an instant's calendar day.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// HistoryKey addresses one archival bucket.
type HistoryKey struct {
	Period Period
	Date   string
	Kind   Kind
}

// HistoryEntry accumulates goal and progress totals for one bucket. Both fields are
// additive: several targets ending the same period on the same date contribute
// cumulatively, never overwrite.
type HistoryEntry struct {
	TargetSum   int64
	ProgressSum int64
}

// DayProgress is one calendar day in a year view.
type DayProgress struct {
	Date     time.Time
	Target   int64
	Progress int64
}

// ProgressHistory is the long-term archival store written by the reset pass and read
// by the year view.
type ProgressHistory struct {
	entries map[HistoryKey]HistoryEntry
}

// NewProgressHistory returns an empty history.
func NewProgressHistory() *ProgressHistory {
	return &ProgressHistory{entries: map[HistoryKey]HistoryEntry{}}
}

// HistoryFromEntries rehydrates a history from persisted buckets.
func HistoryFromEntries(entries map[HistoryKey]HistoryEntry) *ProgressHistory {
	h := NewProgressHistory()
	for key, entry := range entries {
		h.entries[key] = entry
	}
	return h
}

// Accumulate adds one archived target's goal and period total into the bucket.
func (h *ProgressHistory) Accumulate(period Period, date string, kind Kind, goal, progress int64) {
	key := HistoryKey{Period: period, Date: date, Kind: kind}
	entry := h.entries[key]
	entry.TargetSum += goal
	entry.ProgressSum += progress
	h.entries[key] = entry
}

// Entry returns the bucket for a key, if any.
func (h *ProgressHistory) Entry(key HistoryKey) (HistoryEntry, bool) {
	entry, ok := h.entries[key]
	return entry, ok
}

// Entries returns a copy of all buckets, for persistence.
func (h *ProgressHistory) Entries() map[HistoryKey]HistoryEntry {
	out := make(map[HistoryKey]HistoryEntry, len(h.entries))
	for key, entry := range h.entries {
		out[key] = entry
	}
	return out
}

// Len returns the number of buckets.
func (h *ProgressHistory) Len() int { return len(h.entries) }

// YearProgress returns one entry per calendar day of year, in chronological order.
// Daily buckets read as zero on days without an entry. Weekly buckets carry the most
// recent prior entry forward across gap days, but only while that entry is less than
// seven days old relative to the day being filled; past the window, gaps read as
// zero again.
func (h *ProgressHistory) YearProgress(year int, period Period, kind Kind) []DayProgress {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	days := int(end.Sub(start).Hours() / 24)

	out := make([]DayProgress, 0, days)
	var carried HistoryEntry
	var carriedAt time.Time
	haveCarry := false

	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		dp := DayProgress{Date: day}
		key := HistoryKey{Period: period, Date: DateKey(day), Kind: kind}
		if entry, ok := h.entries[key]; ok {
			dp.Target = entry.TargetSum
			dp.Progress = entry.ProgressSum
			if period == PeriodWeekly {
				carried = entry
				carriedAt = day
				haveCarry = true
			}
		} else if period == PeriodWeekly && haveCarry && day.Sub(carriedAt) < 7*24*time.Hour {
			dp.Target = carried.TargetSum
			dp.Progress = carried.ProgressSum
		}
		out = append(out, dp)
	}
	return out
}
