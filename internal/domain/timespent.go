package domain

import "time"

// TimeTarget measures progress as active editing time. Progress stores cumulative
// elapsed milliseconds per document; elapsed deltas are only ever added forward from
// a reset's zero baseline, so the absolute accumulator is the period's progress and
// no baseline snapshot is needed.
type TimeTarget struct {
	cfg      TargetConfig
	Progress map[string]int64

	// Multiplier scales between stored milliseconds and the unit the user edits the
	// goal in (for example 60000 for minutes). Input/output formatting only.
	Multiplier int64
}

// NewTimeTarget constructs a time target with empty progress. Goal is in
// milliseconds; a non-positive multiplier defaults to minutes.
func NewTimeTarget(id, name string, period Period, goal int64, path string, multiplier int64) (*TimeTarget, error) {
	cfg, err := newTargetConfig(id, name, period, goal, path)
	if err != nil {
		return nil, err
	}
	if multiplier <= 0 {
		multiplier = int64(time.Minute / time.Millisecond)
	}
	return &TimeTarget{
		cfg:        cfg,
		Progress:   map[string]int64{},
		Multiplier: multiplier,
	}, nil
}

// Config returns the target configuration.
func (t *TimeTarget) Config() TargetConfig { return t.cfg }

// Kind returns KindTime.
func (t *TimeTarget) Kind() Kind { return KindTime }

// IsTracking reports whether doc falls under the target's path scope.
func (t *TimeTarget) IsTracking(doc string) bool { return t.cfg.tracks(doc) }

// ApplyElapsed adds an elapsed span to doc's accumulator. Callers are expected to
// clamp the span to the idle cap before calling; the target itself accepts whatever
// forward delta it is handed.
func (t *TimeTarget) ApplyElapsed(doc string, elapsed time.Duration) {
	if !t.IsTracking(doc) || elapsed <= 0 {
		return
	}
	t.Progress[doc] += elapsed.Milliseconds()
}

// DisplayedProgress returns the per-document elapsed milliseconds for the period.
func (t *TimeTarget) DisplayedProgress() map[string]int64 {
	return cloneProgress(t.Progress)
}

// TotalProgress sums elapsed milliseconds across documents. Never negative.
func (t *TimeTarget) TotalProgress() int64 {
	var total int64
	for _, n := range t.Progress {
		total += n
	}
	return total
}

// DocumentCreated is a no-op: no elapsed time is attributable to a brand-new file.
func (t *TimeTarget) DocumentCreated(string) {}

// DocumentDeleted drops the document's accumulator.
func (t *TimeTarget) DocumentDeleted(doc string) {
	delete(t.Progress, doc)
}

// DocumentRenamed carries the accumulator to the new path.
func (t *TimeTarget) DocumentRenamed(oldPath, newPath string) {
	if n, ok := t.Progress[oldPath]; ok {
		delete(t.Progress, oldPath)
		if t.IsTracking(newPath) {
			t.Progress[newPath] = n
		}
	}
}

// NextPeriod returns the successor target with all accumulators reset to zero.
func (t *TimeTarget) NextPeriod(id string) Target {
	return &TimeTarget{
		cfg: TargetConfig{
			ID:     id,
			Name:   t.cfg.Name,
			Period: t.cfg.Period,
			Goal:   t.cfg.Goal,
			Path:   t.cfg.Path,
		},
		Progress:   map[string]int64{},
		Multiplier: t.Multiplier,
	}
}

// Record returns the serializable form of the target.
func (t *TimeTarget) Record() TargetRecord {
	return TargetRecord{
		ID:         t.cfg.ID,
		Name:       t.cfg.Name,
		Period:     t.cfg.Period,
		Kind:       KindTime,
		Goal:       t.cfg.Goal,
		Path:       t.cfg.Path,
		Progress:   cloneProgress(t.Progress),
		Multiplier: t.Multiplier,
	}
}
