package domain

// WordCountTarget measures progress as words written during the current period.
// Progress stores the absolute word count per document; PreviousProgress snapshots
// the count at period start (or at first measurement), so displayed progress is the
// period delta and may go negative when a document shrinks below its baseline.
type WordCountTarget struct {
	cfg              TargetConfig
	Progress         map[string]int64
	PreviousProgress map[string]int64
}

// NewWordCountTarget constructs a word-count target with empty progress.
func NewWordCountTarget(id, name string, period Period, goal int64, path string) (*WordCountTarget, error) {
	cfg, err := newTargetConfig(id, name, period, goal, path)
	if err != nil {
		return nil, err
	}
	return &WordCountTarget{
		cfg:              cfg,
		Progress:         map[string]int64{},
		PreviousProgress: map[string]int64{},
	}, nil
}

// Config returns the target configuration.
func (t *WordCountTarget) Config() TargetConfig { return t.cfg }

// Kind returns KindWordCount.
func (t *WordCountTarget) Kind() Kind { return KindWordCount }

// IsTracking reports whether doc falls under the target's path scope.
func (t *WordCountTarget) IsTracking(doc string) bool { return t.cfg.tracks(doc) }

// SeedDocument marks a tracked document as known but unmeasured so the first open
// event can establish its baseline. Already-measured documents are left alone.
func (t *WordCountTarget) SeedDocument(doc string) {
	if !t.IsTracking(doc) {
		return
	}
	if _, ok := t.Progress[doc]; !ok {
		t.Progress[doc] = Unmeasured
	}
}

// NeedsMeasurement reports whether doc is tracked but still holds the unmeasured
// sentinel.
func (t *WordCountTarget) NeedsMeasurement(doc string) bool {
	return t.IsTracking(doc) && t.Progress[doc] == Unmeasured
}

// ApplyMeasurement records an absolute word count for doc. The first measurement
// since period start also becomes the period baseline, so a document's pre-existing
// words never count toward the period delta.
func (t *WordCountTarget) ApplyMeasurement(doc string, words int64) {
	if !t.IsTracking(doc) {
		return
	}
	t.Progress[doc] = words
	if _, ok := t.PreviousProgress[doc]; !ok {
		t.PreviousProgress[doc] = words
	}
}

// DisplayedProgress returns the per-document period delta: progress minus the period
// baseline when one exists, else the raw progress. Unmeasured documents are omitted.
func (t *WordCountTarget) DisplayedProgress() map[string]int64 {
	out := make(map[string]int64, len(t.Progress))
	for doc, n := range t.Progress {
		if n == Unmeasured {
			continue
		}
		if base, ok := t.PreviousProgress[doc]; ok {
			out[doc] = n - base
			continue
		}
		out[doc] = n
	}
	return out
}

// TotalProgress sums displayed progress. May be negative.
func (t *WordCountTarget) TotalProgress() int64 {
	var total int64
	for _, n := range t.DisplayedProgress() {
		total += n
	}
	return total
}

// DocumentCreated seeds the new document for measurement.
func (t *WordCountTarget) DocumentCreated(doc string) {
	t.SeedDocument(doc)
}

// DocumentDeleted drops the document from both maps.
func (t *WordCountTarget) DocumentDeleted(doc string) {
	delete(t.Progress, doc)
	delete(t.PreviousProgress, doc)
}

// DocumentRenamed carries accumulated values to the new path and removes the old key
// from both maps.
func (t *WordCountTarget) DocumentRenamed(oldPath, newPath string) {
	if n, ok := t.Progress[oldPath]; ok {
		delete(t.Progress, oldPath)
		if t.IsTracking(newPath) {
			t.Progress[newPath] = n
		}
	}
	if n, ok := t.PreviousProgress[oldPath]; ok {
		delete(t.PreviousProgress, oldPath)
		if t.IsTracking(newPath) {
			t.PreviousProgress[newPath] = n
		}
	}
}

// NextPeriod returns the successor target: absolute counts carry over and become the
// new baseline, so every known document starts the new period at delta zero.
// Unmeasured documents stay unmeasured.
func (t *WordCountTarget) NextPeriod(id string) Target {
	progress := cloneProgress(t.Progress)
	previous := make(map[string]int64, len(progress))
	for doc, n := range progress {
		if n == Unmeasured {
			continue
		}
		previous[doc] = n
	}
	return &WordCountTarget{
		cfg: TargetConfig{
			ID:     id,
			Name:   t.cfg.Name,
			Period: t.cfg.Period,
			Goal:   t.cfg.Goal,
			Path:   t.cfg.Path,
		},
		Progress:         progress,
		PreviousProgress: previous,
	}
}

// Record returns the serializable form of the target.
func (t *WordCountTarget) Record() TargetRecord {
	return TargetRecord{
		ID:               t.cfg.ID,
		Name:             t.cfg.Name,
		Period:           t.cfg.Period,
		Kind:             KindWordCount,
		Goal:             t.cfg.Goal,
		Path:             t.cfg.Path,
		Progress:         cloneProgress(t.Progress),
		PreviousProgress: cloneProgress(t.PreviousProgress),
	}
}
