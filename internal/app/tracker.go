package app

import (
	"context"
	"io"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/mquillen/inktally/internal/domain"
)

// TrackerConfig holds the tracking knobs that apply across all targets.
type TrackerConfig struct {
	// MaxIdle caps the elapsed span attributable to a single accrual, so a document
	// left open without edits does not count idle hours as writing time.
	MaxIdle time.Duration
	// CountComments includes comment syntax in word counts.
	CountComments bool
}

// Tracker turns content events into per-target progress updates. It owns the
// focused-document state used to compute elapsed active time and fans each event out
// to every live target.
//
// All mutation runs under one engine mutex shared with the scheduler and the
// service: events, the reset timer callback, and host queries serialize through it,
// matching the one-writer-at-a-time discipline the progress maps assume.
type Tracker struct {
	mu         *sync.Mutex
	registry   *Registry
	content    ContentSource
	countWords WordCounter
	clock      Clock
	cfg        TrackerConfig
	logger     *charmLog.Logger

	focused      bool
	focusedDoc   string
	focusedSince time.Time

	onDirty   func()
	onRefresh func()
}

// NewTracker constructs a tracker over the given registry. mu is the engine mutex;
// a nil mu gets a private one.
func NewTracker(mu *sync.Mutex, registry *Registry, content ContentSource, countWords WordCounter, clock Clock, cfg TrackerConfig, logger *charmLog.Logger) *Tracker {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	return &Tracker{
		mu:         mu,
		registry:   registry,
		content:    content,
		countWords: countWords,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// SetHooks installs the outward signals: onDirty when state changed and a save
// should be scheduled, onRefresh when the host UI should re-render. Either may be
// nil.
func (t *Tracker) SetHooks(onDirty, onRefresh func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDirty = onDirty
	t.onRefresh = onRefresh
}

// DocumentModified handles a content change: one shared read feeds every word-count
// target, and the focus timer flushes clamped elapsed time into every time target
// tracking the document.
func (t *Tracker) DocumentModified(ctx context.Context, doc string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	count, measured := t.measure(ctx, doc)
	elapsed := t.elapsedLocked(now)

	for _, target := range t.registry.All() {
		switch v := target.(type) {
		case *domain.WordCountTarget:
			if measured {
				v.ApplyMeasurement(doc, count)
			}
		case *domain.TimeTarget:
			v.ApplyElapsed(doc, elapsed)
		}
	}
	if t.focused {
		t.focusedSince = now
	}
	t.signalLocked()
}

// DocumentCreated seeds the new document on word-count targets and measures it
// immediately. Time targets are untouched: no elapsed time is attributable to a
// brand-new file.
func (t *Tracker) DocumentCreated(ctx context.Context, doc string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	count, measured := t.measure(ctx, doc)
	for _, target := range t.registry.All() {
		target.DocumentCreated(doc)
		if v, ok := target.(*domain.WordCountTarget); ok && measured {
			v.ApplyMeasurement(doc, count)
		}
	}
	t.signalLocked()
}

// DocumentDeleted drops the document from every target and releases focus if the
// deleted document held it.
func (t *Tracker) DocumentDeleted(doc string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, target := range t.registry.All() {
		target.DocumentDeleted(doc)
	}
	if t.focused && t.focusedDoc == doc {
		t.focused = false
		t.focusedDoc = ""
	}
	t.signalLocked()
}

// DocumentRenamed carries progress to the new path on every target and follows the
// rename with the focus state.
func (t *Tracker) DocumentRenamed(oldPath, newPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, target := range t.registry.All() {
		target.DocumentRenamed(oldPath, newPath)
	}
	if t.focused && t.focusedDoc == oldPath {
		t.focusedDoc = newPath
	}
	t.signalLocked()
}

// FocusChanged flushes the elapsed span into time targets tracking the previously
// focused document, then moves focus to doc (empty string clears it). A word-count
// target seeing the document for the first time gets an immediate baseline
// measurement.
func (t *Tracker) FocusChanged(ctx context.Context, doc string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	if elapsed := t.elapsedLocked(now); elapsed > 0 {
		for _, target := range t.registry.All() {
			if v, ok := target.(*domain.TimeTarget); ok {
				v.ApplyElapsed(t.focusedDoc, elapsed)
			}
		}
	}

	if doc == "" {
		t.focused = false
		t.focusedDoc = ""
		t.signalLocked()
		return
	}
	t.focused = true
	t.focusedDoc = doc
	t.focusedSince = now

	t.baselineOnOpen(ctx, doc)
	t.signalLocked()
}

// ElapsedOnFocused returns the clamped span since the focused document last
// accrued, or zero when nothing is focused. This is the single idle-cap policy
// every accrual point shares.
func (t *Tracker) ElapsedOnFocused() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked(t.clock())
}

// FocusedDocument returns the currently focused document, if any.
func (t *Tracker) FocusedDocument() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focusedDoc, t.focused
}

func (t *Tracker) elapsedLocked(now time.Time) time.Duration {
	if !t.focused {
		return 0
	}
	elapsed := now.Sub(t.focusedSince)
	if elapsed < 0 {
		return 0
	}
	if elapsed > t.cfg.MaxIdle {
		return t.cfg.MaxIdle
	}
	return elapsed
}

// measure reads the document once and counts words. A failed read skips the
// measurement for this event; the next modify/open event self-heals. A tracker
// wired without a content source never measures, so time accrual still works when
// no vault is configured.
func (t *Tracker) measure(ctx context.Context, doc string) (int64, bool) {
	if t.content == nil || t.countWords == nil {
		t.logger.Debug("no content source wired, skipping measurement", "doc", doc)
		return 0, false
	}
	text, err := t.content.ReadText(ctx, doc)
	if err != nil {
		t.logger.Debug("content read failed, skipping measurement", "doc", doc, "err", err)
		return 0, false
	}
	return t.countWords(text, t.cfg.CountComments), true
}

// baselineOnOpen measures word-count targets that track doc but have never seen its
// content, so the first view establishes a correct period baseline.
func (t *Tracker) baselineOnOpen(ctx context.Context, doc string) {
	var pending []*domain.WordCountTarget
	for _, target := range t.registry.All() {
		if v, ok := target.(*domain.WordCountTarget); ok && v.NeedsMeasurement(doc) {
			pending = append(pending, v)
		}
	}
	if len(pending) == 0 {
		return
	}
	count, measured := t.measure(ctx, doc)
	if !measured {
		return
	}
	for _, v := range pending {
		v.ApplyMeasurement(doc, count)
	}
}

func (t *Tracker) signalLocked() {
	if t.onDirty != nil {
		t.onDirty()
	}
	if t.onRefresh != nil {
		t.onRefresh()
	}
}
