package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/mquillen/inktally/internal/domain"
)

// DocumentIndex enumerates the documents of the corpus, used to seed newly created
// or re-scoped word-count targets so first-open baselining can find them.
type DocumentIndex interface {
	ListDocuments(ctx context.Context) ([]string, error)
}

// ServiceConfig holds configuration for the engine service.
type ServiceConfig struct {
	Tracker      TrackerConfig
	Scheduler    SchedulerConfig
	SaveDebounce time.Duration
}

// Dependencies bundles the collaborators the service is wired with.
type Dependencies struct {
	Repo       Repository
	Content    ContentSource
	Index      DocumentIndex
	CountWords WordCounter
	IDGen      IDGenerator
	Clock      Clock
	NewTimer   TimerFactory
	Logger     *charmLog.Logger
}

// TargetInput is the edit-boundary shape for creating or editing a target.
// Validation happens here, synchronously, before any state mutates.
type TargetInput struct {
	Name   string `validate:"required"`
	Kind   string `validate:"required,target_kind"`
	Period string `validate:"required,target_period"`
	// Goal is in words for word-count targets and milliseconds for time targets.
	Goal int64  `validate:"required,gt=0"`
	Path string
	// MultiplierMs applies to time targets only. Zero means minutes on create and
	// keeps the existing multiplier on edit.
	MultiplierMs int64 `validate:"gte=0"`
}

// Service is the host-facing surface of the engine: target CRUD, progress queries,
// and the startup/shutdown lifecycle. It owns the engine mutex shared by the
// tracker and the scheduler.
type Service struct {
	mu        sync.Mutex
	registry  *Registry
	history   *domain.ProgressHistory
	tracker   *Tracker
	scheduler *Scheduler
	saver     *Saver
	repo      Repository
	index     DocumentIndex
	validate  *validator.Validate
	idGen     IDGenerator
	logger    *charmLog.Logger
}

// NewService wires the engine together.
func NewService(deps Dependencies, cfg ServiceConfig) *Service {
	if deps.IDGen == nil {
		deps.IDGen = func() string { return "" }
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = charmLog.New(io.Discard)
	}
	if cfg.SaveDebounce <= 0 {
		cfg.SaveDebounce = 2 * time.Second
	}

	s := &Service{
		registry: NewRegistry(),
		history:  domain.NewProgressHistory(),
		repo:     deps.Repo,
		index:    deps.Index,
		validate: newTargetValidator(),
		idGen:    deps.IDGen,
		logger:   deps.Logger,
	}
	s.tracker = NewTracker(&s.mu, s.registry, deps.Content, deps.CountWords, deps.Clock, cfg.Tracker, deps.Logger)
	s.scheduler = NewScheduler(&s.mu, s.registry, s.history, deps.IDGen, deps.Clock, deps.NewTimer, cfg.Scheduler, deps.Logger)
	s.saver = NewSaver(cfg.SaveDebounce, deps.NewTimer, s.persist, deps.Logger)
	s.tracker.SetHooks(s.saver.Schedule, nil)
	s.scheduler.SetResetHook(s.saver.Schedule)
	return s
}

// newTargetValidator registers the enum validators used by TargetInput.
func newTargetValidator() *validator.Validate {
	v := validator.New()
	mustRegister(v, "target_kind", func(fl validator.FieldLevel) bool {
		return domain.Kind(fl.Field().String()).Valid()
	})
	mustRegister(v, "target_period", func(fl validator.FieldLevel) bool {
		return domain.Period(fl.Field().String()).Valid()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

// Tracker returns the event-handling surface the host feeds content events into.
func (s *Service) Tracker() *Tracker { return s.tracker }

// Startup loads persisted state, runs missed-reset catch-up, and arms the reset
// timer. Target records with an unrecognized kind are dropped with a warning
// rather than failing the load.
func (s *Service) Startup(ctx context.Context) error {
	state, err := s.repo.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	s.mu.Lock()
	for _, rec := range state.Targets {
		target, err := domain.TargetFromRecord(rec)
		if err != nil {
			s.logger.Warn("dropping unloadable target record", "id", rec.ID, "kind", rec.Kind, "err", err)
			continue
		}
		s.registry.Add(target)
	}
	for key, entry := range state.History {
		s.history.Accumulate(key.Period, key.Date, key.Kind, entry.TargetSum, entry.ProgressSum)
	}
	s.scheduler.lastReset = state.LastReset
	s.mu.Unlock()

	s.logger.Info("state loaded", "targets", len(state.Targets), "history_buckets", len(state.History), "last_reset", state.LastReset)
	s.scheduler.CatchUpMissedResets()
	s.scheduler.Arm()
	return nil
}

// Shutdown cancels the reset timer and flushes any pending save.
func (s *Service) Shutdown(ctx context.Context) error {
	s.scheduler.Stop()
	s.saver.Schedule()
	if err := s.saver.Flush(ctx); err != nil {
		return fmt.Errorf("flush state: %w", err)
	}
	return nil
}

// CreateTarget validates the input, builds the target, seeds matching documents,
// and registers it. The write is flushed immediately: explicit edits do not wait
// out the debounce.
func (s *Service) CreateTarget(ctx context.Context, in TargetInput) (domain.Target, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("validate target: %w", err)
	}
	if err := s.validateScope(ctx, in.Path); err != nil {
		return nil, err
	}
	target, err := s.buildTarget(s.idGen(), in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.registry.Add(target)
	s.mu.Unlock()

	s.seedTarget(ctx, target)
	s.logger.Info("target created", "id", target.Config().ID, "name", target.Config().Name, "kind", target.Kind(), "period", target.Config().Period)
	return target, s.flushEdit(ctx)
}

// EditTarget applies a new configuration to an existing target. Name, goal, period,
// and multiplier changes keep accumulated progress; a path or kind change forces a
// full progress re-derivation from scratch.
func (s *Service) EditTarget(ctx context.Context, id string, in TargetInput) (domain.Target, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("validate target: %w", err)
	}
	if err := s.validateScope(ctx, in.Path); err != nil {
		return nil, err
	}

	s.mu.Lock()
	current, ok := s.registry.Find(id)
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	rec := current.Record()
	rescope := rec.Kind != domain.Kind(in.Kind) || rec.Path != in.Path
	rec.Name = in.Name
	rec.Kind = domain.Kind(in.Kind)
	rec.Period = domain.Period(in.Period)
	rec.Goal = in.Goal
	rec.Path = in.Path
	if in.MultiplierMs > 0 {
		rec.Multiplier = in.MultiplierMs
	}
	if rescope {
		rec.Progress = nil
		rec.PreviousProgress = nil
	}

	updated, err := domain.TargetFromRecord(rec)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.registry.Replace(id, updated)
	s.mu.Unlock()

	if rescope {
		s.seedTarget(ctx, updated)
	}
	s.logger.Info("target edited", "id", id, "rescoped", rescope)
	return updated, s.flushEdit(ctx)
}

// DeleteTarget removes a target.
func (s *Service) DeleteTarget(ctx context.Context, id string) error {
	s.mu.Lock()
	ok := s.registry.Remove(id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.logger.Info("target deleted", "id", id)
	return s.flushEdit(ctx)
}

// Targets returns the live targets in registry order.
func (s *Service) Targets() []domain.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.All()
}

// DisplayedTotalProgress returns a target's period-relative total.
func (s *Service) DisplayedTotalProgress(id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.registry.Find(id)
	if !ok {
		return 0, ErrNotFound
	}
	return target.TotalProgress(), nil
}

// YearProgress returns the year view for a period and kind.
func (s *Service) YearProgress(year int, period domain.Period, kind domain.Kind) []domain.DayProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.YearProgress(year, period, kind)
}

// validateScope rejects a scope path that matches no corpus document, so a typo'd
// path fails at the edit boundary instead of silently tracking nothing. Without a
// wired index there is no corpus to consult and any path is accepted.
func (s *Service) validateScope(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" || s.index == nil {
		return nil
	}
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("enumerate documents: %w", err)
	}
	for _, doc := range docs {
		if strings.HasPrefix(doc, path) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrPathNotFound, path)
}

// buildTarget constructs a target of the requested kind.
func (s *Service) buildTarget(id string, in TargetInput) (domain.Target, error) {
	switch domain.Kind(in.Kind) {
	case domain.KindWordCount:
		return domain.NewWordCountTarget(id, in.Name, domain.Period(in.Period), in.Goal, in.Path)
	case domain.KindTime:
		return domain.NewTimeTarget(id, in.Name, domain.Period(in.Period), in.Goal, in.Path, in.MultiplierMs)
	default:
		return nil, domain.ErrUnknownKind
	}
}

// seedTarget marks corpus documents matching the target's scope as known but
// unmeasured. Best effort: without an index the first modify/open event still
// brings documents in.
func (s *Service) seedTarget(ctx context.Context, target domain.Target) {
	wc, ok := target.(*domain.WordCountTarget)
	if !ok || s.index == nil {
		return
	}
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		s.logger.Warn("document enumeration failed, skipping seed", "err", err)
		return
	}
	s.mu.Lock()
	for _, doc := range docs {
		wc.SeedDocument(doc)
	}
	s.mu.Unlock()
}

// flushEdit forces the state write that explicit user edits require.
func (s *Service) flushEdit(ctx context.Context) error {
	s.saver.Schedule()
	if err := s.saver.Flush(ctx); err != nil {
		return fmt.Errorf("flush state: %w", err)
	}
	return nil
}

// persist snapshots the engine state under the engine lock and writes it out.
func (s *Service) persist(ctx context.Context) error {
	s.mu.Lock()
	targets := s.registry.All()
	records := make([]domain.TargetRecord, 0, len(targets))
	for _, target := range targets {
		records = append(records, target.Record())
	}
	state := State{
		Targets:   records,
		LastReset: s.scheduler.lastReset,
		History:   s.history.Entries(),
	}
	s.mu.Unlock()

	if err := s.repo.SaveState(ctx, state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
