package app

import (
	"io"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/mquillen/inktally/internal/domain"
)

// SchedulerConfig holds the reset cadence configuration.
type SchedulerConfig struct {
	// DailyResetHour is the local hour (0-23) at which daily periods roll over.
	DailyResetHour int
	// WeeklyResetDay is the weekday on which weekly periods additionally roll over.
	WeeklyResetDay time.Weekday
}

// Scheduler arms a single timer for the next reset instant and, on firing or on
// startup catch-up, rolls every due target's progress into history and replaces it
// with its successor. There is exactly one pending timer at a time; arming always
// cancels the previous one first.
//
// The scheduler shares the engine mutex with the tracker so a timer firing never
// interleaves with an in-flight event fan-out.
type Scheduler struct {
	mu       *sync.Mutex
	registry *Registry
	history  *domain.ProgressHistory
	idGen    IDGenerator
	clock    Clock
	newTimer TimerFactory
	cfg      SchedulerConfig
	logger   *charmLog.Logger

	timer     TimerHandle
	lastReset time.Time
	onReset   func()
}

// NewScheduler constructs a scheduler over the given registry and history. mu is
// the engine mutex; a nil mu gets a private one.
func NewScheduler(mu *sync.Mutex, registry *Registry, history *domain.ProgressHistory, idGen IDGenerator, clock Clock, newTimer TimerFactory, cfg SchedulerConfig, logger *charmLog.Logger) *Scheduler {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	if clock == nil {
		clock = time.Now
	}
	if newTimer == nil {
		newTimer = StdTimer
	}
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	return &Scheduler{
		mu:       mu,
		registry: registry,
		history:  history,
		idGen:    idGen,
		clock:    clock,
		newTimer: newTimer,
		cfg:      cfg,
		logger:   logger,
	}
}

// SetResetHook installs the signal fired after a reset pass mutates state.
func (s *Scheduler) SetResetHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReset = fn
}

// SetLastReset seeds the persisted last-reset instant before catch-up runs.
func (s *Scheduler) SetLastReset(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReset = t
}

// LastReset returns the most recent reset instant, for persistence.
func (s *Scheduler) LastReset() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReset
}

// NextResetInstant returns the first reset instant strictly after from: today's
// configured hour, rolled forward one day when that has already passed.
func (s *Scheduler) NextResetInstant(from time.Time) time.Time {
	instant := time.Date(from.Year(), from.Month(), from.Day(), s.cfg.DailyResetHour, 0, 0, 0, from.Location())
	if !instant.After(from) {
		instant = instant.AddDate(0, 0, 1)
	}
	return instant
}

// CatchUpMissedResets runs once at startup, before arming. If one or more reset
// boundaries elapsed while the application was offline, it performs a single
// reset+archive pass for the most recent missed boundary only; the pass counts as a
// weekly boundary when any missed boundary fell on the configured weekly day. Work
// is bounded regardless of how long the application was offline.
func (s *Scheduler) CatchUpMissedResets() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if s.lastReset.IsZero() {
		// Fresh state: nothing has ever been archived, start counting from now.
		s.lastReset = now
		return
	}

	next := s.NextResetInstant(s.lastReset)
	if next.After(now) {
		return
	}

	latest := s.latestBoundaryAtOrBefore(now)
	weekly := s.weeklyBoundaryMissed(next, latest)
	s.logger.Info("catching up missed reset", "boundary", latest, "weekly", weekly, "last_reset", s.lastReset)
	s.resetPassLocked(latest, weekly)
}

// Arm schedules the timer for the next reset instant, cancelling any pending timer.
func (s *Scheduler) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armLocked()
}

// Stop cancels the pending timer, if any.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	now := s.clock()
	next := s.NextResetInstant(now)
	s.logger.Debug("reset timer armed", "fires_at", next)
	s.timer = s.newTimer(next.Sub(now), s.fire)
}

// fire runs the due reset pass and re-arms. A timer firing on the configured weekly
// day resets daily and weekly targets in the same pass.
func (s *Scheduler) fire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	instant := s.clock()
	weekly := instant.Weekday() == s.cfg.WeeklyResetDay
	s.resetPassLocked(instant, weekly)
	s.armLocked()
}

// resetPassLocked replaces every due target with its successor, archiving non-zero
// period totals into history first.
func (s *Scheduler) resetPassLocked(instant time.Time, weekly bool) {
	date := domain.DateKey(instant)
	for _, target := range s.registry.All() {
		cfg := target.Config()
		switch cfg.Period {
		case domain.PeriodDaily:
		case domain.PeriodWeekly:
			if !weekly {
				continue
			}
		default:
			continue
		}

		total := target.TotalProgress()
		if total != 0 {
			s.history.Accumulate(cfg.Period, date, target.Kind(), cfg.Goal, total)
		}
		successor := target.NextPeriod(s.idGen())
		s.registry.Replace(cfg.ID, successor)
		s.logger.Info("target reset", "name", cfg.Name, "period", cfg.Period, "archived", total != 0, "total", total)
	}
	s.lastReset = instant
	if s.onReset != nil {
		s.onReset()
	}
}

// latestBoundaryAtOrBefore returns the most recent reset instant not after now.
func (s *Scheduler) latestBoundaryAtOrBefore(now time.Time) time.Time {
	instant := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.DailyResetHour, 0, 0, 0, now.Location())
	if instant.After(now) {
		instant = instant.AddDate(0, 0, -1)
	}
	return instant
}

// weeklyBoundaryMissed reports whether any boundary in [first, latest] fell on the
// weekly reset day. Spans of a week or more always include one; shorter spans are
// checked day by day, so the work stays bounded for arbitrarily long offline gaps.
func (s *Scheduler) weeklyBoundaryMissed(first, latest time.Time) bool {
	if latest.Sub(first) >= 7*24*time.Hour {
		return true
	}
	for b := first; !b.After(latest); b = b.AddDate(0, 0, 1) {
		if b.Weekday() == s.cfg.WeeklyResetDay {
			return true
		}
	}
	return false
}
