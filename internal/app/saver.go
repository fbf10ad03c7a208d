package app

import (
	"context"
	"io"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
)

// Saver debounces persistence behind a dirty flag and a single timer. Schedule
// coalesces bursts of mutations into one write; Flush forces a write-now on
// shutdown and explicit edits. Writes are fire-and-forget: a lost write is repaired
// by the next one, so callers never wait on persistence to report success.
type Saver struct {
	mu       sync.Mutex
	delay    time.Duration
	newTimer TimerFactory
	save     func(ctx context.Context) error
	logger   *charmLog.Logger

	dirty bool
	timer TimerHandle
}

// NewSaver constructs a saver that invokes save after delay once Schedule is called.
func NewSaver(delay time.Duration, newTimer TimerFactory, save func(ctx context.Context) error, logger *charmLog.Logger) *Saver {
	if newTimer == nil {
		newTimer = StdTimer
	}
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	return &Saver{
		delay:    delay,
		newTimer: newTimer,
		save:     save,
		logger:   logger,
	}
}

// Schedule marks state dirty and arms the flush timer if one is not already
// pending. Safe to call from any engine code path.
func (s *Saver) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	if s.timer != nil {
		return
	}
	s.timer = s.newTimer(s.delay, func() {
		if err := s.Flush(context.Background()); err != nil {
			s.logger.Warn("debounced save failed", "err", err)
		}
	})
}

// Flush writes immediately if state is dirty and cancels any pending timer. The
// save callback runs without the saver lock held, so it may take the engine lock to
// snapshot state.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	s.dirty = false
	s.mu.Unlock()

	return s.save(ctx)
}
