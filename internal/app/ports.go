package app

import (
	"context"
	"time"

	"github.com/mquillen/inktally/internal/domain"
)

// ContentSource supplies document text on demand. Reads may fail transiently when a
// document vanishes mid-event; callers skip the affected update and recover on the
// next event for that document.
type ContentSource interface {
	ReadText(ctx context.Context, doc string) (string, error)
}

// WordCounter is the pure word-count function consumed by the tracker.
type WordCounter func(text string, includeComments bool) int64

// State is the full persisted engine state.
type State struct {
	Targets   []domain.TargetRecord
	LastReset time.Time
	History   map[domain.HistoryKey]domain.HistoryEntry
}

// Repository persists engine state as one snapshot.
type Repository interface {
	LoadState(ctx context.Context) (State, error)
	SaveState(ctx context.Context, state State) error
}

// IDGenerator returns unique identifiers for new targets.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// TimerHandle is a cancellable pending timer.
type TimerHandle interface {
	Stop() bool
}

// TimerFactory arms a one-shot timer. Injectable so reset scheduling is testable
// without real sleeps.
type TimerFactory func(d time.Duration, fn func()) TimerHandle

// StdTimer arms a real time.AfterFunc timer.
func StdTimer(d time.Duration, fn func()) TimerHandle {
	return time.AfterFunc(d, fn)
}
