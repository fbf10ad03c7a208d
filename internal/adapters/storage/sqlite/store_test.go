package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mquillen/inktally/internal/app"
	"github.com/mquillen/inktally/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "inktally.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLoadStateFreshDatabase(t *testing.T) {
	store := openTestStore(t)

	state, err := store.LoadState(context.Background())
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if len(state.Targets) != 0 {
		t.Fatalf("fresh db has %d targets", len(state.Targets))
	}
	if len(state.History) != 0 {
		t.Fatalf("fresh db has %d history buckets", len(state.History))
	}
	if !state.LastReset.IsZero() {
		t.Fatalf("fresh db last reset = %v, want zero", state.LastReset)
	}
}

func TestSaveStateRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	lastReset := time.Date(2026, time.March, 2, 4, 0, 0, 0, time.UTC)
	saved := app.State{
		Targets: []domain.TargetRecord{
			{
				ID:     "t1",
				Name:   "daily words",
				Period: domain.PeriodDaily,
				Kind:   domain.KindWordCount,
				Goal:   500,
				Path:   "novel/",
				Progress: map[string]int64{
					"novel/ch1.md": 1200,
					"novel/ch2.md": domain.Unmeasured,
				},
				PreviousProgress: map[string]int64{"novel/ch1.md": 1000},
			},
			{
				ID:         "t2",
				Name:       "weekly hours",
				Period:     domain.PeriodWeekly,
				Kind:       domain.KindTime,
				Goal:       300,
				Multiplier: 60000,
				Progress:   map[string]int64{"novel/ch1.md": 90000},
			},
		},
		LastReset: lastReset,
		History: map[domain.HistoryKey]domain.HistoryEntry{
			{Period: domain.PeriodDaily, Date: "2026-03-01", Kind: domain.KindWordCount}: {TargetSum: 500, ProgressSum: 320},
			{Period: domain.PeriodWeekly, Date: "2026-03-02", Kind: domain.KindTime}:     {TargetSum: 300, ProgressSum: 150},
		},
	}
	if err := store.SaveState(ctx, saved); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	loaded, err := store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if len(loaded.Targets) != 2 {
		t.Fatalf("loaded %d targets, want 2", len(loaded.Targets))
	}
	first := loaded.Targets[0]
	if first.ID != "t1" || first.Kind != domain.KindWordCount || first.Goal != 500 || first.Path != "novel/" {
		t.Fatalf("first target = %+v", first)
	}
	if first.Progress["novel/ch1.md"] != 1200 || first.Progress["novel/ch2.md"] != domain.Unmeasured {
		t.Fatalf("progress = %v", first.Progress)
	}
	if first.PreviousProgress["novel/ch1.md"] != 1000 {
		t.Fatalf("previous progress = %v", first.PreviousProgress)
	}
	second := loaded.Targets[1]
	if second.ID != "t2" || second.Kind != domain.KindTime || second.Multiplier != 60000 {
		t.Fatalf("second target = %+v", second)
	}
	if second.Progress["novel/ch1.md"] != 90000 {
		t.Fatalf("time progress = %v", second.Progress)
	}
	if !loaded.LastReset.Equal(lastReset) {
		t.Fatalf("last reset = %v, want %v", loaded.LastReset, lastReset)
	}
	entry := loaded.History[domain.HistoryKey{Period: domain.PeriodDaily, Date: "2026-03-01", Kind: domain.KindWordCount}]
	if entry.TargetSum != 500 || entry.ProgressSum != 320 {
		t.Fatalf("history entry = %+v", entry)
	}
	if len(loaded.History) != 2 {
		t.Fatalf("loaded %d history buckets, want 2", len(loaded.History))
	}
}

func TestSaveStateReplacesSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SaveState(ctx, app.State{
		Targets: []domain.TargetRecord{
			{ID: "old", Name: "old", Period: domain.PeriodDaily, Kind: domain.KindWordCount, Goal: 100, Progress: map[string]int64{}},
		},
		History: map[domain.HistoryKey]domain.HistoryEntry{
			{Period: domain.PeriodDaily, Date: "2026-01-01", Kind: domain.KindWordCount}: {TargetSum: 100, ProgressSum: 50},
		},
		LastReset: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	if err := store.SaveState(ctx, app.State{
		Targets: []domain.TargetRecord{
			{ID: "new", Name: "new", Period: domain.PeriodWeekly, Kind: domain.KindTime, Goal: 60, Multiplier: 60000, Progress: map[string]int64{}},
		},
		LastReset: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("second SaveState() error = %v", err)
	}

	loaded, err := store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if len(loaded.Targets) != 1 || loaded.Targets[0].ID != "new" {
		t.Fatalf("targets after replace = %+v", loaded.Targets)
	}
	if len(loaded.History) != 0 {
		t.Fatalf("history should be cleared, got %d buckets", len(loaded.History))
	}
	if loaded.LastReset.Month() != time.February {
		t.Fatalf("last reset = %v", loaded.LastReset)
	}
}

func TestSaveStatePreservesTargetOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ids := []string{"c", "a", "b"}
	state := app.State{}
	for _, id := range ids {
		state.Targets = append(state.Targets, domain.TargetRecord{
			ID: id, Name: id, Period: domain.PeriodNone, Kind: domain.KindWordCount, Goal: 1, Progress: map[string]int64{},
		})
	}
	if err := store.SaveState(ctx, state); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	loaded, err := store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	for i, id := range ids {
		if loaded.Targets[i].ID != id {
			t.Fatalf("target %d = %q, want %q", i, loaded.Targets[i].ID, id)
		}
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("   "); err == nil {
		t.Fatal("Open() should reject a blank path")
	}
}

func TestOpenInMemory(t *testing.T) {
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer store.Close()

	if err := store.SaveState(context.Background(), app.State{}); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
}

func TestLoadedRecordsRehydrate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SaveState(ctx, app.State{
		Targets: []domain.TargetRecord{
			{
				ID: "t1", Name: "draft", Period: domain.PeriodDaily, Kind: domain.KindWordCount, Goal: 500,
				Progress:         map[string]int64{"a.md": 80},
				PreviousProgress: map[string]int64{"a.md": 50},
			},
		},
	}); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	loaded, err := store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	target, err := domain.TargetFromRecord(loaded.Targets[0])
	if err != nil {
		t.Fatalf("TargetFromRecord() error = %v", err)
	}
	if got := target.TotalProgress(); got != 30 {
		t.Fatalf("displayed progress after reload = %d, want 30", got)
	}
}
