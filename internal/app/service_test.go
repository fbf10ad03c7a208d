package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mquillen/inktally/internal/domain"
)

type fakeRepo struct {
	state   State
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeRepo) LoadState(context.Context) (State, error) {
	if f.loadErr != nil {
		return State{}, f.loadErr
	}
	return f.state, nil
}

func (f *fakeRepo) SaveState(_ context.Context, state State) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.state = state
	f.saves++
	return nil
}

type fakeIndex struct {
	docs []string
	err  error
}

func (f *fakeIndex) ListDocuments(context.Context) ([]string, error) {
	return f.docs, f.err
}

func newTestService(t *testing.T, repo *fakeRepo, index *fakeIndex, clock *fakeClock, recorder *timerRecorder) *Service {
	t.Helper()
	content := &fakeContent{texts: map[string]string{}}
	var docIndex DocumentIndex
	if index != nil {
		docIndex = index
	}
	return NewService(Dependencies{
		Repo:       repo,
		Content:    content,
		Index:      docIndex,
		CountWords: fieldCounter,
		IDGen:      sequentialIDs("id"),
		Clock:      clock.Now,
		NewTimer:   recorder.factory,
	}, ServiceConfig{
		Tracker:   TrackerConfig{MaxIdle: 30 * time.Second},
		Scheduler: SchedulerConfig{DailyResetHour: 4, WeeklyResetDay: time.Monday},
	})
}

func validInput() TargetInput {
	return TargetInput{
		Name:   "morning pages",
		Kind:   string(domain.KindWordCount),
		Period: string(domain.PeriodDaily),
		Goal:   1000,
		Path:   "notes/",
	}
}

func TestCreateTargetValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, nil, newFakeClock(), &timerRecorder{})

	cases := []struct {
		name  string
		munge func(*TargetInput)
	}{
		{"empty name", func(in *TargetInput) { in.Name = "" }},
		{"unknown kind", func(in *TargetInput) { in.Kind = "streak" }},
		{"unknown period", func(in *TargetInput) { in.Period = "hourly" }},
		{"zero goal", func(in *TargetInput) { in.Goal = 0 }},
		{"negative goal", func(in *TargetInput) { in.Goal = -5 }},
		{"negative multiplier", func(in *TargetInput) { in.MultiplierMs = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.munge(&in)
			if _, err := svc.CreateTarget(context.Background(), in); err == nil {
				t.Fatal("expected validation error")
			}
			if len(svc.Targets()) != 0 {
				t.Fatal("rejected edit must not mutate state")
			}
		})
	}
}

func TestCreateTargetRejectsUnknownPath(t *testing.T) {
	repo := &fakeRepo{}
	index := &fakeIndex{docs: []string{"notes/a.md"}}
	svc := newTestService(t, repo, index, newFakeClock(), &timerRecorder{})

	in := validInput()
	in.Path = "no/such/dir/"
	if _, err := svc.CreateTarget(context.Background(), in); !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}
	if len(svc.Targets()) != 0 {
		t.Fatal("rejected edit must not mutate state")
	}
	if repo.saves != 0 {
		t.Fatalf("rejected edit must not persist, got %d saves", repo.saves)
	}
}

func TestEditTargetRejectsUnknownPath(t *testing.T) {
	index := &fakeIndex{docs: []string{"notes/a.md"}}
	svc := newTestService(t, &fakeRepo{}, index, newFakeClock(), &timerRecorder{})
	created, err := svc.CreateTarget(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}

	in := validInput()
	in.Path = "ghost/"
	if _, err := svc.EditTarget(context.Background(), created.Config().ID, in); !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}
	current := svc.Targets()[0]
	if current.Config().Path != "notes/" {
		t.Fatalf("rejected edit must leave the target unchanged, path = %q", current.Config().Path)
	}
}

func TestCreateTargetPathAcceptedWithoutIndex(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, nil, newFakeClock(), &timerRecorder{})

	in := validInput()
	in.Path = "future/"
	if _, err := svc.CreateTarget(context.Background(), in); err != nil {
		t.Fatalf("CreateTarget() without an index error = %v", err)
	}
}

func TestCreateTargetSeedsMatchingDocuments(t *testing.T) {
	repo := &fakeRepo{}
	index := &fakeIndex{docs: []string{"notes/a.md", "journal/b.md"}}
	svc := newTestService(t, repo, index, newFakeClock(), &timerRecorder{})

	target, err := svc.CreateTarget(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}

	wc := target.(*domain.WordCountTarget)
	if !wc.NeedsMeasurement("notes/a.md") {
		t.Fatal("matching document should be seeded")
	}
	if _, ok := wc.Progress["journal/b.md"]; ok {
		t.Fatal("non-matching document must not be seeded")
	}
	// Explicit edits flush immediately, no debounce wait.
	if repo.saves != 1 {
		t.Fatalf("expected immediate flush, got %d saves", repo.saves)
	}
	if len(repo.state.Targets) != 1 || repo.state.Targets[0].ID != target.Config().ID {
		t.Fatalf("persisted state mismatch: %+v", repo.state.Targets)
	}
}

func TestCreateTimeTarget(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, nil, newFakeClock(), &timerRecorder{})
	target, err := svc.CreateTarget(context.Background(), TargetInput{
		Name:         "deep work",
		Kind:         string(domain.KindTime),
		Period:       string(domain.PeriodWeekly),
		Goal:         5 * 60 * 60 * 1000,
		MultiplierMs: 60000,
	})
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}
	ts := target.(*domain.TimeTarget)
	if ts.Multiplier != 60000 {
		t.Fatalf("multiplier = %d, want 60000", ts.Multiplier)
	}
}

func TestEditTimeTargetKeepsMultiplierWhenUnspecified(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, nil, newFakeClock(), &timerRecorder{})
	in := TargetInput{
		Name:         "deep work",
		Kind:         string(domain.KindTime),
		Period:       string(domain.PeriodWeekly),
		Goal:         5 * 60 * 60 * 1000,
		MultiplierMs: 1000,
	}
	created, err := svc.CreateTarget(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}

	in.Name = "deeper work"
	in.MultiplierMs = 0
	updated, err := svc.EditTarget(context.Background(), created.Config().ID, in)
	if err != nil {
		t.Fatalf("EditTarget() error = %v", err)
	}
	if got := updated.(*domain.TimeTarget).Multiplier; got != 1000 {
		t.Fatalf("edit without multiplier reset it to %d, want 1000", got)
	}

	in.MultiplierMs = 5000
	updated, err = svc.EditTarget(context.Background(), created.Config().ID, in)
	if err != nil {
		t.Fatalf("EditTarget() error = %v", err)
	}
	if got := updated.(*domain.TimeTarget).Multiplier; got != 5000 {
		t.Fatalf("explicit multiplier edit = %d, want 5000", got)
	}
}

func TestEditTargetKeepsProgressInPlace(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, nil, newFakeClock(), &timerRecorder{})
	created, err := svc.CreateTarget(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}
	created.(*domain.WordCountTarget).ApplyMeasurement("notes/a.md", 80)

	in := validInput()
	in.Name = "evening pages"
	in.Goal = 2000
	updated, err := svc.EditTarget(context.Background(), created.Config().ID, in)
	if err != nil {
		t.Fatalf("EditTarget() error = %v", err)
	}

	if updated.Config().ID != created.Config().ID {
		t.Fatal("edit must not change the id")
	}
	if updated.Config().Name != "evening pages" || updated.Config().Goal != 2000 {
		t.Fatalf("edit not applied: %#v", updated.Config())
	}
	if updated.(*domain.WordCountTarget).Progress["notes/a.md"] != 80 {
		t.Fatal("edit without rescope must keep progress")
	}
	if len(svc.Targets()) != 1 {
		t.Fatalf("edit must replace in place, got %d targets", len(svc.Targets()))
	}
}

func TestEditTargetPathChangeResetsProgress(t *testing.T) {
	index := &fakeIndex{docs: []string{"notes/a.md", "drafts/x.md"}}
	svc := newTestService(t, &fakeRepo{}, index, newFakeClock(), &timerRecorder{})
	created, err := svc.CreateTarget(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}
	created.(*domain.WordCountTarget).ApplyMeasurement("notes/a.md", 80)

	in := validInput()
	in.Path = "drafts/"
	updated, err := svc.EditTarget(context.Background(), created.Config().ID, in)
	if err != nil {
		t.Fatalf("EditTarget() error = %v", err)
	}

	wc := updated.(*domain.WordCountTarget)
	if _, ok := wc.Progress["notes/a.md"]; ok {
		t.Fatal("path change must drop old progress")
	}
	if !wc.NeedsMeasurement("drafts/x.md") {
		t.Fatal("path change should reseed the new scope")
	}
}

func TestEditTargetNotFound(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, nil, newFakeClock(), &timerRecorder{})
	if _, err := svc.EditTarget(context.Background(), "ghost", validInput()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTarget(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo, nil, newFakeClock(), &timerRecorder{})
	created, err := svc.CreateTarget(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}

	if err := svc.DeleteTarget(context.Background(), created.Config().ID); err != nil {
		t.Fatalf("DeleteTarget() error = %v", err)
	}
	if len(svc.Targets()) != 0 {
		t.Fatal("target not removed")
	}
	if len(repo.state.Targets) != 0 {
		t.Fatal("delete not persisted")
	}
	if err := svc.DeleteTarget(context.Background(), created.Config().ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStartupDropsUnknownKindRecords(t *testing.T) {
	clock := newFakeClock()
	good, err := domain.NewWordCountTarget("t1", "keep", domain.PeriodDaily, 1000, "")
	if err != nil {
		t.Fatalf("NewWordCountTarget() error = %v", err)
	}
	repo := &fakeRepo{state: State{
		Targets: []domain.TargetRecord{
			good.Record(),
			{ID: "t2", Name: "old", Period: domain.PeriodDaily, Kind: domain.Kind("streak"), Goal: 5},
		},
		LastReset: clock.now.Add(-time.Hour),
		History: map[domain.HistoryKey]domain.HistoryEntry{
			{Period: domain.PeriodDaily, Date: "2026-03-01", Kind: domain.KindWordCount}: {TargetSum: 1000, ProgressSum: 400},
		},
	}}
	recorder := &timerRecorder{}
	svc := newTestService(t, repo, nil, clock, recorder)

	if err := svc.Startup(context.Background()); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}

	targets := svc.Targets()
	if len(targets) != 1 || targets[0].Config().ID != "t1" {
		t.Fatalf("unknown-kind record should be dropped: %v", targets)
	}
	days := svc.YearProgress(2026, domain.PeriodDaily, domain.KindWordCount)
	if days[59].Progress != 400 { // 2026-03-01 is day 60
		t.Fatalf("history not restored: %+v", days[59])
	}
	if recorder.last() == nil {
		t.Fatal("startup should arm the reset timer")
	}
}

func TestStartupRunsCatchUpBeforeArming(t *testing.T) {
	clock := newFakeClock() // 2026-03-02 09:00
	stale, err := domain.NewWordCountTarget("t1", "stale", domain.PeriodDaily, 1000, "")
	if err != nil {
		t.Fatalf("NewWordCountTarget() error = %v", err)
	}
	stale.ApplyMeasurement("a.md", 0)
	stale.ApplyMeasurement("a.md", 250)
	repo := &fakeRepo{state: State{
		Targets:   []domain.TargetRecord{stale.Record()},
		LastReset: time.Date(2026, 2, 27, 5, 0, 0, 0, time.UTC),
	}}
	recorder := &timerRecorder{}
	svc := newTestService(t, repo, nil, clock, recorder)

	if err := svc.Startup(context.Background()); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}

	if _, err := svc.DisplayedTotalProgress("t1"); !errors.Is(err, ErrNotFound) {
		t.Fatal("stale target should have been replaced by catch-up")
	}
	days := svc.YearProgress(2026, domain.PeriodDaily, domain.KindWordCount)
	if days[60].Progress != 250 { // archived at the most recent missed boundary, 2026-03-02
		t.Fatalf("catch-up did not archive: %+v", days[60])
	}
}

func TestStartupLoadErrorPropagates(t *testing.T) {
	wantErr := errors.New("corrupt")
	svc := newTestService(t, &fakeRepo{loadErr: wantErr}, nil, newFakeClock(), &timerRecorder{})
	if err := svc.Startup(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("Startup() error = %v, want %v", err, wantErr)
	}
}

func TestShutdownStopsTimerAndFlushes(t *testing.T) {
	repo := &fakeRepo{}
	recorder := &timerRecorder{}
	svc := newTestService(t, repo, nil, newFakeClock(), recorder)

	if err := svc.Startup(context.Background()); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	if err := svc.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if repo.saves == 0 {
		t.Fatal("shutdown must flush state")
	}
	if !recorder.timers[0].stopped {
		t.Fatal("shutdown must cancel the reset timer")
	}
	if !repo.state.LastReset.Equal(svc.scheduler.LastReset()) {
		t.Fatalf("persisted lastReset mismatch: %v", repo.state.LastReset)
	}
}

func TestDisplayedTotalProgress(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, nil, newFakeClock(), &timerRecorder{})
	created, err := svc.CreateTarget(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}
	wc := created.(*domain.WordCountTarget)
	wc.ApplyMeasurement("notes/a.md", 50)
	wc.ApplyMeasurement("notes/a.md", 80)

	got, err := svc.DisplayedTotalProgress(created.Config().ID)
	if err != nil {
		t.Fatalf("DisplayedTotalProgress() error = %v", err)
	}
	if got != 30 {
		t.Fatalf("total = %d, want 30", got)
	}
	if _, err := svc.DisplayedTotalProgress("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
