// Package sqlite persists engine state snapshots in a local sqlite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mquillen/inktally/internal/app"
	"github.com/mquillen/inktally/internal/domain"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

const lastResetKey = "last_reset"

// Store implements app.Repository on a sqlite database. State is written as one
// snapshot per save: targets, history buckets, and the last-reset instant replace
// the previous snapshot inside a single transaction.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenInMemory opens a throwaway in-memory database.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS targets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			period TEXT NOT NULL,
			kind TEXT NOT NULL,
			goal INTEGER NOT NULL,
			path TEXT NOT NULL DEFAULT '',
			multiplier INTEGER NOT NULL DEFAULT 0,
			progress_json TEXT NOT NULL DEFAULT '{}',
			previous_json TEXT NOT NULL DEFAULT '{}',
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS history (
			period TEXT NOT NULL,
			date TEXT NOT NULL,
			kind TEXT NOT NULL,
			target_sum INTEGER NOT NULL,
			progress_sum INTEGER NOT NULL,
			PRIMARY KEY (period, date, kind)
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_period_kind_date ON history(period, kind, date);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// LoadState reads the full snapshot. A fresh database yields an empty state with a
// zero LastReset.
func (s *Store) LoadState(ctx context.Context) (app.State, error) {
	state := app.State{
		History: map[domain.HistoryKey]domain.HistoryEntry{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, period, kind, goal, path, multiplier, progress_json, previous_json
		FROM targets
		ORDER BY position ASC
	`)
	if err != nil {
		return app.State{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec         domain.TargetRecord
			period      string
			kind        string
			progressRaw string
			previousRaw string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &period, &kind, &rec.Goal, &rec.Path, &rec.Multiplier, &progressRaw, &previousRaw); err != nil {
			return app.State{}, err
		}
		rec.Period = domain.Period(period)
		rec.Kind = domain.Kind(kind)
		if rec.Progress, err = decodeProgress(progressRaw); err != nil {
			return app.State{}, fmt.Errorf("decode targets.progress_json: %w", err)
		}
		if rec.PreviousProgress, err = decodeProgress(previousRaw); err != nil {
			return app.State{}, fmt.Errorf("decode targets.previous_json: %w", err)
		}
		state.Targets = append(state.Targets, rec)
	}
	if err := rows.Err(); err != nil {
		return app.State{}, err
	}

	histRows, err := s.db.QueryContext(ctx, `
		SELECT period, date, kind, target_sum, progress_sum
		FROM history
	`)
	if err != nil {
		return app.State{}, err
	}
	defer histRows.Close()

	for histRows.Next() {
		var (
			key   domain.HistoryKey
			entry domain.HistoryEntry
		)
		var period, kind string
		if err := histRows.Scan(&period, &key.Date, &kind, &entry.TargetSum, &entry.ProgressSum); err != nil {
			return app.State{}, err
		}
		key.Period = domain.Period(period)
		key.Kind = domain.Kind(kind)
		state.History[key] = entry
	}
	if err := histRows.Err(); err != nil {
		return app.State{}, err
	}

	var lastResetRaw string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, lastResetKey).Scan(&lastResetRaw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh database: leave LastReset zero.
	case err != nil:
		return app.State{}, err
	default:
		state.LastReset = parseTS(lastResetRaw)
	}

	return state, nil
}

// SaveState replaces the stored snapshot with state, atomically.
func (s *Store) SaveState(ctx context.Context, state app.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM targets`); err != nil {
		return err
	}
	for position, rec := range state.Targets {
		var progressJSON, previousJSON string
		if progressJSON, err = encodeProgress(rec.Progress); err != nil {
			return fmt.Errorf("encode targets.progress_json: %w", err)
		}
		if previousJSON, err = encodeProgress(rec.PreviousProgress); err != nil {
			return fmt.Errorf("encode targets.previous_json: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO targets(id, name, period, kind, goal, path, multiplier, progress_json, previous_json, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.ID,
			rec.Name,
			string(rec.Period),
			string(rec.Kind),
			rec.Goal,
			rec.Path,
			rec.Multiplier,
			progressJSON,
			previousJSON,
			position,
		)
		if err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return err
	}
	for key, entry := range state.History {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO history(period, date, kind, target_sum, progress_sum)
			VALUES (?, ?, ?, ?, ?)
		`, string(key.Period), key.Date, string(key.Kind), entry.TargetSum, entry.ProgressSum)
		if err != nil {
			return err
		}
	}

	if state.LastReset.IsZero() {
		if _, err = tx.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, lastResetKey); err != nil {
			return err
		}
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO meta(key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, lastResetKey, ts(state.LastReset))
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

func encodeProgress(progress map[string]int64) (string, error) {
	if progress == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(progress)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeProgress(raw string) (map[string]int64, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	out := map[string]int64{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(v string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
