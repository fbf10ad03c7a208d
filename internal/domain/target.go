package domain

import "strings"

// Unmeasured is the per-document sentinel for a tracked word-count document whose
// baseline has not been read yet. The first focus/open event replaces it with a real
// measurement that also becomes the period baseline.
const Unmeasured int64 = -1

// TargetConfig holds the configuration shared by both target kinds. It survives a
// period reset unchanged; only the progress maps and the id differ on a successor.
type TargetConfig struct {
	ID     string
	Name   string
	Period Period
	Goal   int64
	Path   string
}

// Target is one tracked goal. The two conforming types, WordCountTarget and
// TimeTarget, differ only in how raw events translate into progress; everything a
// caller needs without knowing the kind lives here.
type Target interface {
	Config() TargetConfig
	Kind() Kind

	// IsTracking reports whether a document path falls under this target's scope.
	IsTracking(doc string) bool

	// DisplayedProgress returns the period-relative progress per document.
	DisplayedProgress() map[string]int64
	// TotalProgress is the sum of displayed progress across documents.
	TotalProgress() int64

	DocumentCreated(doc string)
	DocumentDeleted(doc string)
	DocumentRenamed(oldPath, newPath string)

	// NextPeriod produces the successor target for the following period: a new id,
	// identical configuration, and progress rebaselined to zero. The receiver is not
	// mutated.
	NextPeriod(id string) Target

	// Record returns the serializable form of the target.
	Record() TargetRecord
}

func newTargetConfig(id, name string, period Period, goal int64, path string) (TargetConfig, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return TargetConfig{}, ErrInvalidID
	}
	if name == "" {
		return TargetConfig{}, ErrInvalidName
	}
	if !period.Valid() {
		return TargetConfig{}, ErrInvalidPeriod
	}
	if goal <= 0 {
		return TargetConfig{}, ErrInvalidGoal
	}
	return TargetConfig{
		ID:     id,
		Name:   name,
		Period: period,
		Goal:   goal,
		Path:   normalizeScopePath(path),
	}, nil
}

// tracks implements the shared scope rule: an empty path or the root marker covers
// the whole corpus, otherwise prefix match on the full document path.
func (c TargetConfig) tracks(doc string) bool {
	if c.Path == "" || c.Path == "/" {
		return true
	}
	return strings.HasPrefix(doc, c.Path)
}

func normalizeScopePath(path string) string {
	return strings.TrimSpace(path)
}

func cloneProgress(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for doc, n := range in {
		out[doc] = n
	}
	return out
}
