package domain

// TargetRecord is the persisted form of a target, independent of the storage format.
type TargetRecord struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Period           Period            `json:"period"`
	Kind             Kind              `json:"kind"`
	Goal             int64             `json:"goal"`
	Path             string            `json:"path"`
	Progress         map[string]int64  `json:"progress"`
	PreviousProgress map[string]int64  `json:"previousProgress,omitempty"`
	Multiplier       int64             `json:"multiplier,omitempty"`
}

// TargetFromRecord rehydrates a target from its persisted form. Unknown kinds return
// ErrUnknownKind so loaders can drop the record instead of failing the whole load.
func TargetFromRecord(rec TargetRecord) (Target, error) {
	switch rec.Kind {
	case KindWordCount:
		t, err := NewWordCountTarget(rec.ID, rec.Name, rec.Period, rec.Goal, rec.Path)
		if err != nil {
			return nil, err
		}
		if rec.Progress != nil {
			t.Progress = cloneProgress(rec.Progress)
		}
		if rec.PreviousProgress != nil {
			t.PreviousProgress = cloneProgress(rec.PreviousProgress)
		}
		return t, nil
	case KindTime:
		t, err := NewTimeTarget(rec.ID, rec.Name, rec.Period, rec.Goal, rec.Path, rec.Multiplier)
		if err != nil {
			return nil, err
		}
		if rec.Progress != nil {
			t.Progress = cloneProgress(rec.Progress)
		}
		return t, nil
	default:
		return nil, ErrUnknownKind
	}
}
