package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trial is one attempt at building a RAG configuration within a project.
// Its status is never set directly; it is derived from the statuses of its
// constituent tasks on every read.
type Trial struct {
	// ID uniquely identifies this trial using UUID format.
	ID string `json:"id" validate:"required,uuid"`

	// ProjectID back-references the owning project for lookup.
	ProjectID string `json:"project_id" validate:"required"`

	// Name is the caller-supplied label for the trial.
	Name string `json:"name" validate:"required,min=1"`

	// PreparationID references the first parse task of the trial's
	// artifact chain. Empty until parsing starts, and permanently empty
	// for cloned trials, which never run preparation stages.
	PreparationID string `json:"preparation_id,omitempty"`

	// ConfigYAML is the trial's configuration document.
	ConfigYAML ConfigDocument `json:"config_yaml,omitempty"`

	// QAPath points at externally supplied QA data. Set only on cloned
	// trials; makes run stages eligible without a preparation chain.
	QAPath string `json:"qa_path,omitempty"`

	// CorpusPath points at externally supplied corpus data. Set only on
	// cloned trials, alongside QAPath.
	CorpusPath string `json:"corpus_path,omitempty"`

	// Status is the trial's derived lifecycle position. It is never
	// stored: readers recompute it from the task ledger on every read
	// (see DeriveTrialStatus), so it cannot drift.
	Status Status `json:"status"`

	// CreatedAt records when the trial was created.
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// NewTrial creates a trial with a generated ID.
func NewTrial(projectID, name string, config ConfigDocument) (*Trial, error) {
	trial := &Trial{
		ID:         uuid.New().String(),
		ProjectID:  projectID,
		Name:       name,
		ConfigYAML: config.Clone(),
		Status:     StatusNotStarted,
		CreatedAt:  time.Now(),
	}

	if err := validate.Struct(trial); err != nil {
		return nil, err
	}

	return trial, nil
}

// IsClone reports whether the trial was seeded from external artifacts.
// Cloned trials skip the preparation chain entirely: their run stages are
// satisfied by the supplied QA and corpus paths.
func (t *Trial) IsClone() bool {
	return t.QAPath != "" && t.CorpusPath != ""
}

// Clone returns a deep copy of the trial record.
func (t *Trial) Clone() *Trial {
	if t == nil {
		return nil
	}
	cp := *t
	cp.ConfigYAML = t.ConfigYAML.Clone()
	return &cp
}

// DeriveTrialStatus computes a trial's status from its task records.
// The computation is pure and recomputed on every read, never stored, so it
// cannot drift from the ledger:
//
//   - failed if any task in the chain is failed and no later task of the
//     same type has superseded it,
//   - in_progress if any task is non-terminal,
//   - completed if every stage that has been attempted has a completed task,
//   - not_started if no tasks exist.
//
// A failed stage is superseded by a newer non-failed task of the same type,
// leaving the failed task as a permanent audit record without pinning the
// trial to failed forever.
func DeriveTrialStatus(tasks []*Task) Status {
	if len(tasks) == 0 {
		return StatusNotStarted
	}

	// Latest task per stage type decides that stage's contribution.
	latest := make(map[TaskType]*Task, len(tasks))
	for _, task := range tasks {
		cur, ok := latest[task.Type]
		if !ok || task.CreatedAt.After(cur.CreatedAt) {
			latest[task.Type] = task
		}
	}

	anyInProgress := false
	for _, task := range latest {
		switch task.Status {
		case StatusFailed:
			return StatusFailed
		case StatusNotStarted, StatusInProgress:
			anyInProgress = true
		}
	}

	if anyInProgress {
		return StatusInProgress
	}
	return StatusCompleted
}
