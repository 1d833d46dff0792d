// Package stage encodes the stage dependency rules: which task types may
// start given the current state of a trial's task chain. The resolver reads
// the task ledger and never mutates it; a violation is always a client-visible
// rejection, never a server fault.
package stage

import (
	"context"

	"github.com/ahrav/go-trialforge/internal/domain"
	"github.com/ahrav/go-trialforge/internal/ledger"
)

// prerequisites maps each stage to the preparation stage that must have a
// completed task on the same trial before it may start. Parse has none.
// Validate and evaluate alternatively accept externally supplied artifacts,
// either on the request or recorded by a clone; see CanStart.
var prerequisites = map[domain.TaskType]domain.TaskType{
	domain.TaskChunk:    domain.TaskParse,
	domain.TaskQA:       domain.TaskChunk,
	domain.TaskValidate: domain.TaskQA,
	domain.TaskEvaluate: domain.TaskQA,
}

// Resolver answers whether a stage may start on a trial.
type Resolver struct {
	ledger ledger.TaskLedger
}

// NewResolver creates a resolver reading from the given ledger.
func NewResolver(l ledger.TaskLedger) *Resolver {
	return &Resolver{ledger: l}
}

// Evidence describes what satisfied a stage's prerequisite.
type Evidence struct {
	// CompletedTask is the trial-internal task that satisfied the
	// dependency, when one exists.
	CompletedTask *domain.Task

	// External is true when externally supplied qa/corpus paths satisfied
	// a run-stage dependency instead of a completed qa task.
	External bool
}

// CanStart checks whether stageType may start on the trial. On success it
// returns the evidence that satisfied the dependency; on violation it returns
// an UnmetDependencyError naming the missing prerequisite.
//
// Run stages accept a completed qa task on the trial, qa/corpus paths
// supplied on the request, or the paths recorded on a cloned trial. When a
// completed qa task exists it is preferred, so evaluation runs against the
// chain the trial actually built.
func (r *Resolver) CanStart(ctx context.Context, trial *domain.Trial, stageType domain.TaskType, inputs domain.JobInputs) (Evidence, error) {
	required, ok := prerequisites[stageType]
	if !ok {
		// Parse has no prerequisite.
		return Evidence{}, nil
	}

	completed, found, err := r.ledger.LatestCompleted(ctx, trial.ID, required)
	if err != nil {
		return Evidence{}, err
	}
	if found {
		return Evidence{CompletedTask: completed}, nil
	}

	if stageType.IsRun() {
		if trial.IsClone() || (inputs.QAPath != "" && inputs.CorpusPath != "") {
			return Evidence{External: true}, nil
		}
	}

	return Evidence{}, &domain.UnmetDependencyError{Stage: stageType, Missing: required}
}

// Prerequisite returns the preparation stage required before stageType, and
// whether one exists at all.
func Prerequisite(stageType domain.TaskType) (domain.TaskType, bool) {
	req, ok := prerequisites[stageType]
	return req, ok
}
