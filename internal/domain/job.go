package domain

// JobRequest is the contract handed to the external job runner when a stage
// starts. The orchestration core never interprets the work itself: the
// runner's only obligations are to execute the stage out-of-band and to
// report terminal state exactly once through the completion callbacks.
type JobRequest struct {
	// TaskID binds the job to its ledger record. Completion callbacks are
	// keyed by this id.
	TaskID string `json:"task_id" validate:"required,uuid"`

	// ProjectID identifies the owning project.
	ProjectID string `json:"project_id" validate:"required"`

	// TrialID identifies the trial being worked on.
	TrialID string `json:"trial_id" validate:"required"`

	// Type identifies the stage to execute.
	Type TaskType `json:"type" validate:"required,oneof=parse chunk qa validate evaluate"`

	// ConfigYAML is the stage configuration document.
	ConfigYAML ConfigDocument `json:"config_yaml,omitempty"`

	// Inputs carries the stage's input locations.
	Inputs JobInputs `json:"inputs"`
}

// JobInputs names the input locations a stage consumes. Which fields are set
// depends on the stage: parse reads GlobPath, run stages on cloned trials
// read QAPath/CorpusPath, chain stages read the prerequisite's save path.
type JobInputs struct {
	// GlobPath is the file pattern a parse stage reads.
	GlobPath string `json:"glob_path,omitempty"`

	// SourcePath is the completed prerequisite's save path.
	SourcePath string `json:"source_path,omitempty"`

	// QAPath is externally supplied QA data for run stages.
	QAPath string `json:"qa_path,omitempty"`

	// CorpusPath is externally supplied corpus data for run stages.
	CorpusPath string `json:"corpus_path,omitempty"`
}

// Validate checks if the job request meets all requirements.
func (r *JobRequest) Validate() error {
	return validate.Struct(r)
}

// JobResult is what a successfully executed stage reports back.
type JobResult struct {
	// SavePath is where the stage wrote its output, directory or file
	// depending on the stage type.
	SavePath string `json:"save_path" validate:"required"`
}
