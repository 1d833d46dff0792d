// Package service exposes the orchestration core as a single validated
// facade. Transport layers (HTTP handlers, RPC servers) translate their
// wire formats into the request types here; the service owns input
// validation, manager coordination, and the error taxonomy surfaced to
// clients.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-trialforge/internal/coordinator"
	"github.com/ahrav/go-trialforge/internal/domain"
	"github.com/ahrav/go-trialforge/internal/ledger"
	"github.com/ahrav/go-trialforge/internal/project"
	"github.com/ahrav/go-trialforge/internal/run"
	"github.com/ahrav/go-trialforge/internal/session"
	"github.com/ahrav/go-trialforge/internal/trial"
)

// validate is the package-level validator instance.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Service is the orchestration facade. All fields are required.
type Service struct {
	projects *project.Manager
	trials   *trial.Manager
	runs     *run.Manager
	sessions *session.Registry
	ledger   ledger.TaskLedger
	coord    *coordinator.Coordinator
	logger   *slog.Logger
}

// New creates the service facade over the given managers.
func New(
	projects *project.Manager,
	trials *trial.Manager,
	runs *run.Manager,
	sessions *session.Registry,
	l ledger.TaskLedger,
	coord *coordinator.Coordinator,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		projects: projects,
		trials:   trials,
		runs:     runs,
		sessions: sessions,
		ledger:   l,
		coord:    coord,
		logger:   logger,
	}
}

// CreateProjectRequest creates a project with a unique name.
type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description,omitempty" validate:"max=512"`
}

// CreateProject registers a new project.
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (*domain.Project, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid create project request: %w", err)
	}
	return s.projects.Create(ctx, req.Name, req.Description)
}

// ProjectPage is a paginated project listing.
type ProjectPage struct {
	Total int               `json:"total"`
	Data  []*domain.Project `json:"data"`
}

// ListProjects returns a page of projects. Zero page/limit select the
// defaults; status defaults to active.
func (s *Service) ListProjects(ctx context.Context, page, limit int, status string) (*ProjectPage, error) {
	total, data, err := s.projects.List(ctx, project.ListFilter{Page: page, Limit: limit, Status: domain.ProjectStatus(status)})
	if err != nil {
		return nil, err
	}
	return &ProjectPage{Total: total, Data: data}, nil
}

// ArchiveProject marks the project archived. Idempotent.
func (s *Service) ArchiveProject(ctx context.Context, projectID string) error {
	return s.projects.Archive(ctx, projectID)
}

// CreateTrialRequest creates a trial and its implicit first parse stage.
type CreateTrialRequest struct {
	ProjectID string                `json:"project_id" validate:"required"`
	Name      string                `json:"name" validate:"required,max=128"`
	GlobPath  string                `json:"glob_path" validate:"required"`
	Config    domain.ConfigDocument `json:"config,omitempty"`
}

// CreateTrial registers a trial and starts its first parse over the given
// glob pattern. The returned task is the parse stage as recorded, before
// dispatch; callers poll it for progress.
func (s *Service) CreateTrial(ctx context.Context, req CreateTrialRequest) (*domain.Trial, *domain.Task, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, nil, fmt.Errorf("invalid create trial request: %w", err)
	}
	if !doublestar.ValidatePattern(req.GlobPath) {
		return nil, nil, fmt.Errorf("invalid glob pattern %q", req.GlobPath)
	}
	if _, err := s.projects.Get(ctx, req.ProjectID); err != nil {
		return nil, nil, err
	}

	t, err := s.trials.Create(ctx, req.ProjectID, req.Name, req.Config)
	if err != nil {
		return nil, nil, err
	}

	task, err := s.coord.Enqueue(ctx, coordinator.StartInput{
		Type:   domain.TaskParse,
		Trial:  t,
		Name:   req.Name,
		Config: req.Config,
		Inputs: domain.JobInputs{GlobPath: req.GlobPath},
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.trials.SetPreparation(ctx, t.ID, task.ID); err != nil {
		return nil, nil, err
	}

	if _, err := s.coord.Activate(ctx, task.ID); err != nil {
		return nil, nil, err
	}

	s.logger.Info("trial created",
		"project_id", req.ProjectID, "trial_id", t.ID, "parse_task_id", task.ID)
	return t, task, nil
}

// TrialPage is a paginated trial listing with derived statuses.
type TrialPage struct {
	Total int             `json:"total"`
	Data  []*domain.Trial `json:"data"`
}

// ListTrials returns a page of the project's trials, statuses derived from
// the ledger at read time.
func (s *Service) ListTrials(ctx context.Context, projectID string, page, limit int) (*TrialPage, error) {
	total, data, err := s.trials.List(ctx, projectID, page, limit)
	if err != nil {
		return nil, err
	}
	return &TrialPage{Total: total, Data: data}, nil
}

// GetTrial returns the trial with its status derived from the ledger.
func (s *Service) GetTrial(ctx context.Context, trialID string) (*domain.Trial, error) {
	return s.trials.Get(ctx, trialID)
}

// StartStageRequest starts a preparation stage on a trial.
type StartStageRequest struct {
	TrialID string                `json:"trial_id" validate:"required"`
	Name    string                `json:"name" validate:"max=128"`
	Config  domain.ConfigDocument `json:"config,omitempty"`
}

// StartParse starts a fresh parse stage. The previous parse must be
// terminal; a running one yields a conflict error.
func (s *Service) StartParse(ctx context.Context, req StartStageRequest, globPath string) (*domain.Task, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid start parse request: %w", err)
	}
	if globPath != "" && !doublestar.ValidatePattern(globPath) {
		return nil, fmt.Errorf("invalid glob pattern %q", globPath)
	}
	return s.startStage(ctx, req, domain.TaskParse, domain.JobInputs{GlobPath: globPath})
}

// StartChunk starts the chunk stage; requires a completed parse.
func (s *Service) StartChunk(ctx context.Context, req StartStageRequest) (*domain.Task, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid start chunk request: %w", err)
	}
	return s.startStage(ctx, req, domain.TaskChunk, domain.JobInputs{})
}

// LLMConfig names the model a QA generation stage uses.
type LLMConfig struct {
	LLMName   string         `json:"llm_name" validate:"required"`
	LLMParams map[string]any `json:"llm_params,omitempty"`
}

// QARequest starts QA dataset generation; requires a completed chunk.
type QARequest struct {
	TrialID   string    `json:"trial_id" validate:"required"`
	Name      string    `json:"name" validate:"max=128"`
	QANum     int       `json:"qa_num" validate:"required,min=1"`
	Preset    string    `json:"preset" validate:"required,oneof=basic simple advanced"`
	LLMConfig LLMConfig `json:"llm_config" validate:"required"`
}

// StartQA starts the QA generation stage. The request parameters become the
// task's configuration document.
func (s *Service) StartQA(ctx context.Context, req QARequest) (*domain.Task, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid qa request: %w", err)
	}

	config := domain.ConfigDocument{
		"qa_num": req.QANum,
		"preset": req.Preset,
		"llm_config": map[string]any{
			"llm_name":   req.LLMConfig.LLMName,
			"llm_params": req.LLMConfig.LLMParams,
		},
	}
	return s.startStage(ctx, StartStageRequest{TrialID: req.TrialID, Name: req.Name, Config: config}, domain.TaskQA, domain.JobInputs{})
}

func (s *Service) startStage(ctx context.Context, req StartStageRequest, stage domain.TaskType, inputs domain.JobInputs) (*domain.Task, error) {
	t, err := s.trials.Get(ctx, req.TrialID)
	if err != nil {
		return nil, err
	}
	return s.coord.Start(ctx, coordinator.StartInput{
		Type:   stage,
		Trial:  t,
		Name:   req.Name,
		Config: req.Config,
		Inputs: inputs,
	})
}

// CloneTrialRequest seeds a new trial from externally supplied artifacts.
type CloneTrialRequest struct {
	SourceTrialID string                `json:"source_trial_id" validate:"required"`
	Config        domain.ConfigDocument `json:"config,omitempty"`
	QAPath        string                `json:"qa_path" validate:"required"`
	CorpusPath    string                `json:"corpus_path" validate:"required"`
}

// CloneTrial creates a trial whose run stages are immediately eligible,
// backed by the supplied QA and corpus paths instead of a preparation chain.
func (s *Service) CloneTrial(ctx context.Context, req CloneTrialRequest) (*domain.Trial, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid clone trial request: %w", err)
	}
	source, err := s.trials.Get(ctx, req.SourceTrialID)
	if err != nil {
		return nil, err
	}
	return s.trials.Clone(ctx, source, req.Config, req.QAPath, req.CorpusPath)
}

// GetTrialConfig returns the trial's default configuration version, or the
// newest when no default is set.
func (s *Service) GetTrialConfig(ctx context.Context, trialID string) (*domain.TrialConfig, error) {
	return s.trials.GetConfig(ctx, trialID)
}

// SetConfigRequest appends a new configuration version to a trial.
type SetConfigRequest struct {
	TrialID     string                `json:"trial_id" validate:"required"`
	Name        string                `json:"name" validate:"max=128"`
	Config      domain.ConfigDocument `json:"config" validate:"required"`
	Metadata    map[string]string     `json:"metadata,omitempty"`
	MakeDefault bool                  `json:"make_default"`
}

// SetTrialConfig records a new configuration version. Versions are
// append-only; existing versions are never mutated.
func (s *Service) SetTrialConfig(ctx context.Context, req SetConfigRequest) (*domain.TrialConfig, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid set config request: %w", err)
	}
	t, err := s.trials.Get(ctx, req.TrialID)
	if err != nil {
		return nil, err
	}
	return s.trials.SetConfig(ctx, t.ProjectID, t.ID, req.Name, req.Config, req.Metadata, req.MakeDefault)
}

// ListTrialConfigs returns every configuration version of the trial,
// oldest first.
func (s *Service) ListTrialConfigs(ctx context.Context, trialID string) ([]*domain.TrialConfig, error) {
	return s.trials.ListConfigs(ctx, trialID)
}

// SetDefaultConfig atomically moves the default flag to the given version.
func (s *Service) SetDefaultConfig(ctx context.Context, trialID, configID string) error {
	return s.trials.SetDefault(ctx, trialID, configID)
}

// ValidateRequest starts a validation run on a trial.
type ValidateRequest struct {
	TrialID string                `json:"trial_id" validate:"required"`
	Name    string                `json:"name" validate:"max=128"`
	Config  domain.ConfigDocument `json:"config,omitempty"`

	// QAPath and CorpusPath point at externally produced artifacts. Set
	// together, they let the run start on a trial that never completed its
	// own qa stage.
	QAPath     string `json:"qa_path,omitempty"`
	CorpusPath string `json:"corpus_path,omitempty"`
}

// StartValidate starts a validation run. An empty config falls back to the
// trial's default configuration version.
func (s *Service) StartValidate(ctx context.Context, req ValidateRequest) (*domain.Run, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid validate request: %w", err)
	}
	config, err := s.resolveConfig(ctx, req.TrialID, req.Config)
	if err != nil {
		return nil, err
	}
	return s.runs.StartValidate(ctx, req.TrialID, req.Name, config, req.QAPath, req.CorpusPath)
}

// EvaluateRequest starts an evaluation run on a trial.
type EvaluateRequest struct {
	TrialID string                `json:"trial_id" validate:"required"`
	Name    string                `json:"name" validate:"max=128"`
	Config  domain.ConfigDocument `json:"config,omitempty"`

	// QAPath and CorpusPath point at externally produced artifacts. Set
	// together, they let the run start on a trial that never completed its
	// own qa stage.
	QAPath     string `json:"qa_path,omitempty"`
	CorpusPath string `json:"corpus_path,omitempty"`

	// SkipValidation controls the implicit validation chain. Unset
	// defaults to true: evaluation runs directly unless the caller asks
	// for the validate-first chain.
	SkipValidation *bool `json:"skip_validation,omitempty"`
}

// StartEvaluate starts an evaluation run, chaining an implicit validation
// first when the caller sets skip_validation to false.
func (s *Service) StartEvaluate(ctx context.Context, req EvaluateRequest) (*domain.Run, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid evaluate request: %w", err)
	}
	config, err := s.resolveConfig(ctx, req.TrialID, req.Config)
	if err != nil {
		return nil, err
	}

	skip := true
	if req.SkipValidation != nil {
		skip = *req.SkipValidation
	}
	return s.runs.StartEvaluate(ctx, req.TrialID, req.Name, config, req.QAPath, req.CorpusPath, skip)
}

// resolveConfig prefers the explicit config and falls back to the trial's
// default version, then to the trial's own config document.
func (s *Service) resolveConfig(ctx context.Context, trialID string, explicit domain.ConfigDocument) (domain.ConfigDocument, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	if tc, err := s.trials.GetConfig(ctx, trialID); err == nil {
		return tc.ConfigYAML, nil
	}
	t, err := s.trials.Get(ctx, trialID)
	if err != nil {
		return nil, err
	}
	return t.ConfigYAML, nil
}

// GetRun returns the projection of a validation or evaluation task.
func (s *Service) GetRun(ctx context.Context, taskID string) (*domain.Run, error) {
	return s.runs.GetRun(ctx, taskID)
}

// ListRuns returns the trial's run history, oldest first.
func (s *Service) ListRuns(ctx context.Context, trialID string) ([]*domain.Run, error) {
	return s.runs.ListRuns(ctx, trialID)
}

// OpenReport opens the report session for a trial. Idempotent.
func (s *Service) OpenReport(ctx context.Context, trialID string) (*domain.Session, error) {
	return s.openSession(ctx, trialID, domain.SessionReport)
}

// CloseReport closes the report session. Closing a closed session is a no-op.
func (s *Service) CloseReport(_ context.Context, trialID string) error {
	return s.sessions.Close(trialID, domain.SessionReport)
}

// OpenChat opens the chat session for a trial. Idempotent.
func (s *Service) OpenChat(ctx context.Context, trialID string) (*domain.Session, error) {
	return s.openSession(ctx, trialID, domain.SessionChat)
}

// CloseChat closes the chat session. Closing a closed session is a no-op.
func (s *Service) CloseChat(_ context.Context, trialID string) error {
	return s.sessions.Close(trialID, domain.SessionChat)
}

func (s *Service) openSession(ctx context.Context, trialID string, kind domain.SessionKind) (*domain.Session, error) {
	if _, err := s.trials.Get(ctx, trialID); err != nil {
		return nil, err
	}
	return s.sessions.Open(trialID, kind)
}

// GetTask returns a task, scoped to the given project.
func (s *Service) GetTask(ctx context.Context, projectID, taskID string) (*domain.Task, error) {
	task, err := s.ledger.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ProjectID != projectID {
		return nil, &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	return task, nil
}

// TaskPage is a paginated task listing.
type TaskPage struct {
	Total int            `json:"total"`
	Data  []*domain.Task `json:"data"`
}

// ListTasks returns a page of the project's tasks, optionally narrowed to a
// trial, oldest first.
func (s *Service) ListTasks(ctx context.Context, projectID, trialID string, page, limit int) (*TaskPage, error) {
	tasks, err := s.ledger.List(ctx, projectID, trialID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = project.DefaultPage
	}
	if limit < 1 {
		limit = project.DefaultLimit
	}

	total := len(tasks)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return &TaskPage{Total: total, Data: tasks[start:end]}, nil
}
