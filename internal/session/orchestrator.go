package session

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/adorable-labs/adorable-backend/internal/auth"
	"github.com/adorable-labs/adorable-backend/internal/generation"
	"github.com/adorable-labs/adorable-backend/internal/projects/domain"
)

// ProjectStore is the subset of the project repository the orchestrator
// needs. Every call carries the per-request credential.
type ProjectStore interface {
	List(ctx context.Context, cred auth.Credential) ([]domain.Project, error)
	CreateCurrent(ctx context.Context, cred auth.Credential) (*domain.Project, error)
	UnsetCurrent(ctx context.Context, cred auth.Credential, projectID string) error
	PromoteCurrent(ctx context.Context, cred auth.Credential, projectID string) (*domain.Project, error)
}

// ChatRecorder appends transcript rows.
type ChatRecorder interface {
	Append(ctx context.Context, cred auth.Credential, projectID, message string, issuer domain.Issuer) (*domain.ChatMessage, error)
}

// Workspaces provisions and publishes project working directories.
type Workspaces interface {
	Ensure(projectID string) error
	Sync(projectID string) error
	Path(projectID string) string
}

// Engine runs one bounded generation session against a workspace.
type Engine interface {
	Run(ctx context.Context, prompt, workspacePath string) (*generation.Result, error)
}

// Outcome is what a successful prompt request returns to the caller.
type Outcome struct {
	UserID      string `json:"userId"`
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
}

// Orchestrator drives one request lifecycle: resolve or create the current
// project, ensure its workspace, record the prompt, run generation, record
// the results and publish to the live preview. All steps within a request
// are strictly sequential.
type Orchestrator struct {
	projects ProjectStore
	chat     ChatRecorder
	ws       Workspaces
	engine   Engine
	tracker  Tracker
}

// NewOrchestrator creates a new orchestrator. tracker may be nil when
// session tracking is disabled.
func NewOrchestrator(projects ProjectStore, chat ChatRecorder, ws Workspaces, engine Engine, tracker Tracker) *Orchestrator {
	return &Orchestrator{
		projects: projects,
		chat:     chat,
		ws:       ws,
		engine:   engine,
		tracker:  tracker,
	}
}

// PromptFirst handles a user's first prompt: any project currently flagged
// current is unset, a new current project is created, and the generation
// session runs against its freshly provisioned workspace.
func (o *Orchestrator) PromptFirst(ctx context.Context, cred auth.Credential, prompt string) (*Outcome, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errf(KindValidation, "Missing prompt")
	}

	s := o.begin(ctx, cred)

	o.track(ctx, s, StateResolvingProject)
	existing, err := o.projects.List(ctx, cred)
	if err != nil {
		return nil, o.fail(ctx, s, wrap(KindRepository, err))
	}

	// Unset-then-insert is two independent writes; a concurrent creation
	// for the same owner can interleave and leave zero or several current
	// projects. Known limitation of this flow; PromoteCurrent is the
	// stronger single-statement primitive.
	for _, p := range existing {
		if !p.IsCurrent {
			continue
		}
		if err := o.projects.UnsetCurrent(ctx, cred, p.ID); err != nil {
			return nil, o.fail(ctx, s, wrap(KindRepository, err))
		}
	}

	project, err := o.projects.CreateCurrent(ctx, cred)
	if err != nil {
		return nil, o.fail(ctx, s, wrap(KindRepository, err))
	}
	s.ProjectID = project.ID

	return o.generateAndPublish(ctx, cred, s, project, prompt)
}

// PromptContinue handles a follow-up prompt against an existing project.
// The supplied project id must be the owner's single current project.
func (o *Orchestrator) PromptContinue(ctx context.Context, cred auth.Credential, projectID, prompt string) (*Outcome, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errf(KindValidation, "Missing prompt")
	}
	if strings.TrimSpace(projectID) == "" {
		return nil, errf(KindValidation, "Missing project id")
	}

	s := o.begin(ctx, cred)

	o.track(ctx, s, StateResolvingProject)
	existing, err := o.projects.List(ctx, cred)
	if err != nil {
		return nil, o.fail(ctx, s, wrap(KindRepository, err))
	}

	var current *domain.Project
	conflicting := false
	for i := range existing {
		if !existing[i].IsCurrent {
			continue
		}
		if current != nil {
			conflicting = true
			break
		}
		current = &existing[i]
	}

	if current == nil || conflicting || current.ID != projectID {
		return nil, o.fail(ctx, s, errf(KindProjectState, "No or conflicting current project configuration"))
	}
	s.ProjectID = current.ID

	return o.generateAndPublish(ctx, cred, s, current, prompt)
}

// SwitchProject makes the named project current and republishes its
// workspace to the live preview without running generation.
func (o *Orchestrator) SwitchProject(ctx context.Context, cred auth.Credential, projectID string) (*domain.Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errf(KindValidation, "Missing project id")
	}

	project, err := o.projects.PromoteCurrent(ctx, cred, projectID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, errf(KindProjectState, "Project %s not found for user", projectID)
		}
		return nil, wrap(KindRepository, err)
	}

	if err := o.ws.Ensure(project.ID); err != nil {
		return nil, wrap(KindSync, err)
	}
	if err := o.ws.Sync(project.ID); err != nil {
		return nil, wrap(KindSync, err)
	}

	return project, nil
}

// generateAndPublish is the shared tail of both prompt flows: workspace,
// transcript, engine, transcript again, live preview.
func (o *Orchestrator) generateAndPublish(ctx context.Context, cred auth.Credential, s *Session, project *domain.Project, prompt string) (*Outcome, error) {
	if err := o.ws.Ensure(project.ID); err != nil {
		return nil, o.fail(ctx, s, wrap(KindSync, err))
	}

	// The user's prompt is recorded before generation starts so it survives
	// an engine failure.
	if _, err := o.chat.Append(ctx, cred, project.ID, prompt, domain.IssuerUser); err != nil {
		return nil, o.fail(ctx, s, wrap(KindRepository, err))
	}

	o.track(ctx, s, StateGenerating)
	result, err := o.engine.Run(ctx, prompt, o.ws.Path(project.ID))
	if err != nil {
		return nil, o.fail(ctx, s, wrap(KindGeneration, err))
	}
	if !result.Success {
		return nil, o.fail(ctx, s, errf(KindGeneration, "%s", result.Err))
	}

	// Appends are awaited one by one: dispatching them concurrently would
	// let network completion order diverge from yield order.
	o.track(ctx, s, StateRecording)
	for _, msg := range result.Messages {
		if _, err := o.chat.Append(ctx, cred, project.ID, string(msg), domain.IssuerAgent); err != nil {
			return nil, o.fail(ctx, s, wrap(KindRepository, err))
		}
	}

	o.track(ctx, s, StatePublishing)
	if err := o.ws.Sync(project.ID); err != nil {
		return nil, o.fail(ctx, s, wrap(KindSync, err))
	}

	o.track(ctx, s, StateDone)
	return &Outcome{
		UserID:      cred.UserID,
		ProjectID:   project.ID,
		ProjectName: project.DisplayName,
	}, nil
}

func (o *Orchestrator) begin(ctx context.Context, cred auth.Credential) *Session {
	s := &Session{
		SessionID: uuid.New().String(),
		UserID:    cred.UserID,
		State:     StateValidating,
	}
	if o.tracker != nil {
		if err := o.tracker.Begin(ctx, s); err != nil {
			log.Printf("session tracker begin: %v", err)
		}
	}
	return s
}

// track mirrors a state transition into the tracker. Tracker failures are
// logged, never fatal to the request.
func (o *Orchestrator) track(ctx context.Context, s *Session, state State) {
	s.State = state
	if o.tracker == nil {
		return
	}
	if err := o.tracker.Update(ctx, s); err != nil {
		log.Printf("session tracker update: %v", err)
	}
}

func (o *Orchestrator) fail(ctx context.Context, s *Session, e *Error) error {
	s.Error = e.Error()
	o.track(ctx, s, StateFailed)
	return e
}
