package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adorable-labs/adorable-backend/internal/auth"
	"github.com/adorable-labs/adorable-backend/internal/generation"
	"github.com/adorable-labs/adorable-backend/internal/projects/domain"
)

type fakeProjects struct {
	projects []domain.Project
	unset    []string
	created  *domain.Project
	listErr  error
}

func (f *fakeProjects) List(ctx context.Context, cred auth.Credential) ([]domain.Project, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Project, 0, len(f.projects))
	for _, p := range f.projects {
		if p.UserID == cred.UserID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjects) CreateCurrent(ctx context.Context, cred auth.Credential) (*domain.Project, error) {
	id := uuid.New().String()
	p := domain.Project{
		ID:          id,
		UserID:      cred.UserID,
		DisplayName: id,
		CreatedAt:   time.Now().UTC(),
		LastUpdated: time.Now().UTC(),
		IsCurrent:   true,
	}
	f.projects = append(f.projects, p)
	f.created = &p
	return &p, nil
}

func (f *fakeProjects) UnsetCurrent(ctx context.Context, cred auth.Credential, projectID string) error {
	for i := range f.projects {
		if f.projects[i].UserID == cred.UserID && f.projects[i].ID == projectID {
			f.projects[i].IsCurrent = false
			f.unset = append(f.unset, projectID)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeProjects) PromoteCurrent(ctx context.Context, cred auth.Credential, projectID string) (*domain.Project, error) {
	var target *domain.Project
	for i := range f.projects {
		if f.projects[i].UserID == cred.UserID && f.projects[i].ID == projectID {
			target = &f.projects[i]
		}
	}
	if target == nil {
		return nil, domain.ErrNotFound
	}
	for i := range f.projects {
		if f.projects[i].UserID == cred.UserID {
			f.projects[i].IsCurrent = f.projects[i].ID == projectID
		}
	}
	return target, nil
}

type appendCall struct {
	projectID string
	message   string
	issuer    domain.Issuer
}

type fakeChat struct {
	appends   []appendCall
	appendErr error
}

func (f *fakeChat) Append(ctx context.Context, cred auth.Credential, projectID, message string, issuer domain.Issuer) (*domain.ChatMessage, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.appends = append(f.appends, appendCall{projectID: projectID, message: message, issuer: issuer})
	return &domain.ChatMessage{
		ID:        fmt.Sprintf("m%d", len(f.appends)),
		ProjectID: projectID,
		Issuer:    issuer,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}, nil
}

type fakeWorkspaces struct {
	ensured []string
	synced  []string
}

func (f *fakeWorkspaces) Ensure(projectID string) error {
	f.ensured = append(f.ensured, projectID)
	return nil
}

func (f *fakeWorkspaces) Sync(projectID string) error {
	f.synced = append(f.synced, projectID)
	return nil
}

func (f *fakeWorkspaces) Path(projectID string) string {
	return "/workspaces/" + projectID
}

type fakeEngine struct {
	result *generation.Result
	err    error

	called bool
	prompt string
	path   string
}

func (f *fakeEngine) Run(ctx context.Context, prompt, workspacePath string) (*generation.Result, error) {
	f.called = true
	f.prompt = prompt
	f.path = workspacePath
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func successResult(messages ...string) *generation.Result {
	res := &generation.Result{Success: true}
	for _, m := range messages {
		res.Messages = append(res.Messages, json.RawMessage(m))
	}
	return res
}

type fakeTracker struct {
	beginErr  error
	updateErr error
	states    []State
}

func (f *fakeTracker) Begin(ctx context.Context, s *Session) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.states = append(f.states, s.State)
	return nil
}

func (f *fakeTracker) Update(ctx context.Context, s *Session) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.states = append(f.states, s.State)
	return nil
}

var testCred = auth.Credential{UserID: "u1", AccessToken: "at", RefreshToken: "rt"}

func newTestOrchestrator(p *fakeProjects, ch *fakeChat, ws *fakeWorkspaces, eng *fakeEngine) *Orchestrator {
	return NewOrchestrator(p, ch, ws, eng, nil)
}

func TestPromptFirstNewUser(t *testing.T) {
	projects := &fakeProjects{}
	chat := &fakeChat{}
	ws := &fakeWorkspaces{}
	engine := &fakeEngine{result: successResult(`{"type":"assistant","content":"done"}`)}

	o := newTestOrchestrator(projects, chat, ws, engine)
	outcome, err := o.PromptFirst(context.Background(), testCred, "build me a landing page")
	require.NoError(t, err)

	require.NotNil(t, projects.created)
	assert.Equal(t, "u1", outcome.UserID)
	assert.Equal(t, projects.created.ID, outcome.ProjectID)
	assert.Equal(t, projects.created.ID, outcome.ProjectName)

	assert.Equal(t, []string{projects.created.ID}, ws.ensured)
	assert.Equal(t, []string{projects.created.ID}, ws.synced)

	assert.True(t, engine.called)
	assert.Equal(t, "build me a landing page", engine.prompt)
	assert.Equal(t, "/workspaces/"+projects.created.ID, engine.path)

	require.Len(t, chat.appends, 2)
	assert.Equal(t, domain.IssuerUser, chat.appends[0].issuer)
	assert.Equal(t, "build me a landing page", chat.appends[0].message)
	assert.Equal(t, domain.IssuerAgent, chat.appends[1].issuer)
}

func TestPromptFirstUnsetsExistingCurrent(t *testing.T) {
	projects := &fakeProjects{projects: []domain.Project{
		{ID: "old1", UserID: "u1", DisplayName: "old1", IsCurrent: true},
		{ID: "old2", UserID: "u1", DisplayName: "old2", IsCurrent: false},
		{ID: "other", UserID: "u2", DisplayName: "other", IsCurrent: true},
	}}
	chat := &fakeChat{}
	ws := &fakeWorkspaces{}
	engine := &fakeEngine{result: successResult()}

	o := newTestOrchestrator(projects, chat, ws, engine)
	_, err := o.PromptFirst(context.Background(), testCred, "start over")
	require.NoError(t, err)

	// Only the owner's current project is unset; the other user's is never
	// touched.
	assert.Equal(t, []string{"old1"}, projects.unset)

	current := 0
	for _, p := range projects.projects {
		if p.UserID == "u1" && p.IsCurrent {
			current++
		}
	}
	assert.Equal(t, 1, current)
}

func TestPromptFirstRecordsAgentMessagesInYieldOrder(t *testing.T) {
	projects := &fakeProjects{}
	chat := &fakeChat{}
	ws := &fakeWorkspaces{}
	engine := &fakeEngine{result: successResult(`{"n":1}`, `{"n":2}`, `{"n":3}`)}

	o := newTestOrchestrator(projects, chat, ws, engine)
	_, err := o.PromptFirst(context.Background(), testCred, "prompt")
	require.NoError(t, err)

	require.Len(t, chat.appends, 4)
	assert.Equal(t, `{"n":1}`, chat.appends[1].message)
	assert.Equal(t, `{"n":2}`, chat.appends[2].message)
	assert.Equal(t, `{"n":3}`, chat.appends[3].message)
}

func TestPromptFirstEngineFailureKeepsUserPrompt(t *testing.T) {
	projects := &fakeProjects{}
	chat := &fakeChat{}
	ws := &fakeWorkspaces{}
	engine := &fakeEngine{result: &generation.Result{Success: false, Err: "model refused"}}

	o := newTestOrchestrator(projects, chat, ws, engine)
	_, err := o.PromptFirst(context.Background(), testCred, "prompt")

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindGeneration, se.Kind)
	assert.Equal(t, "model refused", se.Error())

	// The prompt survives; no agent messages, no publish.
	require.Len(t, chat.appends, 1)
	assert.Equal(t, domain.IssuerUser, chat.appends[0].issuer)
	assert.Empty(t, ws.synced)
}

func TestPromptFirstRejectsEmptyPrompt(t *testing.T) {
	o := newTestOrchestrator(&fakeProjects{}, &fakeChat{}, &fakeWorkspaces{}, &fakeEngine{})

	_, err := o.PromptFirst(context.Background(), testCred, "   ")

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindValidation, se.Kind)
}

func TestPromptContinueOnCurrentProject(t *testing.T) {
	projects := &fakeProjects{projects: []domain.Project{
		{ID: "p1", UserID: "u1", DisplayName: "p1", IsCurrent: true},
	}}
	chat := &fakeChat{}
	ws := &fakeWorkspaces{}
	engine := &fakeEngine{result: successResult(`{"type":"assistant"}`)}

	o := newTestOrchestrator(projects, chat, ws, engine)
	outcome, err := o.PromptContinue(context.Background(), testCred, "p1", "add a footer")
	require.NoError(t, err)

	assert.Equal(t, "p1", outcome.ProjectID)
	assert.Equal(t, []string{"p1"}, ws.ensured)
	assert.Equal(t, []string{"p1"}, ws.synced)
}

func TestPromptContinueRejectsNonCurrentProject(t *testing.T) {
	projects := &fakeProjects{projects: []domain.Project{
		{ID: "p1", UserID: "u1", DisplayName: "p1", IsCurrent: true},
		{ID: "p2", UserID: "u1", DisplayName: "p2", IsCurrent: false},
	}}
	chat := &fakeChat{}
	ws := &fakeWorkspaces{}
	engine := &fakeEngine{result: successResult()}

	o := newTestOrchestrator(projects, chat, ws, engine)
	_, err := o.PromptContinue(context.Background(), testCred, "p2", "prompt")

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindProjectState, se.Kind)

	// Generation never starts and nothing is written.
	assert.False(t, engine.called)
	assert.Empty(t, chat.appends)
	assert.Empty(t, ws.ensured)
}

func TestPromptContinueRejectsWhenNoCurrentProject(t *testing.T) {
	projects := &fakeProjects{projects: []domain.Project{
		{ID: "p1", UserID: "u1", DisplayName: "p1", IsCurrent: false},
	}}
	engine := &fakeEngine{}

	o := newTestOrchestrator(projects, &fakeChat{}, &fakeWorkspaces{}, engine)
	_, err := o.PromptContinue(context.Background(), testCred, "p1", "prompt")

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindProjectState, se.Kind)
	assert.False(t, engine.called)
}

func TestPromptContinueRejectsConflictingCurrentProjects(t *testing.T) {
	projects := &fakeProjects{projects: []domain.Project{
		{ID: "p1", UserID: "u1", DisplayName: "p1", IsCurrent: true},
		{ID: "p2", UserID: "u1", DisplayName: "p2", IsCurrent: true},
	}}
	engine := &fakeEngine{}

	o := newTestOrchestrator(projects, &fakeChat{}, &fakeWorkspaces{}, engine)
	_, err := o.PromptContinue(context.Background(), testCred, "p1", "prompt")

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindProjectState, se.Kind)
	assert.False(t, engine.called)
}

func TestSwitchProject(t *testing.T) {
	projects := &fakeProjects{projects: []domain.Project{
		{ID: "p1", UserID: "u1", DisplayName: "p1", IsCurrent: true},
		{ID: "p2", UserID: "u1", DisplayName: "p2", IsCurrent: false},
	}}
	ws := &fakeWorkspaces{}
	engine := &fakeEngine{}

	o := newTestOrchestrator(projects, &fakeChat{}, ws, engine)
	p, err := o.SwitchProject(context.Background(), testCred, "p2")
	require.NoError(t, err)

	assert.Equal(t, "p2", p.ID)
	assert.True(t, p.IsCurrent)
	assert.Equal(t, []string{"p2"}, ws.ensured)
	assert.Equal(t, []string{"p2"}, ws.synced)
	assert.False(t, engine.called)
}

func TestSwitchProjectNotOwned(t *testing.T) {
	projects := &fakeProjects{projects: []domain.Project{
		{ID: "theirs", UserID: "u2", DisplayName: "theirs", IsCurrent: true},
	}}
	ws := &fakeWorkspaces{}

	o := newTestOrchestrator(projects, &fakeChat{}, ws, &fakeEngine{})
	_, err := o.SwitchProject(context.Background(), testCred, "theirs")

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindProjectState, se.Kind)

	// The other owner's workspace is never touched.
	assert.Empty(t, ws.ensured)
	assert.Empty(t, ws.synced)
}

func TestPromptFirstSucceedsWhenTrackerFails(t *testing.T) {
	projects := &fakeProjects{}
	chat := &fakeChat{}
	ws := &fakeWorkspaces{}
	engine := &fakeEngine{result: successResult(`{"type":"assistant","content":"done"}`)}
	tracker := &fakeTracker{
		beginErr:  errors.New("redis connection refused"),
		updateErr: errors.New("redis connection refused"),
	}

	o := NewOrchestrator(projects, chat, ws, engine, tracker)
	outcome, err := o.PromptFirst(context.Background(), testCred, "build me a landing page")

	// Tracking is diagnostic only; a dead tracker store must not fail the
	// request or drop any step of the flow.
	require.NoError(t, err)
	require.NotNil(t, projects.created)
	assert.Equal(t, projects.created.ID, outcome.ProjectID)
	require.Len(t, chat.appends, 2)
	assert.Equal(t, []string{projects.created.ID}, ws.synced)
}

func TestTrackerRecordsStateTransitions(t *testing.T) {
	projects := &fakeProjects{}
	chat := &fakeChat{}
	ws := &fakeWorkspaces{}
	engine := &fakeEngine{result: successResult(`{"n":1}`)}
	tracker := &fakeTracker{}

	o := NewOrchestrator(projects, chat, ws, engine, tracker)
	_, err := o.PromptFirst(context.Background(), testCred, "prompt")
	require.NoError(t, err)

	assert.Equal(t, []State{
		StateValidating,
		StateResolvingProject,
		StateGenerating,
		StateRecording,
		StatePublishing,
		StateDone,
	}, tracker.states)
}

func TestTrackerRecordsFailedState(t *testing.T) {
	projects := &fakeProjects{}
	chat := &fakeChat{}
	ws := &fakeWorkspaces{}
	engine := &fakeEngine{result: &generation.Result{Success: false, Err: "model refused"}}
	tracker := &fakeTracker{}

	o := NewOrchestrator(projects, chat, ws, engine, tracker)
	_, err := o.PromptFirst(context.Background(), testCred, "prompt")
	require.Error(t, err)

	require.NotEmpty(t, tracker.states)
	assert.Equal(t, StateFailed, tracker.states[len(tracker.states)-1])
}

func TestPromptFirstRepositoryFailure(t *testing.T) {
	projects := &fakeProjects{listErr: errors.New("store unavailable")}
	engine := &fakeEngine{}

	o := newTestOrchestrator(projects, &fakeChat{}, &fakeWorkspaces{}, engine)
	_, err := o.PromptFirst(context.Background(), testCred, "prompt")

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindRepository, se.Kind)
	assert.False(t, engine.called)
}
