package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/adorable-labs/adorable-backend/internal/auth"
	"github.com/adorable-labs/adorable-backend/internal/projects/domain"
	"github.com/adorable-labs/adorable-backend/internal/session"
)

// ProjectLister is the read side of the project repository used by the
// pass-through listing endpoint.
type ProjectLister interface {
	List(ctx context.Context, cred auth.Credential) ([]domain.Project, error)
}

// ChatStore is the transcript access used by the pass-through history
// endpoints.
type ChatStore interface {
	List(ctx context.Context, cred auth.Credential, projectID string) ([]domain.ChatMessage, error)
	Delete(ctx context.Context, cred auth.Credential, messageID string) error
}

// Handler bundles the dependencies for the prompt and project endpoints.
type Handler struct {
	orchestrator *session.Orchestrator
	projects     ProjectLister
	chat         ChatStore
}

func New(orchestrator *session.Orchestrator, projects ProjectLister, chat ChatStore) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		projects:     projects,
		chat:         chat,
	}
}

// Register attaches the API routes to an auth-gated router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/prompt/first", h.promptFirst)
	rg.POST("/prompt", h.promptContinue)
	rg.POST("/project/switch", h.switchProject)
	rg.GET("/projects", h.listProjects)
	rg.GET("/projects/:project_id/chat", h.listChat)
	rg.DELETE("/chat/:message_id", h.deleteChat)
}

type promptReq struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) promptFirst(c *gin.Context) {
	cred, ok := auth.CredentialFrom(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing credential"})
		return
	}

	var req promptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	outcome, err := h.orchestrator.PromptFirst(c.Request.Context(), cred, req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) promptContinue(c *gin.Context) {
	cred, ok := auth.CredentialFrom(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing credential"})
		return
	}

	projectID := strings.TrimSpace(c.GetHeader(auth.HeaderProjectID))
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing project id"})
		return
	}

	var req promptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	outcome, err := h.orchestrator.PromptContinue(c.Request.Context(), cred, projectID, req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

type switchReq struct {
	ProjectID string `json:"projectId"`
}

func (h *Handler) switchProject(c *gin.Context) {
	cred, ok := auth.CredentialFrom(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing credential"})
		return
	}

	var req switchReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ProjectID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	project, err := h.orchestrator.SwitchProject(c.Request.Context(), cred, strings.TrimSpace(req.ProjectID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":      cred.UserID,
		"projectId":   project.ID,
		"projectName": project.DisplayName,
	})
}

func (h *Handler) listProjects(c *gin.Context) {
	cred, ok := auth.CredentialFrom(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing credential"})
		return
	}

	items, err := h.projects.List(c.Request.Context(), cred)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": items})
}

func (h *Handler) listChat(c *gin.Context) {
	cred, ok := auth.CredentialFrom(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing credential"})
		return
	}

	projectID := strings.TrimSpace(c.Param("project_id"))
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing project id"})
		return
	}

	items, err := h.chat.List(c.Request.Context(), cred, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": items})
}

func (h *Handler) deleteChat(c *gin.Context) {
	cred, ok := auth.CredentialFrom(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing credential"})
		return
	}

	messageID := strings.TrimSpace(c.Param("message_id"))
	if err := h.chat.Delete(c.Request.Context(), cred, messageID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": messageID})
}

// respondError maps orchestrator error kinds onto the reference status
// codes. The body is always a single-field error message.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var se *session.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case session.KindValidation, session.KindProjectState:
			status = http.StatusBadRequest
		case session.KindGeneration, session.KindSync, session.KindRepository:
			status = http.StatusInternalServerError
		}
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
