package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/http/response"
	"github.com/applyforge/applyforge-backend/internal/platform/requestdata"
	"github.com/applyforge/applyforge-backend/internal/services"
)

type WorkspaceHandler struct {
	jobContext services.JobContextService
	resumes    services.ResumeService
}

func NewWorkspaceHandler(jobContext services.JobContextService, resumes services.ResumeService) *WorkspaceHandler {
	return &WorkspaceHandler{jobContext: jobContext, resumes: resumes}
}

func (h *WorkspaceHandler) session(c *gin.Context) *services.ContextSession {
	rd := requestdata.GetRequestData(c.Request.Context())
	return h.jobContext.Session(rd.UserID, rd.SessionID)
}

// GET /api/workspace
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	sess := h.session(c)
	response.RespondOK(c, gin.H{
		"active_job_id": sess.ActiveJobID(),
		"workspace":     sess.Workspace().State(),
	})
}

type resumeBody struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// PUT /api/resume
func (h *WorkspaceHandler) SaveResume(c *gin.Context) {
	var body resumeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	resume, err := h.resumes.Save(c.Request.Context(), rd.UserID, body.Title, body.Text)
	if err != nil {
		response.RespondFault(c, err)
		return
	}

	// The live workspace picks up the new resume immediately.
	sess := h.session(c)
	sess.Workspace().Update(func(ws *domain.WorkspaceState) {
		ws.ResumeText = resume.Text
	})
	response.RespondOK(c, gin.H{"resume": resume})
}

// GET /api/resume
func (h *WorkspaceHandler) GetResume(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	resume, err := h.resumes.Get(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"resume": resume})
}

// DELETE /api/resume
func (h *WorkspaceHandler) DeleteResume(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if err := h.resumes.Delete(c.Request.Context(), rd.UserID); err != nil {
		response.RespondFault(c, err)
		return
	}
	sess := h.session(c)
	sess.Workspace().Update(func(ws *domain.WorkspaceState) {
		ws.ResumeText = ""
	})
	response.RespondOK(c, gin.H{"deleted": true})
}
