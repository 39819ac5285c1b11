package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/applyforge/applyforge-backend/internal/http/response"
	"github.com/applyforge/applyforge-backend/internal/platform/requestdata"
	"github.com/applyforge/applyforge-backend/internal/services"
)

type GenerationHandler struct {
	jobContext services.JobContextService
	generation services.GenerationService
}

func NewGenerationHandler(jobContext services.JobContextService, generation services.GenerationService) *GenerationHandler {
	return &GenerationHandler{jobContext: jobContext, generation: generation}
}

func (h *GenerationHandler) session(c *gin.Context) (*services.ContextSession, *requestdata.RequestData) {
	rd := requestdata.GetRequestData(c.Request.Context())
	return h.jobContext.Session(rd.UserID, rd.SessionID), rd
}

// Generation requests always target the active job. The body may name a
// job_id, which must match the active one; a mismatch is rejected rather than
// silently retargeted.
type generateBody struct {
	JobID *uuid.UUID `json:"job_id,omitempty"`
	Tone  string     `json:"tone,omitempty"`
	Input string     `json:"input,omitempty"`
}

func (h *GenerationHandler) resolveJob(c *gin.Context, sess *services.ContextSession, body *generateBody) (uuid.UUID, bool) {
	active := sess.ActiveJobID()
	if active == nil {
		response.RespondError(c, http.StatusConflict, "no_active_job", nil)
		return uuid.Nil, false
	}
	if body.JobID != nil && *body.JobID != *active {
		response.RespondError(c, http.StatusConflict, "job_not_active", nil)
		return uuid.Nil, false
	}
	return *active, true
}

// POST /api/generate/research
func (h *GenerationHandler) RunResearch(c *gin.Context) {
	var body generateBody
	_ = c.ShouldBindJSON(&body)

	sess, rd := h.session(c)
	jobID, ok := h.resolveJob(c, sess, &body)
	if !ok {
		return
	}
	if err := h.generation.RunResearchAndAnalysis(c.Request.Context(), rd, sess, jobID); err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"workspace": sess.Workspace().State()})
}

// POST /api/generate/cover-letter
func (h *GenerationHandler) GenerateCoverLetter(c *gin.Context) {
	var body generateBody
	_ = c.ShouldBindJSON(&body)

	sess, rd := h.session(c)
	jobID, ok := h.resolveJob(c, sess, &body)
	if !ok {
		return
	}
	if err := h.generation.GenerateCoverLetter(c.Request.Context(), rd, sess, jobID, body.Tone); err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"workspace": sess.Workspace().State()})
}

// POST /api/generate/outreach
func (h *GenerationHandler) GenerateOutreach(c *gin.Context) {
	var body generateBody
	_ = c.ShouldBindJSON(&body)

	sess, rd := h.session(c)
	jobID, ok := h.resolveJob(c, sess, &body)
	if !ok {
		return
	}
	if err := h.generation.GenerateOutreach(c.Request.Context(), rd, sess, jobID, body.Input); err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"workspace": sess.Workspace().State()})
}

// POST /api/generate/interview-prep
func (h *GenerationHandler) GenerateInterviewPrep(c *gin.Context) {
	var body generateBody
	_ = c.ShouldBindJSON(&body)

	sess, rd := h.session(c)
	jobID, ok := h.resolveJob(c, sess, &body)
	if !ok {
		return
	}
	if err := h.generation.GenerateInterviewPrep(c.Request.Context(), rd, sess, jobID); err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"workspace": sess.Workspace().State()})
}
