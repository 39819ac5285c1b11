package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/applyforge/applyforge-backend/internal/data/repos"
	"github.com/applyforge/applyforge-backend/internal/http/response"
	"github.com/applyforge/applyforge-backend/internal/platform/requestdata"
	"github.com/applyforge/applyforge-backend/internal/services"
)

type JobHandler struct {
	jobContext services.JobContextService
}

func NewJobHandler(jobContext services.JobContextService) *JobHandler {
	return &JobHandler{jobContext: jobContext}
}

func (h *JobHandler) session(c *gin.Context) (*services.ContextSession, *requestdata.RequestData) {
	rd := requestdata.GetRequestData(c.Request.Context())
	return h.jobContext.Session(rd.UserID, rd.SessionID), rd
}

// GET /api/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	sess, _ := h.session(c)
	if err := h.jobContext.LoadJobs(c.Request.Context(), sess); err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"jobs":          sess.Jobs(),
		"active_job_id": sess.ActiveJobID(),
	})
}

// POST /api/jobs
func (h *JobHandler) AddJob(c *gin.Context) {
	var input services.JobInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	sess, _ := h.session(c)
	job, err := h.jobContext.AddJob(c.Request.Context(), sess, input)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"job": job, "active_job_id": job.ID})
}

// POST /api/jobs/:id/select
func (h *JobHandler) SelectJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	sess, _ := h.session(c)
	if err := h.jobContext.SelectJob(c.Request.Context(), sess, jobID); err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"active_job_id": jobID,
		"workspace":     sess.Workspace().State(),
	})
}

// DELETE /api/jobs/:id
func (h *JobHandler) DeleteJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	sess, _ := h.session(c)
	if err := h.jobContext.DeleteJob(c.Request.Context(), sess, jobID); err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": jobID, "active_job_id": sess.ActiveJobID()})
}

type outputPatchBody struct {
	Outputs []struct {
		ArtifactType string         `json:"artifact_type"`
		Content      datatypes.JSON `json:"content"`
	} `json:"outputs"`
	Bulk bool `json:"bulk"`
}

// PUT /api/jobs/:id/outputs
func (h *JobHandler) UpdateJobOutputs(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	var body outputPatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	patches := make([]repos.OutputUpsert, 0, len(body.Outputs))
	for _, o := range body.Outputs {
		patches = append(patches, repos.OutputUpsert{ArtifactType: o.ArtifactType, Content: o.Content})
	}

	sess, _ := h.session(c)
	if err := h.jobContext.UpdateJobOutputs(c.Request.Context(), sess, jobID, patches, body.Bulk); err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"updated": jobID, "workspace": sess.Workspace().State()})
}
