package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/applyforge/applyforge-backend/internal/http/response"
	"github.com/applyforge/applyforge-backend/internal/platform/requestdata"
	"github.com/applyforge/applyforge-backend/internal/services"
)

type AdminHandler struct {
	admin services.AdminService
	audit services.AuditService
}

func NewAdminHandler(admin services.AdminService, audit services.AuditService) *AdminHandler {
	return &AdminHandler{admin: admin, audit: audit}
}

// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	if err := h.admin.DeleteUser(c.Request.Context(), rd, userID); err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": userID})
}

// POST /api/admin/users/:id/impersonate
func (h *AdminHandler) ImpersonateUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	token, err := h.admin.ImpersonateUser(c.Request.Context(), rd, userID)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"token": token})
}

// POST /api/admin/jobs/:id/purge
func (h *AdminHandler) PurgeJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	if err := h.admin.PurgeJob(c.Request.Context(), rd, jobID); err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"purged": jobID})
}

// GET /api/admin/audit?entity_type=user&entity_id=<id>&limit=50
func (h *AdminHandler) ListAudit(c *gin.Context) {
	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")
	if entityType == "" || entityID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_entity_filter", nil)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.audit.ListByEntity(c.Request.Context(), entityType, entityID, limit)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": entries})
}
