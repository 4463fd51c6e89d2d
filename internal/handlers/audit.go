package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/services"
	"github.com/tbjornsen/grantor/pkg/response"
)

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	service *services.AuditService
}

// NewAuditHandler wires the audit endpoints.
func NewAuditHandler(db *gorm.DB) (*AuditHandler, error) {
	svc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	return &AuditHandler{service: svc}, nil
}

// GET /api/audit?page=1&per_page=50&action=...&result=...&user_id=...
func (h *AuditHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	per, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))

	filters := services.AuditFilters{
		Action:   strings.TrimSpace(c.Query("action")),
		Result:   strings.TrimSpace(c.Query("result")),
		Resource: strings.TrimSpace(c.Query("resource")),
	}
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filters.UserID = uint(id)
		}
	}

	logs, total, err := h.service.List(requestContext(c), services.AuditListOptions{
		Page:     page,
		PageSize: per,
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{Total: int(total)})
}
