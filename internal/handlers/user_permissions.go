package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/services"
	"github.com/tbjornsen/grantor/pkg/response"
)

// UserPermissionHandler serves the direct user-permission grant relation.
type UserPermissionHandler struct {
	grants *services.GrantService
}

// NewUserPermissionHandler wires the direct grant endpoints.
func NewUserPermissionHandler(db *gorm.DB, inv authz.Invalidator) (*UserPermissionHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	grants, err := services.NewGrantService(db, audit, inv)
	if err != nil {
		return nil, err
	}
	return &UserPermissionHandler{grants: grants}, nil
}

// GET /api/users/:id/permissions
func (h *UserPermissionHandler) ListForUser(c *gin.Context) {
	userID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	perms, err := h.grants.UserPermissions(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, perms, &response.Meta{Total: len(perms)})
}

// GET /api/permissions/:id/users
func (h *UserPermissionHandler) ListForPermission(c *gin.Context) {
	permissionID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	users, err := h.grants.PermissionUsers(requestContext(c), permissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{Total: len(users)})
}

// POST /api/users/:id/permissions/:permission_id
func (h *UserPermissionHandler) Grant(c *gin.Context) {
	userID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	permissionID, ok := paramUint(c, "permission_id")
	if !ok {
		return
	}

	grant, err := h.grants.GrantToUser(requestContext(c), userID, permissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, grant)
}

// DELETE /api/users/:id/permissions/:permission_id
func (h *UserPermissionHandler) Revoke(c *gin.Context) {
	userID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	permissionID, ok := paramUint(c, "permission_id")
	if !ok {
		return
	}

	if err := h.grants.RevokeFromUser(requestContext(c), userID, permissionID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}
