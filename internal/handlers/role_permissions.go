package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/services"
	"github.com/tbjornsen/grantor/pkg/response"
)

// RolePermissionHandler serves the role-permission grant relation.
type RolePermissionHandler struct {
	grants *services.GrantService
}

// NewRolePermissionHandler wires the role grant endpoints.
func NewRolePermissionHandler(db *gorm.DB, inv authz.Invalidator) (*RolePermissionHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	grants, err := services.NewGrantService(db, audit, inv)
	if err != nil {
		return nil, err
	}
	return &RolePermissionHandler{grants: grants}, nil
}

// GET /api/roles/:id/permissions
func (h *RolePermissionHandler) ListForRole(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	perms, err := h.grants.RolePermissions(requestContext(c), roleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, perms, &response.Meta{Total: len(perms)})
}

// GET /api/permissions/:id/roles
func (h *RolePermissionHandler) ListForPermission(c *gin.Context) {
	permissionID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	roles, err := h.grants.PermissionRoles(requestContext(c), permissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, roles, &response.Meta{Total: len(roles)})
}

// POST /api/roles/:id/permissions/:permission_id
func (h *RolePermissionHandler) Grant(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	permissionID, ok := paramUint(c, "permission_id")
	if !ok {
		return
	}

	grant, err := h.grants.GrantToRole(requestContext(c), roleID, permissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, grant)
}

// DELETE /api/roles/:id/permissions/:permission_id
func (h *RolePermissionHandler) Revoke(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	permissionID, ok := paramUint(c, "permission_id")
	if !ok {
		return
	}

	if err := h.grants.RevokeFromRole(requestContext(c), roleID, permissionID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}
