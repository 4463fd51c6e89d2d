package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/services"
	"github.com/tbjornsen/grantor/pkg/response"
)

// UserRoleHandler serves role memberships.
type UserRoleHandler struct {
	memberships *services.MembershipService
}

// NewUserRoleHandler wires the membership endpoints.
func NewUserRoleHandler(db *gorm.DB, inv authz.Invalidator) (*UserRoleHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	memberships, err := services.NewMembershipService(db, audit, inv)
	if err != nil {
		return nil, err
	}
	return &UserRoleHandler{memberships: memberships}, nil
}

// GET /api/users/:id/roles
func (h *UserRoleHandler) ListForUser(c *gin.Context) {
	userID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	roles, err := h.memberships.UserRoles(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, roles, &response.Meta{Total: len(roles)})
}

// GET /api/roles/:id/members
func (h *UserRoleHandler) ListForRole(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	users, err := h.memberships.RoleMembers(requestContext(c), roleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{Total: len(users)})
}

// POST /api/users/:id/roles/:role_id
func (h *UserRoleHandler) Add(c *gin.Context) {
	userID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	roleID, ok := paramUint(c, "role_id")
	if !ok {
		return
	}

	membership, err := h.memberships.AddMember(requestContext(c), userID, roleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, membership)
}

// DELETE /api/users/:id/roles/:role_id
func (h *UserRoleHandler) Remove(c *gin.Context) {
	userID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	roleID, ok := paramUint(c, "role_id")
	if !ok {
		return
	}

	if err := h.memberships.RemoveMember(requestContext(c), userID, roleID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
