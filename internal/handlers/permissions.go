package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/models"
	"github.com/tbjornsen/grantor/internal/services"
	"github.com/tbjornsen/grantor/pkg/errors"
	"github.com/tbjornsen/grantor/pkg/response"
)

// PermissionHandler serves the permission catalog.
type PermissionHandler struct {
	service *services.PermissionService
}

type generateSetRequest struct {
	EntitySet string `json:"entity_set" validate:"required"`
}

type generateEntityRequest struct {
	EntitySet string `json:"entity_set" validate:"required"`
	Entity    int64  `json:"entity" validate:"required,gt=0"`
}

// NewPermissionHandler wires the catalog endpoints.
func NewPermissionHandler(db *gorm.DB, inv authz.Invalidator) (*PermissionHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewPermissionService(db, audit, inv)
	if err != nil {
		return nil, err
	}
	return &PermissionHandler{service: svc}, nil
}

// POST /api/permissions/sets
//
// Creates the full set-level permission family for an entity set.
func (h *PermissionHandler) GenerateSet(c *gin.Context) {
	var body generateSetRequest
	if !bindAndValidate(c, &body) {
		return
	}

	set, err := models.ParseEntitySet(body.EntitySet)
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}

	perms, err := h.service.GenerateSetPermissions(requestContext(c), set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perms)
}

// POST /api/permissions/entities
//
// Creates the instance permission family for one entity of a set.
func (h *PermissionHandler) GenerateEntity(c *gin.Context) {
	var body generateEntityRequest
	if !bindAndValidate(c, &body) {
		return
	}

	set, err := models.ParseEntitySet(body.EntitySet)
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}

	perms, err := h.service.GenerateEntityPermissions(requestContext(c), set, body.Entity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perms)
}

// GET /api/permissions/:id
func (h *PermissionHandler) Get(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	perm, err := h.service.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perm)
}

// GET /api/permissions?entity_set=...
func (h *PermissionHandler) ListBySet(c *gin.Context) {
	set, err := models.ParseEntitySet(c.Query("entity_set"))
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}

	perms, err := h.service.ListBySet(requestContext(c), set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, perms, &response.Meta{Total: len(perms)})
}

// DELETE /api/permissions/:id
func (h *PermissionHandler) Delete(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}
