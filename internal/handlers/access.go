package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/models"
	"github.com/tbjornsen/grantor/pkg/errors"
	"github.com/tbjornsen/grantor/pkg/response"
)

// AccessHandler lets an authenticated caller inspect their own authorization:
// point checks, batch checks, entity enumeration and granted types.
type AccessHandler struct {
	resolver *authz.Resolver
}

// NewAccessHandler wires the access inspection endpoints.
func NewAccessHandler(resolver *authz.Resolver) *AccessHandler {
	return &AccessHandler{resolver: resolver}
}

// GET /api/access/:set/:type/check?entity=7
//
// Without the entity query the check targets the set-level grant itself.
func (h *AccessHandler) Check(c *gin.Context) {
	userID, set, typ, ok := h.principalAndTuple(c)
	if !ok {
		return
	}

	scope := authz.SetLevel()
	if raw := strings.TrimSpace(c.Query("entity")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, errors.NewBadRequest("invalid entity"))
			return
		}
		scope = authz.Instance(id)
	}

	allowed, err := h.resolver.CheckAccess(requestContext(c), userID, set, typ, scope)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"allowed": allowed})
}

// GET /api/access/:set/:type/check-all?entities=1,2,3
func (h *AccessHandler) CheckAll(c *gin.Context) {
	userID, set, typ, ok := h.principalAndTuple(c)
	if !ok {
		return
	}

	ids, err := parseEntityList(c.Query("entities"))
	if err != nil {
		response.Error(c, errors.NewBadRequest("invalid entities list"))
		return
	}

	allowed, err := h.resolver.CheckAccessAll(requestContext(c), userID, set, typ, ids)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"allowed": allowed})
}

// GET /api/access/:set/:type/entities
func (h *AccessHandler) Entities(c *gin.Context) {
	userID, set, typ, ok := h.principalAndTuple(c)
	if !ok {
		return
	}

	list, err := h.resolver.AccessibleEntities(requestContext(c), userID, set, typ)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"set_level": list.SetLevel,
		"entities":  list.Entities,
	})
}

// GET /api/access/:set/types?entity=7
//
// Without the entity query the listing covers set-level types only; with it,
// the union of set-level and instance types.
func (h *AccessHandler) Types(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	set, err := models.ParseEntitySet(c.Param("set"))
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}

	if raw := strings.TrimSpace(c.Query("entities")); raw != "" {
		ids, err := parseEntityList(raw)
		if err != nil {
			response.Error(c, errors.NewBadRequest("invalid entities list"))
			return
		}

		grants, err := h.resolver.PermissionTypesForEntities(requestContext(c), userID, set, ids)
		if err != nil {
			response.Error(c, errors.ErrInternalServer.WithInternal(err))
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"set_level": grants.SetLevel,
			"by_entity": grants.ByEntity,
		})
		return
	}

	scope := authz.SetLevel()
	if raw := strings.TrimSpace(c.Query("entity")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, errors.NewBadRequest("invalid entity"))
			return
		}
		scope = authz.Instance(id)
	}

	types, err := h.resolver.PermissionTypes(requestContext(c), userID, set, scope)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"types": types})
}

func (h *AccessHandler) principalAndTuple(c *gin.Context) (uint, models.EntitySet, models.PermissionType, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return 0, "", "", false
	}

	set, err := models.ParseEntitySet(c.Param("set"))
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return 0, "", "", false
	}

	typ, err := models.ParsePermissionType(c.Param("type"))
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return 0, "", "", false
	}

	return userID, set, typ, true
}

func parseEntityList(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
