package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/middleware"
	"github.com/tbjornsen/grantor/internal/models"
	"github.com/tbjornsen/grantor/internal/services"
	"github.com/tbjornsen/grantor/pkg/response"
)

// UserHandler serves user CRUD.
type UserHandler struct {
	service *services.UserService
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=128"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	RoleIDs  []uint `json:"role_ids"`
}

type updateUserRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=128"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// NewUserHandler wires the user endpoints.
func NewUserHandler(db *gorm.DB, inv authz.Invalidator) (*UserHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewUserService(db, audit, inv)
	if err != nil {
		return nil, err
	}
	return &UserHandler{service: svc}, nil
}

// GET /api/users
//
// Behind an enumerate-mode access rule: set-level access returns every user,
// instance grants restrict the listing to the accessible ids.
func (h *UserHandler) List(c *gin.Context) {
	ctx := requestContext(c)

	var (
		users []models.User
		err   error
	)

	if info, ok := middleware.AccessInfoFrom(c); ok && !info.HasSetAccess {
		ids := make([]uint, 0, len(info.Entities))
		for _, id := range info.Entities {
			if id > 0 {
				ids = append(ids, uint(id))
			}
		}
		users, err = h.service.ListByIDs(ctx, ids)
	} else {
		users, err = h.service.List(ctx)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{Total: len(users)})
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	user, err := h.service.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.service.Create(requestContext(c), services.CreateUserInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		RoleIDs:  body.RoleIDs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// PATCH /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var body updateUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.service.Update(requestContext(c), id, services.UpdateUserInput{
		Name:  body.Name,
		Email: body.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
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
