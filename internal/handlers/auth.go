package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/tbjornsen/grantor/internal/auth"
	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/services"
	"github.com/tbjornsen/grantor/pkg/errors"
	"github.com/tbjornsen/grantor/pkg/metrics"
	"github.com/tbjornsen/grantor/pkg/response"
)

// AuthHandler serves login, logout and the current-principal endpoint.
type AuthHandler struct {
	users    *services.UserService
	jwt      *iauth.JWTService
	resolver *authz.Resolver
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NewAuthHandler wires the authentication endpoints.
func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService, resolver *authz.Resolver) (*AuthHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db, audit, resolver)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{users: users, jwt: jwt, resolver: resolver}, nil
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if !bindAndValidate(c, &body) {
		return
	}

	ctx := requestContext(c)

	user, err := h.users.VerifyCredentials(ctx, body.Email, body.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Email: user.Email})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	summary, err := h.resolver.AuthorizationSummary(ctx, user.ID)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, gin.H{
		"token":         token,
		"user":          user,
		"authorization": summary,
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	ctx := requestContext(c)

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.resolver.AuthorizationSummary(ctx, userID)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":          user,
		"authorization": summary,
	})
}

// POST /api/auth/logout
//
// Tokens are stateless, so logout is client-side discard. The endpoint exists
// so clients have a uniform call to end a session.
func (h *AuthHandler) Logout(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"status": "logged out"})
}
