package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/handlers"
	"github.com/tbjornsen/grantor/internal/middleware"
	"github.com/tbjornsen/grantor/internal/models"
)

func registerAuditRoutes(api *gin.RouterGroup, db *gorm.DB, resolver *authz.Resolver) error {
	auditHandler, err := handlers.NewAuditHandler(db)
	if err != nil {
		return err
	}

	api.GET("/audit", middleware.RequireAccess(resolver, middleware.AccessRule{
		Set:  models.EntitySetPermission,
		Type: models.PermissionRead,
		Mode: middleware.ModeSetLevel,
	}), auditHandler.List)

	return nil
}
