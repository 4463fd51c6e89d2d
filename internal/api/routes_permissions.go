package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/handlers"
	"github.com/tbjornsen/grantor/internal/middleware"
	"github.com/tbjornsen/grantor/internal/models"
)

func registerPermissionRoutes(api *gin.RouterGroup, db *gorm.DB, resolver *authz.Resolver) error {
	permHandler, err := handlers.NewPermissionHandler(db, resolver)
	if err != nil {
		return err
	}
	roleGrantHandler, err := handlers.NewRolePermissionHandler(db, resolver)
	if err != nil {
		return err
	}
	userGrantHandler, err := handlers.NewUserPermissionHandler(db, resolver)
	if err != nil {
		return err
	}

	guard := func(typ models.PermissionType) gin.HandlerFunc {
		return middleware.RequireAccess(resolver, middleware.AccessRule{
			Set:  models.EntitySetPermission,
			Type: typ,
			Mode: middleware.ModeSetLevel,
		})
	}

	perms := api.Group("/permissions")
	{
		perms.GET("", guard(models.PermissionRead), permHandler.ListBySet)
		perms.POST("/generate/set", guard(models.PermissionCreate), permHandler.GenerateSet)
		perms.POST("/generate/entity", guard(models.PermissionCreate), permHandler.GenerateEntity)
		perms.GET("/:id", guard(models.PermissionRead), permHandler.Get)
		perms.DELETE("/:id", guard(models.PermissionDelete), permHandler.Delete)

		perms.GET("/:id/roles", guard(models.PermissionRead), roleGrantHandler.ListForPermission)
		perms.GET("/:id/users", guard(models.PermissionRead), userGrantHandler.ListForPermission)
	}

	return nil
}
