package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/handlers"
	"github.com/tbjornsen/grantor/internal/middleware"
	"github.com/tbjornsen/grantor/internal/models"
)

func registerUserRoutes(api *gin.RouterGroup, db *gorm.DB, resolver *authz.Resolver) error {
	userHandler, err := handlers.NewUserHandler(db, resolver)
	if err != nil {
		return err
	}
	membershipHandler, err := handlers.NewUserRoleHandler(db, resolver)
	if err != nil {
		return err
	}
	grantHandler, err := handlers.NewUserPermissionHandler(db, resolver)
	if err != nil {
		return err
	}

	guard := func(typ models.PermissionType, mode middleware.AccessMode) gin.HandlerFunc {
		return middleware.RequireAccess(resolver, middleware.AccessRule{
			Set:   models.EntitySetUser,
			Type:  typ,
			Param: "id",
			Mode:  mode,
		})
	}
	membershipGuard := func(typ models.PermissionType) gin.HandlerFunc {
		return middleware.RequireAccess(resolver, middleware.AccessRule{
			Set:  models.EntitySetUserRole,
			Type: typ,
			Mode: middleware.ModeSetLevel,
		})
	}
	grantGuard := func(typ models.PermissionType) gin.HandlerFunc {
		return middleware.RequireAccess(resolver, middleware.AccessRule{
			Set:  models.EntitySetUserPermission,
			Type: typ,
			Mode: middleware.ModeSetLevel,
		})
	}

	users := api.Group("/users")
	{
		users.GET("", guard(models.PermissionRead, middleware.ModeEnumerate), userHandler.List)
		users.POST("", guard(models.PermissionCreate, middleware.ModeSetLevel), userHandler.Create)
		users.GET("/:id", guard(models.PermissionRead, middleware.ModeSingle), userHandler.Get)
		users.PATCH("/:id", guard(models.PermissionUpdate, middleware.ModeSingle), userHandler.Update)
		users.DELETE("/:id", guard(models.PermissionDelete, middleware.ModeSingle), userHandler.Delete)

		users.GET("/:id/roles", membershipGuard(models.PermissionRead), membershipHandler.ListForUser)
		users.POST("/:id/roles/:role_id", membershipGuard(models.PermissionCreate), membershipHandler.Add)
		users.DELETE("/:id/roles/:role_id", membershipGuard(models.PermissionDelete), membershipHandler.Remove)

		users.GET("/:id/permissions", grantGuard(models.PermissionRead), grantHandler.ListForUser)
		users.POST("/:id/permissions/:permission_id", grantGuard(models.PermissionCreate), grantHandler.Grant)
		users.DELETE("/:id/permissions/:permission_id", grantGuard(models.PermissionDelete), grantHandler.Revoke)
	}

	return nil
}
