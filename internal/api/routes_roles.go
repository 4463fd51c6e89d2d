package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/handlers"
	"github.com/tbjornsen/grantor/internal/middleware"
	"github.com/tbjornsen/grantor/internal/models"
)

func registerRoleRoutes(api *gin.RouterGroup, db *gorm.DB, resolver *authz.Resolver) error {
	roleHandler, err := handlers.NewRoleHandler(db, resolver)
	if err != nil {
		return err
	}
	membershipHandler, err := handlers.NewUserRoleHandler(db, resolver)
	if err != nil {
		return err
	}
	grantHandler, err := handlers.NewRolePermissionHandler(db, resolver)
	if err != nil {
		return err
	}

	guard := func(typ models.PermissionType, mode middleware.AccessMode) gin.HandlerFunc {
		return middleware.RequireAccess(resolver, middleware.AccessRule{
			Set:   models.EntitySetRole,
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
			Set:  models.EntitySetRolePermission,
			Type: typ,
			Mode: middleware.ModeSetLevel,
		})
	}

	roles := api.Group("/roles")
	{
		roles.GET("", guard(models.PermissionRead, middleware.ModeSetLevel), roleHandler.List)
		roles.POST("", guard(models.PermissionCreate, middleware.ModeSetLevel), roleHandler.Create)
		roles.GET("/:id", guard(models.PermissionRead, middleware.ModeSingle), roleHandler.Get)
		roles.PATCH("/:id", guard(models.PermissionUpdate, middleware.ModeSingle), roleHandler.Update)
		roles.DELETE("/:id", guard(models.PermissionDelete, middleware.ModeSingle), roleHandler.Delete)

		roles.GET("/:id/members", membershipGuard(models.PermissionRead), membershipHandler.ListForRole)

		roles.GET("/:id/permissions", grantGuard(models.PermissionRead), grantHandler.ListForRole)
		roles.POST("/:id/permissions/:permission_id", grantGuard(models.PermissionCreate), grantHandler.Grant)
		roles.DELETE("/:id/permissions/:permission_id", grantGuard(models.PermissionDelete), grantHandler.Revoke)
	}

	return nil
}
