package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/handlers"
)

// Access inspection answers questions about the caller's own grants, so the
// routes sit behind authentication only.
func registerAccessRoutes(api *gin.RouterGroup, resolver *authz.Resolver) {
	handler := handlers.NewAccessHandler(resolver)

	access := api.Group("/access")
	{
		access.GET("/:set/types", handler.Types)
		access.GET("/:set/:type/check", handler.Check)
		access.GET("/:set/:type/check-all", handler.CheckAll)
		access.GET("/:set/:type/entities", handler.Entities)
	}
}
