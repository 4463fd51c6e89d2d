package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/app"
	iauth "github.com/tbjornsen/grantor/internal/auth"
	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/cache"
	"github.com/tbjornsen/grantor/internal/handlers"
	"github.com/tbjornsen/grantor/internal/middleware"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, resolver *authz.Resolver, store cache.Store) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(store, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, db, cfg)
	registerMonitoringRoutes(r, cfg)

	authHandler, err := handlers.NewAuthHandler(db, jwt, resolver)
	if err != nil {
		return nil, err
	}

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	// Authenticated auth routes
	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	if err := registerUserRoutes(api, db, resolver); err != nil {
		return nil, err
	}
	if err := registerRoleRoutes(api, db, resolver); err != nil {
		return nil, err
	}
	if err := registerPermissionRoutes(api, db, resolver); err != nil {
		return nil, err
	}
	if err := registerAuditRoutes(api, db, resolver); err != nil {
		return nil, err
	}
	registerAccessRoutes(api, resolver)

	return r, nil
}
