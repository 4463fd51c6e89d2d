package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbjornsen/grantor/internal/auditctx"
	iauth "github.com/tbjornsen/grantor/internal/auth"
	"github.com/tbjornsen/grantor/internal/middleware"
)

// requestContext returns the request context annotated with the acting
// principal so service-layer audit logging can attribute the event. Falls back
// to a background context for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}

	ctx := context.Background()
	actor := auditctx.Actor{}
	if req := c.Request; req != nil {
		ctx = req.Context()
		actor.IPAddress = c.ClientIP()
		actor.UserAgent = req.UserAgent()
	}
	if userID, ok := middleware.UserID(c); ok {
		actor.UserID = userID
	}
	if claims, exists := c.Get(middleware.CtxClaimsKey); exists {
		if parsed, ok := claims.(*iauth.Claims); ok {
			actor.Email = parsed.Email
		}
	}
	return auditctx.WithActor(ctx, actor)
}

// currentUserID resolves the authenticated principal from the gin context.
func currentUserID(c *gin.Context) (uint, bool) {
	return middleware.UserID(c)
}
