package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/pkg/errors"
	"github.com/tbjornsen/grantor/pkg/response"
)

// Health returns a readiness handler that pings the database.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(requestContext(c))
		}
		if err != nil {
			response.Error(c, errors.ErrInternalServer.WithInternal(err))
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
