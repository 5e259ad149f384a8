package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Recovery translates panics into a generic JSON 500 so an unexpected
// failure never escapes as a bare stack trace.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logrus.WithFields(logrus.Fields{
					"request_id": c.GetString("request_id"),
					"panic":      err,
				}).Error("recovered from panic")

				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "Internal Server Error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
