package middleware

import (
	"net/http"

	"github.com/edgeform/contact-gateway/internal/origin"
	"github.com/gin-gonic/gin"
)

// CORS computes response headers from the validated origin. An origin
// off the allow-list gets "null", which blocks browser reads without
// revealing the list. Preflights are answered here and rejected with
// 403 when the origin fails the same check the real request faces.
func CORS(validator *origin.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqOrigin, allowed := validator.Check(c.Request)

		allowValue := "null"
		if allowed {
			allowValue = reqOrigin
		}

		c.Header("Access-Control-Allow-Origin", allowValue)
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Header("Access-Control-Max-Age", "86400")
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			if !allowed {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
