package middleware

import (
	"github.com/gin-gonic/gin"
)

// Security headers middleware
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")

		// Every response reflects live host state; intermediaries must not
		// replay an old reading.
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}

// CORS middleware. Only GET is advertised; preflight requests are not
// answered here and fall through to the router like any other request.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		} else {
			c.Header("Access-Control-Allow-Origin", "*")
		}
		c.Header("Access-Control-Allow-Methods", "GET")
		c.Next()
	}
}
