package middleware

import "github.com/gin-gonic/gin"

// NoStoreMiddleware keeps browsers and proxies from storing the response.
// Price pages are per-user and must not outlive the session.
func NoStoreMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
