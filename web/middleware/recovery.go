package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pricedesk/pricedesk/logger"
	"github.com/pricedesk/pricedesk/web/locale"
)

// ErrorTemplate is rendered for any request that panics.
const ErrorTemplate = "error.html"

// RecoveryMiddleware turns a panic into the generic busy page. The panic
// value and stack go to the operator log under a random incident reference,
// which is the only detail the browser sees.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		ref := uuid.NewString()
		logger.Errorf("incident %s: %s %s panicked: %v\n%s", ref, c.Request.Method, c.Request.URL.Path, recovered, debug.Stack())

		i18n := locale.Func(func(key string, params ...string) string { return key })
		if f, ok := c.Get("I18n"); ok {
			if fn, ok := f.(locale.Func); ok {
				i18n = fn
			}
		}
		c.HTML(http.StatusInternalServerError, ErrorTemplate, gin.H{
			"i18n": i18n,
			"lang": c.GetString("lang"),
			"ref":  ref,
		})
		c.Abort()
	})
}
