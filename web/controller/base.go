// Package controller provides the HTTP handlers of the price desk: login,
// password reset, logout and the price lookup page.
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricedesk/pricedesk/logger"
	"github.com/pricedesk/pricedesk/web/locale"
	"github.com/pricedesk/pricedesk/web/session"
)

// BaseController provides common functionality for all controllers, including authentication checks.
type BaseController struct{}

// checkLogin aborts requests from sessions that are not logged in and sends
// them to the login page.
func (a *BaseController) checkLogin(c *gin.Context) {
	if !session.IsLogin(c) {
		c.Redirect(http.StatusSeeOther, "/")
		c.Abort()
	} else {
		c.Next()
	}
}

// I18nWeb retrieves an internationalized message for the web interface based on the current locale.
func I18nWeb(c *gin.Context, name string, params ...string) string {
	return i18nFunc(c)(name, params...)
}

func i18nFunc(c *gin.Context) locale.Func {
	anyfunc, funcExists := c.Get("I18n")
	if !funcExists {
		logger.Warning("I18n function not exists in gin context!")
		return func(key string, _ ...string) string { return key }
	}
	fn, _ := anyfunc.(locale.Func)
	if fn == nil {
		return func(key string, _ ...string) string { return key }
	}
	return fn
}
