package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pricedesk/pricedesk/logger"
	"github.com/pricedesk/pricedesk/web/entity"
	"github.com/pricedesk/pricedesk/web/service"
	"github.com/pricedesk/pricedesk/web/session"
)

const (
	tabLogin  = "login"
	tabForgot = "forgot"
)

// LoginForm represents the login request structure.
type LoginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ForgotForm is the password reset request.
type ForgotForm struct {
	Email string `json:"email" form:"email"`
}

// IndexController handles the login page, password reset and logout.
type IndexController struct {
	BaseController

	authService *service.AuthService
}

// NewIndexController creates a new IndexController and initializes its routes.
func NewIndexController(g *gin.RouterGroup, authService *service.AuthService) *IndexController {
	a := &IndexController{authService: authService}
	a.initRouter(g)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup) {
	g.GET("/", a.index)
	g.GET("/logout", a.logout)

	g.POST("/login", a.login)
	g.POST("/forgot", a.forgot)
}

// index redirects logged-in users to the price page and shows everyone else
// the login page.
func (a *IndexController) index(c *gin.Context) {
	state := session.Get(c)
	if state.LoggedIn {
		c.Redirect(http.StatusSeeOther, "/prices")
		return
	}
	tab := tabLogin
	if c.Query("tab") == tabForgot {
		tab = tabForgot
	}
	a.renderLogin(c, state, tab, nil)
}

func (a *IndexController) renderLogin(c *gin.Context, state *session.State, tab string, msg *entity.Msg) {
	html(c, "login.html", "pages.login.title", gin.H{
		"tab":    tab,
		"locked": state.Locked(),
		"msg":    msg,
	})
}

// login checks the submitted credentials. A locked session is turned away
// before the store is contacted.
func (a *IndexController) login(c *gin.Context) {
	state := session.Get(c)
	if state.LoggedIn {
		c.Redirect(http.StatusSeeOther, "/prices")
		return
	}
	if state.Locked() {
		logger.Warningf("login rejected for locked session, IP: %s", getRemoteIp(c))
		a.renderLogin(c, state, tabLogin, nil)
		return
	}

	var form LoginForm
	if err := c.ShouldBind(&form); err != nil || strings.TrimSpace(form.Email) == "" || form.Password == "" {
		a.renderLogin(c, state, tabLogin, failMsg("pages.login.emptyCredentials"))
		return
	}
	email := strings.TrimSpace(form.Email)

	name, err := a.authService.Login(c.Request.Context(), email, form.Password)
	if err != nil {
		if service.IsCredentialFailure(err) {
			state.RecordFailure()
			if saveErr := session.Save(c, state); saveErr != nil {
				logger.Warning("Unable to save session:", saveErr)
			}
			logger.Warningf("failed login for %q (%d/%d), IP: %s", email, state.FailedAttempts, session.MaxFailedAttempts, getRemoteIp(c))
		}
		a.renderLogin(c, state, tabLogin, failMsg(service.UserMessage(err, service.MsgLoginError)))
		return
	}

	state.Login(email, name)
	if err := session.Save(c, state); err != nil {
		logger.Warning("Unable to save session:", err)
		a.renderLogin(c, &session.State{}, tabLogin, failMsg(service.MsgLoginError))
		return
	}
	logger.Infof("%s logged in successfully, Ip Address: %s", email, getRemoteIp(c))
	c.Redirect(http.StatusSeeOther, "/prices")
}

// forgot mails a new password to the given address.
func (a *IndexController) forgot(c *gin.Context) {
	state := session.Get(c)
	var form ForgotForm
	if err := c.ShouldBind(&form); err != nil || strings.TrimSpace(form.Email) == "" {
		a.renderLogin(c, state, tabForgot, failMsg("pages.login.emptyEmail"))
		return
	}
	if err := a.authService.ResetPassword(c.Request.Context(), form.Email); err != nil {
		a.renderLogin(c, state, tabForgot, failMsg(service.UserMessage(err, service.MsgResetFailed)))
		return
	}
	logger.Infof("password reset mailed to %s, IP: %s", strings.TrimSpace(form.Email), getRemoteIp(c))
	a.renderLogin(c, state, tabForgot, successMsg("pages.login.resetSuccess"))
}

// logout clears the identity and returns to the login page.
func (a *IndexController) logout(c *gin.Context) {
	state := session.Get(c)
	if state.LoggedIn {
		logger.Infof("%s logged out successfully", state.Email)
	}
	if err := session.Logout(c); err != nil {
		logger.Warning("Unable to save session after clearing:", err)
	}
	c.Redirect(http.StatusSeeOther, "/")
}
