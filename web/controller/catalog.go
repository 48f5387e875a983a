package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pricedesk/pricedesk/web/entity"
	"github.com/pricedesk/pricedesk/web/middleware"
	"github.com/pricedesk/pricedesk/web/service"
	"github.com/pricedesk/pricedesk/web/session"
)

// PasswordForm is the sidebar change-password form.
type PasswordForm struct {
	NewPassword string `json:"newPassword" form:"newPassword"`
	Query       string `json:"q" form:"q"`
}

// CatalogController serves the price lookup page to logged-in users.
type CatalogController struct {
	BaseController

	authService    *service.AuthService
	catalogService *service.CatalogService
}

// NewCatalogController registers the price routes under /prices.
func NewCatalogController(g *gin.RouterGroup, authService *service.AuthService, catalogService *service.CatalogService) *CatalogController {
	a := &CatalogController{authService: authService, catalogService: catalogService}
	a.initRouter(g)
	return a
}

func (a *CatalogController) initRouter(g *gin.RouterGroup) {
	g = g.Group("/prices")
	g.Use(a.checkLogin, middleware.NoStoreMiddleware())

	g.GET("", a.prices)
	g.POST("/password", a.changePassword)
}

func (a *CatalogController) prices(c *gin.Context) {
	a.render(c, c.Query("q"), nil)
}

func (a *CatalogController) changePassword(c *gin.Context) {
	var form PasswordForm
	if err := c.ShouldBind(&form); err != nil || form.NewPassword == "" {
		a.render(c, form.Query, failMsg("pages.prices.emptyPassword"))
		return
	}
	state := session.Get(c)
	if err := a.authService.ChangePassword(c.Request.Context(), state.Email, form.NewPassword); err != nil {
		a.render(c, form.Query, failMsg(service.UserMessage(err, service.MsgChangeFailed)))
		return
	}
	a.render(c, form.Query, successMsg("pages.prices.changed"))
}

// render shows the sidebar and the search result for term. An empty sheet
// means the store could not be read.
func (a *CatalogController) render(c *gin.Context, term string, sidebarMsg *entity.Msg) {
	state := session.Get(c)
	data := gin.H{
		"name":       state.Name,
		"email":      state.Email,
		"q":          term,
		"sidebarMsg": sidebarMsg,
	}

	table := a.catalogService.Load(c.Request.Context())
	if table.Empty() {
		data["msg"] = failMsg("pages.prices.dbError")
		html(c, "prices.html", "pages.prices.title", data)
		return
	}

	view := service.BuildView(a.catalogService.Search(table, term))
	if view.Count() > 0 && len(view.Columns) > 0 {
		data["view"] = view
		data["count"] = strconv.Itoa(view.Count())
	} else if term != "" {
		data["warning"] = "pages.prices.noData"
	}
	html(c, "prices.html", "pages.prices.title", data)
}
