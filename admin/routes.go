package admin

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	basemodel "github.com/wisertogether/go-base-model"
)

// Mount attaches the admin routes to r under the configured base path.
// It installs the admin templates on the engine via SetHTMLTemplate, so
// an application serving its own HTML should use a dedicated engine for
// the admin.
func (a *Admin) Mount(r *gin.Engine) {
	r.SetHTMLTemplate(a.tmpl)

	store := cookie.NewStore([]byte(a.cfg.SessionSecret))
	g := r.Group(a.cfg.BasePath)
	g.Use(sessions.Sessions(a.cfg.SessionName, store))
	g.Use(a.injectUser())

	g.GET("/login", a.showLogin)
	g.POST("/login", a.login)
	g.GET("/logout", a.logout)

	authed := g.Group("")
	authed.Use(a.requireAuth())

	authed.GET("", a.index)

	authed.GET("/audit",
		a.requireRole(basemodel.RoleAdmin, basemodel.RoleViewer),
		a.listAudit,
	)

	authed.GET("/m/:model", a.listRecords)
	authed.GET("/m/:model/:id", a.showRecord)
	authed.POST("/m/:model/:id",
		a.requireRole(basemodel.RoleAdmin, basemodel.RoleEditor),
		a.updateRecord,
	)
	authed.POST("/m/:model/:id/attrs",
		a.requireRole(basemodel.RoleAdmin, basemodel.RoleEditor),
		a.addAttribute,
	)
	authed.POST("/m/:model/:id/attrs/:attr_id/delete",
		a.requireRole(basemodel.RoleAdmin, basemodel.RoleEditor),
		a.deleteAttribute,
	)

	g.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
}
