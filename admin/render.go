package admin

import (
	"github.com/gin-gonic/gin"

	basemodel "github.com/wisertogether/go-base-model"
)

// render wraps c.HTML and makes the base path and the signed-in user
// available to every template.
func (a *Admin) render(c *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["BasePath"] = a.cfg.BasePath

	if uVal, ok := c.Get(ctxUserKey); ok {
		switch u := uVal.(type) {
		case basemodel.User:
			data["CurrentUser"] = u
			data["CurrentUsername"] = u.Username
			data["CurrentUserRole"] = u.Role
		case *basemodel.User:
			data["CurrentUser"] = u
			data["CurrentUsername"] = u.Username
			data["CurrentUserRole"] = u.Role
		}
	}

	c.HTML(status, tmpl, data)
}
