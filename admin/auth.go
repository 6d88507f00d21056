package admin

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	basemodel "github.com/wisertogether/go-base-model"
)

func (a *Admin) showLogin(c *gin.Context) {
	a.render(c, http.StatusOK, "login.html", gin.H{"error": ""})
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (a *Admin) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		a.render(c, http.StatusBadRequest, "login.html", gin.H{"error": "Invalid form data"})
		return
	}
	form.Username = strings.TrimSpace(form.Username)

	var user basemodel.User
	if err := a.db.Where("username = ?", form.Username).First(&user).Error; err != nil {
		a.render(c, http.StatusBadRequest, "login.html", gin.H{"error": "Wrong username or password"})
		return
	}
	if !user.CheckPassword(form.Password) {
		a.render(c, http.StatusBadRequest, "login.html", gin.H{"error": "Wrong username or password"})
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	sess.Set("role", string(user.Role))
	_ = sess.Save()

	c.Redirect(http.StatusFound, a.path(""))
}

func (a *Admin) logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.Redirect(http.StatusFound, a.path("/login"))
}
