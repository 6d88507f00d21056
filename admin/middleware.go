package admin

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	basemodel "github.com/wisertogether/go-base-model"
)

const (
	ctxUserKey = "CurrentUser"
	ctxDBKey   = "AdminDB"
)

// injectUser resolves the session user and prepares a request-scoped DB
// whose context carries that user as the acting modifier, so every save
// in the handlers stamps LastModifiedByID.
func (a *Admin) injectUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := a.db.WithContext(c.Request.Context())

		sess := sessions.Default(c)
		if uidRaw := sess.Get("user_id"); uidRaw != nil {
			if uid, ok := uidRaw.(uint); ok && uid > 0 {
				var user basemodel.User
				if err := a.db.First(&user, uid).Error; err == nil {
					c.Set(ctxUserKey, user)
					db = basemodel.ForActor(db, user.ID)
				}
			}
		}

		c.Set(ctxDBKey, db)
		c.Next()
	}
}

func (a *Admin) reqDB(c *gin.Context) *gorm.DB {
	if v, ok := c.Get(ctxDBKey); ok {
		if db, ok := v.(*gorm.DB); ok {
			return db
		}
	}
	return a.db
}

func (a *Admin) currentUser(c *gin.Context) (basemodel.User, bool) {
	if v, ok := c.Get(ctxUserKey); ok {
		if u, ok := v.(basemodel.User); ok {
			return u, true
		}
	}
	return basemodel.User{}, false
}

func (a *Admin) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		if sess.Get("user_id") == nil {
			c.Redirect(http.StatusFound, a.path("/login"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *Admin) requireRole(roles ...basemodel.Role) gin.HandlerFunc {
	roleSet := map[basemodel.Role]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		sess := sessions.Default(c)
		roleStr, ok := sess.Get("role").(string)
		if !ok {
			c.Redirect(http.StatusFound, a.path("/login"))
			c.Abort()
			return
		}

		if _, ok := roleSet[basemodel.Role(roleStr)]; !ok {
			c.String(http.StatusForbidden, "access denied")
			c.Abort()
			return
		}
		c.Next()
	}
}
