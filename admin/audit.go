package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	basemodel "github.com/wisertogether/go-base-model"
)

// AuditLog records a mutation performed through the admin surface.
type AuditLog struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	ActorID uint `gorm:"index"`
	Actor   basemodel.User

	Entity   string `gorm:"size:50;not null"`
	EntityID uint
	Action   string `gorm:"size:50;not null"`
	Details  string `gorm:"type:text"`
}

// recordAudit appends an audit entry for the current user. Best effort:
// a failed audit write never fails the request.
func (a *Admin) recordAudit(c *gin.Context, entity string, entityID uint, action, details string) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}
	entry := AuditLog{
		ActorID:  user.ID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	_ = a.db.Create(&entry).Error
}

func (a *Admin) listAudit(c *gin.Context) {
	var logs []AuditLog
	a.db.
		Preload("Actor").
		Order("created_at desc").
		Limit(200).
		Find(&logs)

	a.render(c, http.StatusOK, "audit_list.html", gin.H{
		"logs": logs,
	})
}
