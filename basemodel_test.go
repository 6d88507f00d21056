package basemodel

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Widget is the host model used across the package tests.
type Widget struct {
	Base
	Name   string
	Rating int
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Use(Plugin{}))
	require.NoError(t, db.AutoMigrate(&User{}, &Attribute{}, &Widget{}))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, username string) *User {
	t.Helper()

	u := &User{Username: username, Role: RoleEditor}
	require.NoError(t, u.SetPassword("Secret123!"))
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestCreateStampsActor(t *testing.T) {
	db := newTestDB(t)
	u := newTestUser(t, db, "alice")

	w := Widget{Name: "anvil"}
	require.NoError(t, ForActor(db, u.ID).Create(&w).Error)

	var got Widget
	require.NoError(t, db.First(&got, w.ID).Error)
	require.NotNil(t, got.LastModifiedByID)
	require.Equal(t, u.ID, *got.LastModifiedByID)
	require.False(t, got.CreatedAt.IsZero())
	require.False(t, got.UpdatedAt.IsZero())
}

func TestCreateWithoutActorLeavesFieldEmpty(t *testing.T) {
	db := newTestDB(t)

	w := Widget{Name: "anvil"}
	require.NoError(t, db.Create(&w).Error)

	var got Widget
	require.NoError(t, db.First(&got, w.ID).Error)
	require.Nil(t, got.LastModifiedByID)
}

func TestSaveStampsActor(t *testing.T) {
	db := newTestDB(t)
	u := newTestUser(t, db, "alice")

	w := Widget{Name: "anvil"}
	require.NoError(t, db.Create(&w).Error)

	w.Name = "hammer"
	require.NoError(t, ForActor(db, u.ID).Save(&w).Error)

	var got Widget
	require.NoError(t, db.First(&got, w.ID).Error)
	require.Equal(t, "hammer", got.Name)
	require.NotNil(t, got.LastModifiedByID)
	require.Equal(t, u.ID, *got.LastModifiedByID)
}

func TestMapUpdatesStampActor(t *testing.T) {
	db := newTestDB(t)
	u := newTestUser(t, db, "bob")

	w := Widget{Name: "anvil"}
	require.NoError(t, db.Create(&w).Error)

	err := ForActor(db, u.ID).
		Model(&Widget{}).
		Where("id = ?", w.ID).
		Updates(map[string]interface{}{"name": "press"}).Error
	require.NoError(t, err)

	var got Widget
	require.NoError(t, db.First(&got, w.ID).Error)
	require.Equal(t, "press", got.Name)
	require.NotNil(t, got.LastModifiedByID)
	require.Equal(t, u.ID, *got.LastModifiedByID)
}

func TestActorContextRoundTrip(t *testing.T) {
	db := newTestDB(t)

	_, ok := ActorFrom(db.Statement.Context)
	require.False(t, ok)

	tx := ForActor(db, 42)
	id, ok := ActorFrom(tx.Statement.Context)
	require.True(t, ok)
	require.Equal(t, uint(42), id)
}

func TestUserPassword(t *testing.T) {
	u := &User{Username: "alice"}
	require.NoError(t, u.SetPassword("Secret123!"))
	require.NotEqual(t, "Secret123!", u.PasswordHash)
	require.True(t, u.CheckPassword("Secret123!"))
	require.False(t, u.CheckPassword("wrong"))
}

func TestUserDisplayName(t *testing.T) {
	u := &User{Username: "alice"}
	require.Equal(t, "alice", u.DisplayName())
	u.FullName = "Alice Liddell"
	require.Equal(t, "Alice Liddell", u.DisplayName())
}

func TestRegisterModelDeduplicates(t *testing.T) {
	before := len(Models())
	RegisterModel(&Widget{})
	RegisterModel(&Widget{})
	require.Equal(t, before+1, len(Models()))
}
