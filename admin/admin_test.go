package admin

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	basemodel "github.com/wisertogether/go-base-model"
)

type Gadget struct {
	basemodel.Base
	Name  string
	Price int
}

func newTestAdmin(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:admin_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Use(basemodel.Plugin{}))
	require.NoError(t, db.AutoMigrate(
		&basemodel.User{}, &basemodel.Attribute{}, &AuditLog{}, &Gadget{},
	))

	a := New(db, Config{SessionSecret: "test-secret"})
	require.NoError(t, a.Register(&Gadget{}, Options{Title: "Gadgets"}))

	r := gin.New()
	a.Mount(r)
	return r, db
}

func createUser(t *testing.T, db *gorm.DB, username string, role basemodel.Role) *basemodel.User {
	t.Helper()
	u := &basemodel.User{Username: username, Role: role}
	require.NoError(t, u.SetPassword("Secret123!"))
	require.NoError(t, db.Create(u).Error)
	return u
}

func do(r *gin.Engine, method, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine, username string) []*http.Cookie {
	t.Helper()
	w := do(r, http.MethodPost, "/admin/login", url.Values{
		"username": {username},
		"password": {"Secret123!"},
	}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestLoginRequired(t *testing.T) {
	r, _ := newTestAdmin(t)

	w := do(r, http.MethodGet, "/admin", nil, nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/admin/login", w.Header().Get("Location"))
}

func TestLoginWrongPassword(t *testing.T) {
	r, db := newTestAdmin(t)
	createUser(t, db, "edith", basemodel.RoleEditor)

	w := do(r, http.MethodPost, "/admin/login", url.Values{
		"username": {"edith"},
		"password": {"nope"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndexListsModels(t *testing.T) {
	r, db := newTestAdmin(t)
	createUser(t, db, "edith", basemodel.RoleEditor)
	cookies := login(t, r, "edith")

	w := do(r, http.MethodGet, "/admin", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Gadgets")
}

func TestListRecords(t *testing.T) {
	r, db := newTestAdmin(t)
	createUser(t, db, "edith", basemodel.RoleEditor)
	cookies := login(t, r, "edith")

	require.NoError(t, db.Create(&Gadget{Name: "anvil", Price: 10}).Error)

	w := do(r, http.MethodGet, "/admin/m/gadgets", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "anvil")
}

func TestUpdateStampsActorAndAudits(t *testing.T) {
	r, db := newTestAdmin(t)
	u := createUser(t, db, "edith", basemodel.RoleEditor)
	cookies := login(t, r, "edith")

	g := Gadget{Name: "anvil", Price: 10}
	require.NoError(t, db.Create(&g).Error)

	path := fmt.Sprintf("/admin/m/gadgets/%d", g.ID)
	w := do(r, http.MethodPost, path, url.Values{
		"name":  {"hammer"},
		"price": {"25"},
	}, cookies)
	require.Equal(t, http.StatusFound, w.Code)

	var got Gadget
	require.NoError(t, db.First(&got, g.ID).Error)
	require.Equal(t, "hammer", got.Name)
	require.Equal(t, 25, got.Price)
	require.NotNil(t, got.LastModifiedByID)
	require.Equal(t, u.ID, *got.LastModifiedByID)

	var entry AuditLog
	require.NoError(t, db.Where("entity = ? AND entity_id = ? AND action = ?",
		"gadgets", g.ID, "update").First(&entry).Error)
	require.Equal(t, u.ID, entry.ActorID)
}

func TestDetailShowsAuditInfo(t *testing.T) {
	r, db := newTestAdmin(t)
	createUser(t, db, "edith", basemodel.RoleEditor)
	cookies := login(t, r, "edith")

	g := Gadget{Name: "anvil"}
	require.NoError(t, db.Create(&g).Error)

	path := fmt.Sprintf("/admin/m/gadgets/%d", g.ID)
	w := do(r, http.MethodPost, path, url.Values{"name": {"hammer"}}, cookies)
	require.Equal(t, http.StatusFound, w.Code)

	w = do(r, http.MethodGet, path, nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Last modified by")
	require.Contains(t, w.Body.String(), "edith")
}

func TestAttributeAddEditDelete(t *testing.T) {
	r, db := newTestAdmin(t)
	u := createUser(t, db, "edith", basemodel.RoleEditor)
	cookies := login(t, r, "edith")

	g := Gadget{Name: "anvil"}
	require.NoError(t, db.Create(&g).Error)

	attrPath := fmt.Sprintf("/admin/m/gadgets/%d/attrs", g.ID)
	w := do(r, http.MethodPost, attrPath, url.Values{
		"name":  {"Color"},
		"value": {"red"},
	}, cookies)
	require.Equal(t, http.StatusFound, w.Code)

	set, err := basemodel.Attributes(db, &g)
	require.NoError(t, err)
	a, err := set.Get("color")
	require.NoError(t, err)
	require.Equal(t, "red", a.Value)

	// posting the same name again replaces the value
	w = do(r, http.MethodPost, attrPath, url.Values{
		"name":  {"color"},
		"value": {"blue"},
	}, cookies)
	require.Equal(t, http.StatusFound, w.Code)

	a, err = set.Get("color")
	require.NoError(t, err)
	require.Equal(t, "blue", a.Value)

	var entry AuditLog
	require.NoError(t, db.Where("action = ?", "attr_set").First(&entry).Error)
	require.Equal(t, u.ID, entry.ActorID)

	delPath := fmt.Sprintf("/admin/m/gadgets/%d/attrs/%d/delete", g.ID, a.ID)
	w = do(r, http.MethodPost, delPath, nil, cookies)
	require.Equal(t, http.StatusFound, w.Code)

	_, err = set.Get("color")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestInvalidAttributeNameRejected(t *testing.T) {
	r, db := newTestAdmin(t)
	createUser(t, db, "edith", basemodel.RoleEditor)
	cookies := login(t, r, "edith")

	g := Gadget{Name: "anvil"}
	require.NoError(t, db.Create(&g).Error)

	attrPath := fmt.Sprintf("/admin/m/gadgets/%d/attrs", g.ID)
	w := do(r, http.MethodPost, attrPath, url.Values{
		"name":  {"9lives"},
		"value": {"x"},
	}, cookies)
	require.Equal(t, http.StatusBadRequest, w.Code)

	set, err := basemodel.Attributes(db, &g)
	require.NoError(t, err)
	all, err := set.All()
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestViewerCannotEdit(t *testing.T) {
	r, db := newTestAdmin(t)
	createUser(t, db, "vera", basemodel.RoleViewer)
	cookies := login(t, r, "vera")

	g := Gadget{Name: "anvil"}
	require.NoError(t, db.Create(&g).Error)

	path := fmt.Sprintf("/admin/m/gadgets/%d", g.ID)
	w := do(r, http.MethodPost, path, url.Values{"name": {"hammer"}}, cookies)
	require.Equal(t, http.StatusForbidden, w.Code)

	var got Gadget
	require.NoError(t, db.First(&got, g.ID).Error)
	require.Equal(t, "anvil", got.Name)
}

func TestAuditPageForbiddenForEditor(t *testing.T) {
	r, db := newTestAdmin(t)
	createUser(t, db, "edith", basemodel.RoleEditor)
	createUser(t, db, "root", basemodel.RoleAdmin)

	cookies := login(t, r, "edith")
	w := do(r, http.MethodGet, "/admin/audit", nil, cookies)
	require.Equal(t, http.StatusForbidden, w.Code)

	cookies = login(t, r, "root")
	w = do(r, http.MethodGet, "/admin/audit", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownModel(t *testing.T) {
	r, db := newTestAdmin(t)
	createUser(t, db, "edith", basemodel.RoleEditor)
	cookies := login(t, r, "edith")

	w := do(r, http.MethodGet, "/admin/m/nope", nil, cookies)
	require.Equal(t, http.StatusNotFound, w.Code)
}
