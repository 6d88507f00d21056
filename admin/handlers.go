package admin

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/schema"

	basemodel "github.com/wisertogether/go-base-model"
)

const timeLayout = "2006-01-02 15:04:05"

type modelSummary struct {
	Title string
	Slug  string
	Count int64
}

func (a *Admin) index(c *gin.Context) {
	summaries := make([]modelSummary, 0, len(a.models))
	for _, mm := range a.models {
		var count int64
		a.db.Model(mm.newPtr()).Count(&count)
		summaries = append(summaries, modelSummary{
			Title: mm.title,
			Slug:  mm.slug,
			Count: count,
		})
	}
	a.render(c, http.StatusOK, "index.html", gin.H{"models": summaries})
}

type listRow struct {
	ID    uint
	Cells []string
}

func (a *Admin) listRecords(c *gin.Context) {
	mm, ok := a.bySlug[c.Param("model")]
	if !ok {
		c.String(http.StatusNotFound, "unknown model")
		return
	}

	slice := mm.newSlicePtr()
	if err := a.reqDB(c).Order("id desc").Limit(200).Find(slice).Error; err != nil {
		c.String(http.StatusInternalServerError, "failed to load records")
		return
	}

	columns := make([]string, 0, len(mm.fields))
	for _, f := range mm.fields {
		columns = append(columns, f.Name)
	}

	var rows []listRow
	rv := reflect.ValueOf(slice).Elem()
	for i := 0; i < rv.Len(); i++ {
		rec := rv.Index(i)
		row := listRow{ID: recordID(c, mm, rec)}
		for _, f := range mm.fields {
			row.Cells = append(row.Cells, formatField(c, f, rec))
		}
		rows = append(rows, row)
	}

	a.render(c, http.StatusOK, "model_list.html", gin.H{
		"Title":   mm.title,
		"Slug":    mm.slug,
		"Columns": columns,
		"Rows":    rows,
	})
}

func (a *Admin) showRecord(c *gin.Context) {
	mm, rec, ok := a.loadRecord(c)
	if !ok {
		return
	}
	a.renderDetail(c, http.StatusOK, mm, rec, "")
}

func (a *Admin) updateRecord(c *gin.Context) {
	mm, rec, ok := a.loadRecord(c)
	if !ok {
		return
	}
	db := a.reqDB(c)
	rv := reflect.ValueOf(rec).Elem()

	for _, f := range mm.fields {
		raw, present := c.GetPostForm(f.DBName)
		if !present {
			continue
		}
		if err := setField(c, f, rv, raw); err != nil {
			a.renderDetail(c, http.StatusBadRequest, mm, rec,
				fmt.Sprintf("Invalid value for %s", f.Name))
			return
		}
	}

	if err := db.Save(rec).Error; err != nil {
		a.renderDetail(c, http.StatusInternalServerError, mm, rec, "Failed to save record")
		return
	}

	id := recordID(c, mm, rv)
	a.recordAudit(c, mm.slug, id, "update", "record updated through admin")
	c.Redirect(http.StatusFound, a.path("/m/"+mm.slug+"/"+strconv.FormatUint(uint64(id), 10)))
}

func (a *Admin) addAttribute(c *gin.Context) {
	mm, rec, ok := a.loadRecord(c)
	if !ok {
		return
	}
	db := a.reqDB(c)

	name := c.PostForm("name")
	value := c.PostForm("value")

	set, err := basemodel.Attributes(db, rec)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to resolve attributes")
		return
	}

	row, created, err := set.GetOrCreate(name, value)
	if err != nil {
		if errors.Is(err, basemodel.ErrInvalidAttributeName) {
			a.renderDetail(c, http.StatusBadRequest, mm, rec,
				"Attribute names must start with a letter and contain only letters, digits and underscores")
			return
		}
		a.renderDetail(c, http.StatusInternalServerError, mm, rec, "Failed to save attribute")
		return
	}
	if !created && row.Value != value {
		row.Value = value
		if err := set.Add(row); err != nil {
			a.renderDetail(c, http.StatusInternalServerError, mm, rec, "Failed to save attribute")
			return
		}
	}

	id := recordID(c, mm, reflect.ValueOf(rec).Elem())
	a.recordAudit(c, mm.slug, id, "attr_set", row.Name+"="+row.Value)
	c.Redirect(http.StatusFound, a.path("/m/"+mm.slug+"/"+strconv.FormatUint(uint64(id), 10)))
}

func (a *Admin) deleteAttribute(c *gin.Context) {
	mm, rec, ok := a.loadRecord(c)
	if !ok {
		return
	}
	db := a.reqDB(c)

	attrID, err := strconv.Atoi(c.Param("attr_id"))
	if err != nil || attrID <= 0 {
		c.String(http.StatusBadRequest, "invalid attribute id")
		return
	}

	set, err := basemodel.Attributes(db, rec)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to resolve attributes")
		return
	}

	var attr basemodel.Attribute
	if err := db.First(&attr, attrID).Error; err != nil {
		c.String(http.StatusNotFound, "attribute not found")
		return
	}
	id := recordID(c, mm, reflect.ValueOf(rec).Elem())
	if attr.OwnerType != mm.slug || attr.OwnerID != id {
		c.String(http.StatusNotFound, "attribute not found")
		return
	}

	if err := set.Remove(&attr); err != nil {
		c.String(http.StatusInternalServerError, "failed to delete attribute")
		return
	}

	a.recordAudit(c, mm.slug, id, "attr_delete", attr.Name)
	c.Redirect(http.StatusFound, a.path("/m/"+mm.slug+"/"+strconv.FormatUint(uint64(id), 10)))
}

// loadRecord resolves the managed model and record referenced by the
// :model and :id route params, replying with the right status when
// either is missing.
func (a *Admin) loadRecord(c *gin.Context) (*managedModel, any, bool) {
	mm, ok := a.bySlug[c.Param("model")]
	if !ok {
		c.String(http.StatusNotFound, "unknown model")
		return nil, nil, false
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "invalid record id")
		return nil, nil, false
	}

	rec := mm.newPtr()
	if err := a.reqDB(c).First(rec, id).Error; err != nil {
		c.String(http.StatusNotFound, "record not found")
		return nil, nil, false
	}
	return mm, rec, true
}

type fieldRow struct {
	Label string
	Name  string
	Value string
}

func (a *Admin) renderDetail(c *gin.Context, status int, mm *managedModel, rec any, errMsg string) {
	rv := reflect.ValueOf(rec).Elem()
	id := recordID(c, mm, rv)

	fields := make([]fieldRow, 0, len(mm.fields))
	for _, f := range mm.fields {
		fields = append(fields, fieldRow{
			Label: f.Name,
			Name:  f.DBName,
			Value: formatField(c, f, rv),
		})
	}

	attrs, _ := a.recordAttributes(c, rec)

	a.render(c, status, "model_detail.html", gin.H{
		"Title":          mm.title,
		"Slug":           mm.slug,
		"ID":             id,
		"Fields":         fields,
		"Created":        formatTimeField(c, mm.schema, "CreatedAt", rv),
		"Updated":        formatTimeField(c, mm.schema, "UpdatedAt", rv),
		"LastModifiedBy": a.lastModifiedByName(c, mm.schema, rv),
		"Attrs":          attrs,
		"error":          errMsg,
	})
}

func (a *Admin) recordAttributes(c *gin.Context, rec any) ([]basemodel.Attribute, error) {
	set, err := basemodel.Attributes(a.reqDB(c), rec)
	if err != nil {
		return nil, err
	}
	return set.All()
}

// lastModifiedByName resolves the display name of the last modifying
// user, empty when the record was never touched through an actor-aware
// save.
func (a *Admin) lastModifiedByName(c *gin.Context, s *schema.Schema, rv reflect.Value) string {
	f := s.LookUpField("LastModifiedByID")
	if f == nil {
		return ""
	}
	v, zero := f.ValueOf(c.Request.Context(), rv)
	if zero {
		return ""
	}
	var id uint
	switch n := v.(type) {
	case *uint:
		if n == nil {
			return ""
		}
		id = *n
	case uint:
		id = n
	default:
		return ""
	}

	var user basemodel.User
	if err := a.db.First(&user, id).Error; err != nil {
		return ""
	}
	return user.DisplayName()
}

func recordID(c *gin.Context, mm *managedModel, rv reflect.Value) uint {
	pk := mm.schema.PrioritizedPrimaryField
	if pk == nil {
		return 0
	}
	v, zero := pk.ValueOf(c.Request.Context(), rv)
	if zero {
		return 0
	}
	switch n := v.(type) {
	case uint:
		return n
	case int64:
		return uint(n)
	case uint64:
		return uint(n)
	}
	return 0
}

func formatField(c *gin.Context, f *schema.Field, rv reflect.Value) string {
	v, zero := f.ValueOf(c.Request.Context(), rv)
	if zero {
		return ""
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(timeLayout)
	}
	return fmt.Sprintf("%v", v)
}

func formatTimeField(c *gin.Context, s *schema.Schema, name string, rv reflect.Value) string {
	f := s.LookUpField(name)
	if f == nil {
		return ""
	}
	return formatField(c, f, rv)
}

func setField(c *gin.Context, f *schema.Field, rv reflect.Value, raw string) error {
	ctx := c.Request.Context()
	switch f.FieldType.Kind() {
	case reflect.String:
		return f.Set(ctx, rv, raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		return f.Set(ctx, rv, b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		return f.Set(ctx, rv, n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		return f.Set(ctx, rv, n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		return f.Set(ctx, rv, n)
	}
	return fmt.Errorf("field %s is not editable", f.Name)
}
