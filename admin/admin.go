// Package admin mounts a small administrative UI for models that embed
// basemodel.Base: record listing and editing with the audit fields shown
// read-only, inline dynamic attribute editing, session authentication
// against basemodel.User and an audit trail of every change made here.
// Saves performed through the admin stamp the signed-in user as the
// record's last modifier.
package admin

import (
	"embed"
	"fmt"
	"html/template"
	"reflect"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	basemodel "github.com/wisertogether/go-base-model"
)

//go:embed templates/*.html
var templateFS embed.FS

type Config struct {
	// SessionSecret signs the session cookie. Required.
	SessionSecret string
	// BasePath is the URL prefix, "/admin" when empty.
	BasePath string
	// SessionName is the cookie name, "basemodel_admin" when empty.
	SessionName string
}

type Admin struct {
	db     *gorm.DB
	cfg    Config
	tmpl   *template.Template
	models []*managedModel
	bySlug map[string]*managedModel
}

// Options tunes how a registered model is presented.
type Options struct {
	// Title shown in the UI; defaults to the model's struct name.
	Title string
	// Fields restricts the editable fields (struct field names).
	// Defaults to every plain value field outside the audit set.
	Fields []string
}

// audit columns are displayed but never editable
var readonlyFields = map[string]bool{
	"ID":               true,
	"CreatedAt":        true,
	"UpdatedAt":        true,
	"DeletedAt":        true,
	"LastModifiedByID": true,
}

type managedModel struct {
	title  string
	slug   string
	schema *schema.Schema
	fields []*schema.Field
}

func (m *managedModel) newPtr() any {
	return reflect.New(m.schema.ModelType).Interface()
}

func (m *managedModel) newSlicePtr() any {
	return reflect.New(reflect.SliceOf(m.schema.ModelType)).Interface()
}

func New(db *gorm.DB, cfg Config) *Admin {
	if cfg.BasePath == "" {
		cfg.BasePath = "/admin"
	}
	cfg.BasePath = strings.TrimRight(cfg.BasePath, "/")
	if cfg.SessionName == "" {
		cfg.SessionName = "basemodel_admin"
	}

	basemodel.RegisterModel(&AuditLog{})

	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
	return &Admin{
		db:     db,
		cfg:    cfg,
		tmpl:   tmpl,
		bySlug: map[string]*managedModel{},
	}
}

// Register declares a model as managed by this admin. The model must be
// a pointer to a struct embedding basemodel.Base.
func (a *Admin) Register(model any, opts Options) error {
	s, err := schema.Parse(model, &sync.Map{}, a.db.NamingStrategy)
	if err != nil {
		return fmt.Errorf("parse model: %w", err)
	}
	if _, ok := a.bySlug[s.Table]; ok {
		return fmt.Errorf("model %s already registered", s.Name)
	}

	mm := &managedModel{
		title:  opts.Title,
		slug:   s.Table,
		schema: s,
	}
	if mm.title == "" {
		mm.title = s.Name
	}

	if len(opts.Fields) > 0 {
		for _, name := range opts.Fields {
			f := s.LookUpField(name)
			if f == nil {
				return fmt.Errorf("model %s has no field %s", s.Name, name)
			}
			if readonlyFields[f.Name] || !editableKind(f) {
				return fmt.Errorf("field %s.%s is not editable", s.Name, name)
			}
			mm.fields = append(mm.fields, f)
		}
	} else {
		for _, f := range s.Fields {
			if f.DBName == "" || readonlyFields[f.Name] || !editableKind(f) {
				continue
			}
			mm.fields = append(mm.fields, f)
		}
	}

	basemodel.RegisterModel(model)
	a.models = append(a.models, mm)
	a.bySlug[mm.slug] = mm
	return nil
}

func editableKind(f *schema.Field) bool {
	switch f.FieldType.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (a *Admin) path(suffix string) string {
	return a.cfg.BasePath + suffix
}
