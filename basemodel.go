// Package basemodel provides an embeddable GORM base model with audit
// fields (creation time, modification time, last-modifying user) and a
// generic name/value attribute store that can be attached to any record
// and surfaced as ad-hoc properties on the in-memory struct.
//
// Install the plugin once per *gorm.DB:
//
//	db.Use(basemodel.Plugin{})
//
// and embed Base into any model that should carry audit fields and
// dynamic attributes.
package basemodel

import (
	"context"
	"sort"

	"gorm.io/gorm"
)

// Base is the embeddable audit model. It carries the usual gorm.Model
// columns plus the ID of the user that last modified the record. The
// attribute maps are in-memory only; rows live in the attributes table.
type Base struct {
	gorm.Model
	LastModifiedByID *uint `gorm:"index"`

	attrs  map[string]string
	staged map[string]string
}

// Attr returns the value of a dynamic attribute materialized on this
// record. Names are matched in their normalized (lower-cased) form.
func (b *Base) Attr(name string) (string, bool) {
	v, ok := b.attrs[foldName(name)]
	return v, ok
}

// Attrs returns a copy of all attributes currently materialized on the
// record.
func (b *Base) Attrs() map[string]string {
	out := make(map[string]string, len(b.attrs))
	for k, v := range b.attrs {
		out[k] = v
	}
	return out
}

// AttrNames returns the materialized attribute names in sorted order.
func (b *Base) AttrNames() []string {
	names := make([]string, 0, len(b.attrs))
	for k := range b.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetAttr sets an attribute on the in-memory record. On a record that
// has not been saved yet the value is also staged, and the plugin
// persists it as an attribute row right after the record is created.
// For persisted records use AttributeSet to write through to the store.
func (b *Base) SetAttr(name, value string) {
	name = foldName(name)
	b.applyAttr(name, value)
	if b.ID == 0 {
		if b.staged == nil {
			b.staged = map[string]string{}
		}
		b.staged[name] = value
	}
}

func (b *Base) applyAttr(name, value string) {
	if b.attrs == nil {
		b.attrs = map[string]string{}
	}
	b.attrs[name] = value
}

func (b *Base) removeAttr(name string) {
	delete(b.attrs, name)
	delete(b.staged, name)
}

func (b *Base) resetAttrs() {
	b.attrs = nil
	b.staged = nil
}

func (b *Base) stagedAttrs() map[string]string {
	return b.staged
}

func (b *Base) takeStaged() map[string]string {
	s := b.staged
	b.staged = nil
	return s
}

// attributeHolder is satisfied by any pointer to a struct that embeds
// Base; the plugin and AttributeSet use it to push attribute values
// onto host objects.
type attributeHolder interface {
	applyAttr(name, value string)
	removeAttr(name string)
	resetAttrs()
	stagedAttrs() map[string]string
	takeStaged() map[string]string
}

type actorKey struct{}

// WithActor returns a context carrying the ID of the acting user. Saves
// performed with this context stamp the ID into LastModifiedByID.
func WithActor(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom reports the acting user recorded in ctx, if any.
func ActorFrom(ctx context.Context) (uint, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(actorKey{}).(uint)
	return id, ok
}

// ForActor returns a session of db whose context carries the acting
// user, so that every create and update made through it records the
// user as last modifier.
func ForActor(db *gorm.DB, userID uint) *gorm.DB {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return db.WithContext(WithActor(ctx, userID))
}
