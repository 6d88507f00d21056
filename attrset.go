package basemodel

import (
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
)

// AttributeSet is the attribute manager bound to a single owning
// record. All reads and writes are scoped to that record's
// (owner type, owner id) pair, and writes are propagated back onto the
// in-memory owner so freshly created attributes show up as ad-hoc
// properties immediately.
type AttributeSet struct {
	db        *gorm.DB
	ownerType string
	ownerID   uint
	holder    attributeHolder
}

// Attributes returns the AttributeSet for owner, which must be a
// pointer to a saved model. The owner's table name and primary key form
// the generic pair the attributes are stored under.
func Attributes(db *gorm.DB, owner any) (*AttributeSet, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(owner); err != nil {
		return nil, fmt.Errorf("parse owner model: %w", err)
	}
	pk := stmt.Schema.PrioritizedPrimaryField
	if pk == nil {
		return nil, fmt.Errorf("owner model %s has no primary key", stmt.Schema.Name)
	}

	rv := reflect.ValueOf(owner)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	idVal, zero := pk.ValueOf(db.Statement.Context, rv)
	if zero {
		return nil, fmt.Errorf("%w: %s", ErrUnsavedOwner, stmt.Schema.Name)
	}
	id, ok := toUint(idVal)
	if !ok {
		return nil, fmt.Errorf("owner model %s has a non-integer primary key", stmt.Schema.Name)
	}

	holder, _ := owner.(attributeHolder)
	return &AttributeSet{
		db:        db,
		ownerType: stmt.Schema.Table,
		ownerID:   id,
		holder:    holder,
	}, nil
}

func (s *AttributeSet) scope(db *gorm.DB) *gorm.DB {
	return db.Where("owner_type = ? AND owner_id = ?", s.ownerType, s.ownerID)
}

// All returns every attribute of the owner, ordered by name.
func (s *AttributeSet) All() ([]Attribute, error) {
	var rows []Attribute
	err := s.scope(s.db).Order("name asc").Find(&rows).Error
	return rows, err
}

// Get returns the attribute with the given name. The name is
// normalized before lookup.
func (s *AttributeSet) Get(name string) (*Attribute, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	var row Attribute
	if err := s.scope(s.db).Where("name = ?", name).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Create stores a new attribute on the owner and mirrors it onto the
// in-memory object.
func (s *AttributeSet) Create(name, value string) (*Attribute, error) {
	row := &Attribute{
		OwnerType: s.ownerType,
		OwnerID:   s.ownerID,
		Name:      name,
		Value:     value,
	}
	if err := s.db.Create(row).Error; err != nil {
		return nil, err
	}
	s.propagate(row)
	return row, nil
}

// GetOrCreate returns the attribute with the given name, creating it
// with value when missing. The second result reports whether a row was
// created; an existing row keeps its stored value.
func (s *AttributeSet) GetOrCreate(name, value string) (*Attribute, bool, error) {
	row, err := s.Get(name)
	if err == nil {
		s.propagate(row)
		return row, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	row, err = s.Create(name, value)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// Add attaches existing attribute values to the owner, re-homing rows
// that currently belong to another record.
func (s *AttributeSet) Add(attrs ...*Attribute) error {
	for _, a := range attrs {
		a.OwnerType = s.ownerType
		a.OwnerID = s.ownerID
		if err := s.db.Save(a).Error; err != nil {
			return err
		}
		s.propagate(a)
	}
	return nil
}

// Remove deletes the given attribute rows and drops them from the
// in-memory owner. Attribute rows are removed permanently.
func (s *AttributeSet) Remove(attrs ...*Attribute) error {
	for _, a := range attrs {
		if a.ID == 0 {
			continue
		}
		if err := s.db.Unscoped().Delete(&Attribute{}, a.ID).Error; err != nil {
			return err
		}
		if s.holder != nil {
			s.holder.removeAttr(a.Name)
		}
	}
	return nil
}

// Clear deletes every attribute of the owner.
func (s *AttributeSet) Clear() error {
	if err := s.scope(s.db.Unscoped()).Delete(&Attribute{}).Error; err != nil {
		return err
	}
	if s.holder != nil {
		s.holder.resetAttrs()
	}
	return nil
}

func (s *AttributeSet) propagate(a *Attribute) {
	if s.holder != nil {
		s.holder.applyAttr(a.Name, a.Value)
	}
}

func toUint(v any) (uint, bool) {
	switch n := v.(type) {
	case uint:
		return n, true
	case uint8:
		return uint(n), true
	case uint16:
		return uint(n), true
	case uint32:
		return uint(n), true
	case uint64:
		return uint(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	case int8:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	case int16:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	case int32:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	default:
		return 0, false
	}
}
