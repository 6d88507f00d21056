package basemodel

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrInvalidAttributeName is returned when an attribute name does not
	// normalize to a valid identifier.
	ErrInvalidAttributeName = errors.New("invalid attribute name")

	// ErrNoOwner is returned when an attribute is saved without an
	// (owner type, owner id) pair.
	ErrNoOwner = errors.New("attribute has no owner")

	// ErrUnsavedOwner is returned when attributes are requested for a
	// record that has no primary key yet.
	ErrUnsavedOwner = errors.New("owner record has not been saved")
)

var attrNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const maxAttrNameLen = 255

// Attribute is a single name/value pair generically attached to a
// record through an (owner type, owner id) pair, where the owner type
// is the owning model's table name. Names are lower-cased on save and
// unique per owner.
type Attribute struct {
	Base
	OwnerType string `gorm:"size:255;not null;uniqueIndex:idx_attributes_owner_name,priority:1;index:idx_attributes_owner,priority:1"`
	OwnerID   uint   `gorm:"not null;uniqueIndex:idx_attributes_owner_name,priority:2;index:idx_attributes_owner,priority:2"`
	Name      string `gorm:"size:255;not null;uniqueIndex:idx_attributes_owner_name,priority:3"`
	Value     string `gorm:"type:text"`
}

// NormalizeName trims and lower-cases an attribute name and validates
// it: names must start with a letter and contain only lower-case
// letters, digits and underscores.
func NormalizeName(name string) (string, error) {
	name = foldName(name)
	if len(name) > maxAttrNameLen || !attrNameRe.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAttributeName, name)
	}
	return name, nil
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BeforeSave normalizes and validates the attribute before it hits the
// database.
func (a *Attribute) BeforeSave(tx *gorm.DB) error {
	name, err := NormalizeName(a.Name)
	if err != nil {
		return err
	}
	a.Name = name
	if a.OwnerType == "" || a.OwnerID == 0 {
		return fmt.Errorf("%w: %q", ErrNoOwner, a.Name)
	}
	return nil
}

// Int parses the value as a base-10 integer.
func (a *Attribute) Int() (int64, error) {
	return strconv.ParseInt(a.Value, 10, 64)
}

// Bool parses the value with strconv.ParseBool.
func (a *Attribute) Bool() (bool, error) {
	return strconv.ParseBool(a.Value)
}

// Decimal parses the value as an exact decimal number.
func (a *Attribute) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(a.Value)
}

// Time parses the value as RFC 3339.
func (a *Attribute) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, a.Value)
}
