// Package models holds the demo server's host models. Both embed
// basemodel.Base, so they carry audit fields and accept dynamic
// attributes.
package models

import (
	basemodel "github.com/wisertogether/go-base-model"
)

type Organization struct {
	basemodel.Base
	Name     string `gorm:"size:255;not null"`
	Industry string `gorm:"size:100"`
	Website  string `gorm:"size:255"`
	Notes    string `gorm:"type:text"`

	Contacts []Contact
}

type Contact struct {
	basemodel.Base
	OrganizationID uint
	Organization   Organization

	Name  string `gorm:"size:255;not null"`
	Title string `gorm:"size:255"`
	Email string `gorm:"size:255"`
	Phone string `gorm:"size:50"`
}
