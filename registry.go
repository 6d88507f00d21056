package basemodel

import (
	"reflect"
	"sync"

	"gorm.io/gorm"
)

var (
	regMu      sync.Mutex
	registered []any
)

// RegisterModel records models for AutoMigrate. Registering the same
// model type twice is a no-op.
func RegisterModel(models ...any) {
	regMu.Lock()
	defer regMu.Unlock()
	for _, m := range models {
		t := reflect.TypeOf(m)
		dup := false
		for _, r := range registered {
			if reflect.TypeOf(r) == t {
				dup = true
				break
			}
		}
		if !dup {
			registered = append(registered, m)
		}
	}
}

// Models returns the registered models.
func Models() []any {
	regMu.Lock()
	defer regMu.Unlock()
	out := make([]any, len(registered))
	copy(out, registered)
	return out
}

// AutoMigrate migrates the library tables (users, attributes) together
// with every registered model.
func AutoMigrate(db *gorm.DB) error {
	all := append([]any{&User{}, &Attribute{}}, Models()...)
	return db.AutoMigrate(all...)
}
