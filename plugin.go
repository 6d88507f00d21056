package basemodel

import (
	"reflect"
	"sort"

	"gorm.io/gorm"
)

// settings key that suppresses attribute loading for internal queries.
const skipAttrLoad = "basemodel:skip_attr_load"

var attributeType = reflect.TypeOf(Attribute{})

// Plugin wires the audit and attribute behavior into a *gorm.DB:
//
//   - creates and updates stamp the context actor into LastModifiedByID;
//   - queries prefetch attribute rows for every result that embeds Base
//     and materialize them as in-memory attributes (one extra query per
//     result set, not per row);
//   - creates flush attribute values staged with SetAttr before the
//     record existed. Staged names are validated before the insert and
//     the flush runs inside the create transaction, so a bad attribute
//     never leaves a host row behind.
type Plugin struct{}

func (Plugin) Name() string { return "basemodel" }

func (Plugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").
		Register("basemodel:stamp_actor", stampActorOnCreate); err != nil {
		return err
	}
	if err := db.Callback().Create().Before("gorm:create").
		Register("basemodel:validate_staged", validateStagedAttributes); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").
		Register("basemodel:stamp_actor", stampActorOnUpdate); err != nil {
		return err
	}
	if err := db.Callback().Query().After("gorm:query").
		Register("basemodel:load_attributes", loadAttributes); err != nil {
		return err
	}
	// ordered before the commit so the attribute writes join the create
	// transaction and a failure rolls back the host insert
	if err := db.Callback().Create().After("gorm:create").
		Before("gorm:commit_or_rollback_transaction").
		Register("basemodel:flush_attributes", flushStagedAttributes); err != nil {
		return err
	}
	return nil
}

func stampActorOnCreate(db *gorm.DB) {
	stmt := db.Statement
	if stmt == nil || stmt.Schema == nil {
		return
	}
	actor, ok := ActorFrom(stmt.Context)
	if !ok {
		return
	}
	field := stmt.Schema.LookUpField("LastModifiedByID")
	if field == nil {
		return
	}

	switch stmt.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < stmt.ReflectValue.Len(); i++ {
			_ = field.Set(stmt.Context, stmt.ReflectValue.Index(i), &actor)
		}
	case reflect.Struct:
		_ = field.Set(stmt.Context, stmt.ReflectValue, &actor)
	}
}

func stampActorOnUpdate(db *gorm.DB) {
	stmt := db.Statement
	if stmt == nil || stmt.Schema == nil {
		return
	}
	actor, ok := ActorFrom(stmt.Context)
	if !ok {
		return
	}
	if stmt.Schema.LookUpField("LastModifiedByID") == nil {
		return
	}
	stmt.SetColumn("LastModifiedByID", &actor, true)
}

// loadAttributes runs after every query and materializes stored
// attributes onto results that embed Base. All rows for the result set
// are fetched in a single query keyed by the owner pair.
func loadAttributes(db *gorm.DB) {
	stmt := db.Statement
	if db.Error != nil || stmt == nil || stmt.Schema == nil || stmt.Table == "" {
		return
	}
	if _, skip := db.Get(skipAttrLoad); skip {
		return
	}
	if stmt.Schema.ModelType == attributeType {
		return
	}
	pk := stmt.Schema.PrioritizedPrimaryField
	if pk == nil {
		return
	}

	holders := map[uint][]attributeHolder{}
	var ids []uint
	collect := func(rv reflect.Value) {
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct || !rv.CanAddr() {
			return
		}
		h, ok := rv.Addr().Interface().(attributeHolder)
		if !ok {
			return
		}
		idVal, zero := pk.ValueOf(stmt.Context, rv)
		if zero {
			return
		}
		id, ok := toUint(idVal)
		if !ok {
			return
		}
		if _, seen := holders[id]; !seen {
			ids = append(ids, id)
		}
		holders[id] = append(holders[id], h)
	}

	switch stmt.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < stmt.ReflectValue.Len(); i++ {
			collect(stmt.ReflectValue.Index(i))
		}
	case reflect.Struct:
		collect(stmt.ReflectValue)
	}
	if len(ids) == 0 {
		return
	}

	var rows []Attribute
	tx := db.Session(&gorm.Session{NewDB: true}).Set(skipAttrLoad, true)
	if err := tx.Where("owner_type = ? AND owner_id IN ?", stmt.Table, ids).
		Find(&rows).Error; err != nil {
		db.AddError(err)
		return
	}

	byOwner := map[uint][]Attribute{}
	for _, a := range rows {
		byOwner[a.OwnerID] = append(byOwner[a.OwnerID], a)
	}
	for id, hs := range holders {
		for _, h := range hs {
			h.resetAttrs()
			for _, a := range byOwner[id] {
				h.applyAttr(a.Name, a.Value)
			}
		}
	}
}

// validateStagedAttributes fails a create whose staged attribute names
// would not survive the flush, before any row is written.
func validateStagedAttributes(db *gorm.DB) {
	stmt := db.Statement
	if db.Error != nil || stmt == nil || stmt.Schema == nil {
		return
	}
	if stmt.Schema.ModelType == attributeType {
		return
	}

	check := func(rv reflect.Value) {
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct || !rv.CanAddr() {
			return
		}
		h, ok := rv.Addr().Interface().(attributeHolder)
		if !ok {
			return
		}
		for name := range h.stagedAttrs() {
			if _, err := NormalizeName(name); err != nil {
				db.AddError(err)
				return
			}
		}
	}

	switch stmt.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < stmt.ReflectValue.Len(); i++ {
			check(stmt.ReflectValue.Index(i))
		}
	case reflect.Struct:
		check(stmt.ReflectValue)
	}
}

// flushStagedAttributes persists attribute values that were staged with
// SetAttr before the owning record had a primary key. It runs before
// the create transaction commits; an attribute error rolls the whole
// save back.
func flushStagedAttributes(db *gorm.DB) {
	stmt := db.Statement
	if db.Error != nil || stmt == nil || stmt.Schema == nil || stmt.Table == "" {
		return
	}
	if stmt.Schema.ModelType == attributeType {
		return
	}
	pk := stmt.Schema.PrioritizedPrimaryField
	if pk == nil {
		return
	}

	flush := func(rv reflect.Value) {
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct || !rv.CanAddr() {
			return
		}
		h, ok := rv.Addr().Interface().(attributeHolder)
		if !ok {
			return
		}
		staged := h.takeStaged()
		if len(staged) == 0 {
			return
		}
		idVal, zero := pk.ValueOf(stmt.Context, rv)
		if zero {
			return
		}
		id, ok := toUint(idVal)
		if !ok {
			return
		}

		tx := db.Session(&gorm.Session{NewDB: true}).Set(skipAttrLoad, true)
		for _, name := range sortedKeys(staged) {
			row := Attribute{
				OwnerType: stmt.Table,
				OwnerID:   id,
				Name:      name,
				Value:     staged[name],
			}
			if err := tx.Create(&row).Error; err != nil {
				db.AddError(err)
				return
			}
			h.applyAttr(row.Name, row.Value)
		}
	}

	switch stmt.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < stmt.ReflectValue.Len(); i++ {
			flush(stmt.ReflectValue.Index(i))
		}
	case reflect.Struct:
		flush(stmt.ReflectValue)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
