// Package entity contains the persisted record shapes and their runtime
// metadata. Descriptors replace ORM-generated metadata: every sort or
// filter key coming from a request is checked against a descriptor before
// it is allowed anywhere near a query.
//
// Import Path: novostudio.tech/foundation/internal/entity
package entity

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx/reflectx"
)

// mapper reads `db` struct tags, the same way the sqlx handle does.
var mapper = reflectx.NewMapper("db")

// Descriptor is the runtime metadata of one entity type.
type Descriptor struct {
	// Type identifies the entity; registry membership is keyed on it.
	Type reflect.Type

	// Resource is the URL segment under /admin.
	Resource string

	// Table is the database relation.
	Table string

	// PrimaryKey is the primary key column.
	PrimaryKey string

	// Columns are all mapped columns, sorted.
	Columns []string

	columnSet map[string]struct{}
	writable  map[string]struct{}
}

// Describe builds a Descriptor for the entity struct from its `db` tags.
// readOnly lists columns that exist but must not be written through the
// admin API (generated fields, sensitive material).
func Describe(entityPtr any, resource, table string, readOnly ...string) (*Descriptor, error) {
	t := reflect.TypeOf(entityPtr)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity: Describe requires a struct, got %T", entityPtr)
	}

	tm := mapper.TypeMap(t)
	columnSet := make(map[string]struct{})
	for path := range tm.Names {
		if strings.Contains(path, ".") {
			continue // embedded sub-paths are not columns
		}
		columnSet[path] = struct{}{}
	}
	if len(columnSet) == 0 {
		return nil, fmt.Errorf("entity: %s has no db-tagged fields", t.Name())
	}
	if _, ok := columnSet["id"]; !ok {
		return nil, fmt.Errorf("entity: %s has no id column", t.Name())
	}

	columns := make([]string, 0, len(columnSet))
	for c := range columnSet {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	nonWritable := map[string]struct{}{
		"id":         {},
		"created_at": {},
		"updated_at": {},
	}
	for _, c := range readOnly {
		nonWritable[c] = struct{}{}
	}
	writable := make(map[string]struct{})
	for c := range columnSet {
		if _, ok := nonWritable[c]; !ok {
			writable[c] = struct{}{}
		}
	}

	return &Descriptor{
		Type:       t,
		Resource:   resource,
		Table:      table,
		PrimaryKey: "id",
		Columns:    columns,
		columnSet:  columnSet,
		writable:   writable,
	}, nil
}

// MustDescribe is Describe that panics on error; descriptors are built from
// compile-time-known structs, so a failure is a programming error.
func MustDescribe(entityPtr any, resource, table string, readOnly ...string) *Descriptor {
	d, err := Describe(entityPtr, resource, table, readOnly...)
	if err != nil {
		panic(err)
	}
	return d
}

// HasColumn reports whether name is a mapped column of the entity.
func (d *Descriptor) HasColumn(name string) bool {
	_, ok := d.columnSet[name]
	return ok
}

// IsWritable reports whether name may be set through create/update.
func (d *Descriptor) IsWritable(name string) bool {
	_, ok := d.writable[name]
	return ok
}

// WritableColumns returns the writable column names, sorted.
func (d *Descriptor) WritableColumns() []string {
	cols := make([]string, 0, len(d.writable))
	for c := range d.writable {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
