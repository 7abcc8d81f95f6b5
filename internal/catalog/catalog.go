// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog holds the table/column descriptors and the declared
// rows backing them: the Value & Schema model from the data model design.
package catalog

import (
	"strings"

	"github.com/memsqld/memsqld/internal/sqlval"
)

// ForeignKey names the (table, column) a REFERENCES constraint points at.
type ForeignKey struct {
	Table  string
	Column string
}

// Column is a single table column descriptor.
type Column struct {
	Name       string
	Type       sqlval.SqlType
	PrimaryKey bool
	Nullable   bool
	Unique     bool
	// Default, when non-nil, is a literal default value. The declarative
	// document only ever supplies literal defaults; expression defaults
	// are accepted by the grammar but never exercised by the engine.
	Default    *sqlval.Value
	References *ForeignKey
}

// Row is an ordered tuple of values, one per column, in column order.
type Row []sqlval.Value

// Table is a case-preserving named collection of columns and rows, with an
// optional primary-key index for O(1) point lookup.
type Table struct {
	Name    string
	Columns []Column
	Rows    []Row

	pkColumnIdx int // -1 if no primary key declared
	pkIndex     map[string]int
}

// NewTable builds a Table and its PK index, if any column is marked
// PrimaryKey. Only the first column marked PrimaryKey is indexed, matching
// the "primary-key lookup is O(1) via the column-level PK map" store
// design. NewTable does not check key uniqueness: a duplicate key maps to
// the later row.
func NewTable(name string, columns []Column, rows []Row) *Table {
	t := &Table{Name: name, Columns: columns, Rows: rows, pkColumnIdx: -1}
	for i, c := range columns {
		if c.PrimaryKey {
			t.pkColumnIdx = i
			break
		}
	}
	if t.pkColumnIdx >= 0 {
		t.pkIndex = make(map[string]int, len(rows))
		for ri, row := range rows {
			t.pkIndex[pkKey(row[t.pkColumnIdx])] = ri
		}
	}
	return t
}

func pkKey(v sqlval.Value) string {
	return v.String()
}

// ColumnIndex returns the 0-based index of a column by case-insensitive
// name, or -1 if it doesn't exist.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// LookupPK returns the row at the given primary-key value, or (nil, false)
// if there is no PK index or no matching row. Null never matches, per the
// data model's uniqueness rule that Null is distinct from every value.
func (t *Table) LookupPK(key sqlval.Value) (Row, bool) {
	if t.pkIndex == nil || key.IsNull() {
		return nil, false
	}
	idx, ok := t.pkIndex[pkKey(key)]
	if !ok {
		return nil, false
	}
	return t.Rows[idx], true
}

// HasPK reports whether the table declares a (single-column, indexed)
// primary key. The query executor does not consult it: a "WHERE pk = v"
// filter is evaluated against every row of the table.
func (t *Table) HasPK() (colIdx int, ok bool) {
	return t.pkColumnIdx, t.pkColumnIdx >= 0
}

// AuthConfig is the optional {username, password} descriptor a Database
// may carry, which overrides CLI-supplied credentials per the external
// interfaces design.
type AuthConfig struct {
	Username string
	Password string
}

// Database is the immutable snapshot unit: a name plus a case-insensitive
// mapping from table name to Table, plus an optional auth descriptor.
type Database struct {
	Name   string
	Auth   *AuthConfig
	tables map[string]*Table
	// order preserves declaration order, used by SELECT * across multiple
	// FROM relations and by deterministic test fixtures.
	order []string
}

func NewDatabase(name string, auth *AuthConfig) *Database {
	return &Database{Name: name, Auth: auth, tables: make(map[string]*Table)}
}

// AddTable registers a table under its case-preserving name. Lookup is
// always case-insensitive.
func (d *Database) AddTable(t *Table) {
	key := strings.ToLower(t.Name)
	if _, exists := d.tables[key]; !exists {
		d.order = append(d.order, key)
	}
	d.tables[key] = t
}

// Table resolves a table by case-insensitive name.
func (d *Database) Table(name string) (*Table, bool) {
	t, ok := d.tables[strings.ToLower(name)]
	return t, ok
}

// TableNames returns table names in declaration order.
func (d *Database) TableNames() []string {
	names := make([]string, len(d.order))
	for i, k := range d.order {
		names[i] = d.tables[k].Name
	}
	return names
}

// Authenticate checks credentials against the database's auth descriptor.
// A nil Auth means anonymous mode: any credentials are accepted, per the
// external interfaces design.
func (d *Database) Authenticate(username, password string) bool {
	if d.Auth == nil {
		return true
	}
	return d.Auth.Username == username && d.Auth.Password == password
}
