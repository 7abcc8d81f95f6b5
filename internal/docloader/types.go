// Package docloader parses the declarative YAML document described in
// the external interfaces design into a *catalog.Database, grounded on
// original_source/src/yaml/{schema,parser}.rs's YamlDatabase/YamlTable
// shape and its type-definition string grammar ("INTEGER PRIMARY KEY",
// "VARCHAR(255) NOT NULL", ...), translated to this module's own
// catalog/sqlval types rather than the original's Database/Value pair.
package docloader

import "gopkg.in/yaml.v3"

// Document is the top-level YAML shape: one database descriptor plus an
// ordered collection of named tables. Table order is preserved (via a
// custom UnmarshalYAML walking the raw mapping node) because SELECT *
// across declared tables and deterministic fixture output both depend
// on declaration order, the same guarantee original_source gets for
// free from Rust's IndexMap.
type Document struct {
	Database DatabaseInfo
	Tables   []TableEntry
}

// DatabaseInfo is the document's "database:" block.
type DatabaseInfo struct {
	Name string     `yaml:"name"`
	Auth *AuthBlock `yaml:"auth"`
}

// AuthBlock is the optional credential override, translated into
// catalog.AuthConfig once the document is fully parsed.
type AuthBlock struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TableEntry is one "tables:" mapping entry, its table name alongside
// the parsed table definition.
type TableEntry struct {
	Name  string
	Table TableDef
}

// TableDef is one table's column definitions (ordered) plus its seed
// rows (order-independent maps, looked up by column name).
type TableDef struct {
	Columns []ColumnEntry
	Data    []map[string]any
}

// ColumnEntry is one "columns:" mapping entry: a column name paired
// with its SQL type-definition string, e.g. "INTEGER PRIMARY KEY" or
// "VARCHAR(100) NOT NULL UNIQUE".
type ColumnEntry struct {
	Name string
	Def  string
}

func (d *Document) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Database DatabaseInfo `yaml:"database"`
		Tables   yaml.Node    `yaml:"tables"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	d.Database = raw.Database
	if raw.Tables.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(raw.Tables.Content); i += 2 {
		var name string
		if err := raw.Tables.Content[i].Decode(&name); err != nil {
			return err
		}
		var td TableDef
		if err := raw.Tables.Content[i+1].Decode(&td); err != nil {
			return err
		}
		d.Tables = append(d.Tables, TableEntry{Name: name, Table: td})
	}
	return nil
}

func (t *TableDef) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Columns yaml.Node        `yaml:"columns"`
		Data    []map[string]any `yaml:"data"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	t.Data = raw.Data
	if raw.Columns.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(raw.Columns.Content); i += 2 {
		var name, def string
		if err := raw.Columns.Content[i].Decode(&name); err != nil {
			return err
		}
		if err := raw.Columns.Content[i+1].Decode(&def); err != nil {
			return err
		}
		t.Columns = append(t.Columns, ColumnEntry{Name: name, Def: def})
	}
	return nil
}

// Parse decodes raw YAML bytes into a Document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
