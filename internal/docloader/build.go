package docloader

import (
	"context"
	"fmt"
	"strings"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// Build turns a decoded Document into a *catalog.Database, the same
// shape parse_yaml_database assembles: walk tables in declaration
// order, parse each column's type-definition string, then each data row,
// filling in a declared Default or SQL NULL for any column a row omits.
func Build(ctx context.Context, doc *Document) (*catalog.Database, error) {
	var auth *catalog.AuthConfig
	if a := doc.Database.Auth; a != nil {
		auth = &catalog.AuthConfig{Username: a.Username, Password: a.Password}
	}
	db := catalog.NewDatabase(doc.Database.Name, auth)

	for _, te := range doc.Tables {
		table, err := buildTable(ctx, te.Name, te.Table)
		if err != nil {
			return nil, err
		}
		db.AddTable(table)
	}

	if err := validateForeignKeys(ctx, db, doc); err != nil {
		return nil, err
	}
	return db, nil
}

func buildTable(ctx context.Context, tableName string, def TableDef) (*catalog.Table, error) {
	if len(def.Columns) == 0 {
		return nil, errs.NewSchemaError(ctx, "table %q declares no columns", tableName)
	}

	columns := make([]catalog.Column, 0, len(def.Columns))
	pkSeen := false
	for _, ce := range def.Columns {
		pc, err := parseColumnDef(ctx, ce.Name, ce.Def)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", tableName, err)
		}
		if pc.primaryKey {
			if pkSeen {
				return nil, errs.NewSchemaError(ctx, "table %q declares more than one PRIMARY KEY column", tableName)
			}
			pkSeen = true
		}

		col := catalog.Column{
			Name:       pc.name,
			Type:       pc.sqlType,
			PrimaryKey: pc.primaryKey,
			Nullable:   pc.nullable,
			Unique:     pc.unique,
			References: pc.references,
		}
		if pc.hasDefault {
			v, err := convertValue(ctx, pc.name, pc.defaultLit, pc.sqlType)
			if err != nil {
				return nil, fmt.Errorf("table %q: default for column %q: %w", tableName, pc.name, err)
			}
			col.Default = &v
		}
		columns = append(columns, col)
	}

	rows := make([]catalog.Row, 0, len(def.Data))
	seenPK := make(map[string]bool, len(def.Data))
	for ri, raw := range def.Data {
		row, err := buildRow(ctx, tableName, columns, raw)
		if err != nil {
			return nil, fmt.Errorf("table %q row %d: %w", tableName, ri, err)
		}
		if pkIdx, ok := firstPK(columns); ok && !row[pkIdx].IsNull() {
			key := row[pkIdx].String()
			if seenPK[key] {
				return nil, errs.NewConstraintError(ctx, "table %q: duplicate primary key %q", tableName, key)
			}
			seenPK[key] = true
		}
		rows = append(rows, row)
	}

	return catalog.NewTable(tableName, columns, rows), nil
}

func firstPK(columns []catalog.Column) (int, bool) {
	for i, c := range columns {
		if c.PrimaryKey {
			return i, true
		}
	}
	return 0, false
}

func buildRow(ctx context.Context, tableName string, columns []catalog.Column, raw map[string]any) (catalog.Row, error) {
	row := make(catalog.Row, len(columns))
	for i, col := range columns {
		val, present := lookupCaseInsensitive(raw, col.Name)
		switch {
		case present:
			v, err := convertValue(ctx, col.Name, val, col.Type)
			if err != nil {
				return nil, err
			}
			row[i] = v
		case col.Default != nil:
			row[i] = *col.Default
		case col.Nullable:
			row[i] = sqlval.Null()
		default:
			return nil, errs.NewConstraintError(ctx, "table %q: column %q is NOT NULL and has no value or default", tableName, col.Name)
		}
	}
	return row, nil
}

func lookupCaseInsensitive(m map[string]any, name string) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// validateForeignKeys checks that every REFERENCES target names a table
// and column that actually exists, the referential half of the
// validation pass original_source defers to its caller; this is the Go
// side's equivalent, run once at load time rather than per write, since
// the document is immutable after ingestion.
func validateForeignKeys(ctx context.Context, db *catalog.Database, doc *Document) error {
	for _, te := range doc.Tables {
		for _, ce := range te.Table.Columns {
			pc, err := parseColumnDef(ctx, ce.Name, ce.Def)
			if err != nil {
				return err
			}
			if pc.references == nil {
				continue
			}
			target, ok := db.Table(pc.references.Table)
			if !ok {
				return errs.NewSchemaError(ctx, "table %q: column %q references unknown table %q", te.Name, ce.Name, pc.references.Table)
			}
			if target.ColumnIndex(pc.references.Column) < 0 {
				return errs.NewSchemaError(ctx, "table %q: column %q references unknown column %q.%q", te.Name, ce.Name, pc.references.Table, pc.references.Column)
			}
		}
	}
	return nil
}
