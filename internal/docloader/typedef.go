package docloader

import (
	"context"
	"strconv"
	"strings"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// parsedColumn is the intermediate result of reading one ColumnEntry's
// type-definition string, mirroring YamlColumn's fields before they are
// folded into a catalog.Column.
type parsedColumn struct {
	name       string
	sqlType    sqlval.SqlType
	primaryKey bool
	nullable   bool
	unique     bool
	defaultLit string
	hasDefault bool
	references *catalog.ForeignKey
}

// parseColumnDef reads a type-definition string token by token, the
// same modifier grammar YamlColumn::parse walks: a base type (optionally
// with a parenthesized size/precision), then any of PRIMARY KEY, NOT
// NULL, NULL, UNIQUE, DEFAULT <value>, REFERENCES table(column), in any
// order and combination.
func parseColumnDef(ctx context.Context, name, def string) (parsedColumn, error) {
	upper := strings.ToUpper(def)
	parts := strings.Fields(upper)
	if len(parts) == 0 {
		return parsedColumn{}, errs.NewSchemaError(ctx, "column %q has an empty type definition", name)
	}

	pc := parsedColumn{name: name, nullable: true}
	sqlType, err := baseSqlType(ctx, name, parts[0])
	if err != nil {
		return parsedColumn{}, err
	}
	pc.sqlType = sqlType

	for i := 1; i < len(parts); {
		switch {
		case parts[i] == "PRIMARY" && i+1 < len(parts) && parts[i+1] == "KEY":
			pc.primaryKey = true
			pc.nullable = false
			i += 2
		case parts[i] == "NOT" && i+1 < len(parts) && parts[i+1] == "NULL":
			pc.nullable = false
			i += 2
		case parts[i] == "NULL":
			pc.nullable = true
			i++
		case parts[i] == "UNIQUE":
			pc.unique = true
			i++
		case parts[i] == "DEFAULT" && i+1 < len(parts):
			pc.defaultLit = parts[i+1]
			pc.hasDefault = true
			i += 2
		case parts[i] == "REFERENCES" && i+1 < len(parts):
			ref, ok := parseForeignKeyRef(parts[i+1])
			if ok {
				pc.references = &ref
			}
			i += 2
		default:
			i++
		}
	}
	return pc, nil
}

func parseForeignKeyRef(s string) (catalog.ForeignKey, bool) {
	open := strings.IndexByte(s, '(')
	close := strings.IndexByte(s, ')')
	if open < 0 || close < 0 || close < open {
		return catalog.ForeignKey{}, false
	}
	return catalog.ForeignKey{Table: s[:open], Column: s[open+1 : close]}, true
}

// baseSqlType maps a base type keyword (optionally carrying a
// parenthesized size or precision/scale) to an sqlval.SqlType, matching
// YamlColumn::get_base_type's keyword table.
func baseSqlType(ctx context.Context, colName, base string) (sqlval.SqlType, error) {
	name, args := splitTypeArgs(base)
	switch name {
	case "INTEGER", "INT", "SMALLINT":
		return sqlval.TypeInteger, nil
	case "BIGINT":
		return sqlval.TypeBigInt, nil
	case "VARCHAR":
		n := 255
		if len(args) == 1 {
			if v, err := strconv.Atoi(args[0]); err == nil {
				n = v
			}
		}
		return sqlval.VarcharType(n), nil
	case "CHAR":
		n := 1
		if len(args) == 1 {
			if v, err := strconv.Atoi(args[0]); err == nil {
				n = v
			}
		}
		return sqlval.CharType(n), nil
	case "TEXT", "CLOB":
		return sqlval.TypeText, nil
	case "TIMESTAMP", "DATETIME":
		return sqlval.TypeTimestamp, nil
	case "DATE":
		return sqlval.TypeDate, nil
	case "TIME":
		return sqlval.TypeTime, nil
	case "BOOLEAN", "BOOL":
		return sqlval.TypeBoolean, nil
	case "DECIMAL", "NUMERIC":
		precision, scale := 10, 2
		if len(args) >= 1 {
			if v, err := strconv.Atoi(args[0]); err == nil {
				precision = v
			}
		}
		if len(args) >= 2 {
			if v, err := strconv.Atoi(args[1]); err == nil {
				scale = v
			}
		}
		return sqlval.DecimalType(precision, scale), nil
	case "FLOAT", "REAL", "DOUBLE":
		return sqlval.TypeFloat, nil
	case "UUID":
		return sqlval.TypeUuid, nil
	case "JSON", "JSONB":
		return sqlval.TypeJson, nil
	default:
		return sqlval.SqlType{}, errs.NewTypeError(ctx, "column %q: unknown SQL type %q", colName, base)
	}
}

// splitTypeArgs splits "VARCHAR(100)" into ("VARCHAR", ["100"]) and
// "DECIMAL(10,2)" into ("DECIMAL", ["10", "2"]); a bare keyword with no
// parentheses returns no args.
func splitTypeArgs(s string) (string, []string) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, nil
	}
	close := strings.IndexByte(s, ')')
	if close < open {
		return s[:open], nil
	}
	inner := s[open+1 : close]
	parts := strings.Split(inner, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return s[:open], parts
}
