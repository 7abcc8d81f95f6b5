package engine

import (
	"strings"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// expandSelectExprs turns `*` and `alias.*` into one concrete ColumnRef
// item per relation column, in FROM resolution order, per the
// projection design's "SELECT * expands to all columns of all FROM
// relations in resolution order".
func expandSelectExprs(src *source, items []sqlast.SelectExpr) []sqlast.SelectExpr {
	var out []sqlast.SelectExpr
	for _, it := range items {
		switch e := it.Expr.(type) {
		case *sqlast.Star:
			for i, c := range src.columns {
				out = append(out, sqlast.SelectExpr{Expr: &sqlast.ColumnRef{Table: src.aliases[i], Name: c.Name}, Alias: c.Name})
			}
		case *sqlast.TableStar:
			for i, c := range src.columns {
				if !strings.EqualFold(src.aliases[i], e.Table) {
					continue
				}
				out = append(out, sqlast.SelectExpr{Expr: &sqlast.ColumnRef{Table: src.aliases[i], Name: c.Name}, Alias: c.Name})
			}
		default:
			out = append(out, it)
		}
	}
	return out
}

// defaultColumnName names an unaliased output column the way mainstream
// drivers expect: a bare column reference keeps its name, a function
// call is named after the lower-cased function, and anything else gets
// Postgres's generic "?column?" placeholder.
func defaultColumnName(e sqlast.Expr) string {
	switch n := e.(type) {
	case *sqlast.ColumnRef:
		return n.Name
	case *sqlast.FuncCall:
		return strings.ToLower(n.Name)
	default:
		return "?column?"
	}
}

func columnFor(name string, v sqlval.Value) catalog.Column {
	return catalog.Column{Name: name, Type: v.Type(), Nullable: true}
}
