package engine

import (
	"github.com/memsqld/memsqld/internal/engine/expr"
	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/sqlast"
)

// resolveCTEs materializes each WITH-clause binding in declaration order
// into a child env whose CTEs map grows as each one resolves, so a later
// CTE may reference any earlier one; a forward reference simply never
// appears in the map yet and fails table resolution with the same
// "table not found" error an unknown table name gets.
// Recursive CTEs are out of scope: a CTE referencing its own name inside
// its own body hits the same not-found path, since the name is only
// added to the map after its body finishes evaluating.
func (ex *Executor) resolveCTEs(env *expr.Env, with *sqlast.With) (*expr.Env, error) {
	child := &expr.Env{Ctx: env.Ctx, DB: env.DB, Runner: env.Runner, Params: env.Params, CTEs: map[string]*expr.Relation{}}
	for k, v := range env.CTEs {
		child.CTEs[k] = v
	}
	for _, cte := range with.CTEs {
		rel, err := ex.runSelectStatement(child, cte.Query)
		if err != nil {
			return nil, err
		}
		if _, exists := child.CTEs[lower(cte.Name)]; exists {
			return nil, errs.NewSchemaError(env.Ctx, "duplicate CTE name %q", cte.Name)
		}
		named := &expr.Relation{Name: cte.Name, Columns: rel.Columns, Rows: rel.Rows}
		child.CTEs[lower(cte.Name)] = named
	}
	return child, nil
}
