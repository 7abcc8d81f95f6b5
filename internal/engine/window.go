package engine

import (
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/memsqld/memsqld/internal/engine/expr"
	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// computeWindows fills in ctx.env.Windows for every collected window
// FuncCall, over whatever "current row set" ctxs represents: the
// filtered rows for an ungrouped query, or one representative row per
// group for a grouped one, per the window-functions design note that
// they are "computed as post-aggregation projections". Partitions never
// share a rowCtx (partitionCtxs buckets each ctx into exactly one), and
// each ctx owns its own *expr.Env, so distinct partitions' assignments
// are farmed out to a bounded worker pool rather than run one at a time.
func computeWindows(baseEnv *expr.Env, ctxs []*rowCtx, windowFuncs []*sqlast.FuncCall) error {
	for _, fc := range windowFuncs {
		if fc.Over == nil {
			return errs.NewFeatureError(baseEnv.Ctx, "window function %s requires an OVER clause", fc.Name)
		}
		partitions, err := partitionCtxs(baseEnv, ctxs, fc.Over.PartitionBy)
		if err != nil {
			return err
		}
		if err := assignWindowValuesConcurrently(baseEnv, partitions, fc); err != nil {
			return err
		}
	}
	return nil
}

// assignWindowValuesConcurrently runs assignWindowValues for every
// partition on a pool sized to the host's CPU count, the same
// ants.NewPool(runtime.NumCPU()) sizing matrixone's own bounded-fan-out
// call sites use, falling straight back to sequential evaluation if the
// pool itself can't be built (a single partition never warrants one).
func assignWindowValuesConcurrently(baseEnv *expr.Env, partitions [][]*rowCtx, fc *sqlast.FuncCall) error {
	if len(partitions) <= 1 {
		if len(partitions) == 1 {
			return assignWindowValues(baseEnv, partitions[0], fc)
		}
		return nil
	}

	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		for _, part := range partitions {
			if err := assignWindowValues(baseEnv, part, fc); err != nil {
				return err
			}
		}
		return nil
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, part := range partitions {
		part := part
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := assignWindowValues(baseEnv, part, fc); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}
	wg.Wait()
	return firstErr
}

func partitionCtxs(env *expr.Env, ctxs []*rowCtx, partitionBy []sqlast.Expr) ([][]*rowCtx, error) {
	if len(partitionBy) == 0 {
		return [][]*rowCtx{ctxs}, nil
	}
	var parts [][]*rowCtx
	var keys [][]sqlval.Value
	for _, c := range ctxs {
		key := make([]sqlval.Value, len(partitionBy))
		for i, pe := range partitionBy {
			v, err := expr.Eval(c.env, c.row, pe)
			if err != nil {
				return nil, err
			}
			key[i] = v
		}
		placed := false
		for pi, k := range keys {
			if sqlval.EquivalentRow(k, key) {
				parts[pi] = append(parts[pi], c)
				placed = true
				break
			}
		}
		if !placed {
			keys = append(keys, key)
			parts = append(parts, []*rowCtx{c})
		}
	}
	return parts, nil
}

// assignWindowValues orders one partition by the window spec's ORDER BY
// and writes ROW_NUMBER/RANK/DENSE_RANK into each member's Windows map.
func assignWindowValues(env *expr.Env, part []*rowCtx, fc *sqlast.FuncCall) error {
	keys := make([][]sqlval.Value, len(part))
	for i, c := range part {
		key := make([]sqlval.Value, len(fc.Over.OrderBy))
		for j, oi := range fc.Over.OrderBy {
			v, err := expr.Eval(c.env, c.row, oi.Expr)
			if err != nil {
				return err
			}
			key[j] = v
		}
		keys[i] = key
	}
	order := make([]int, len(part))
	for i := range order {
		order[i] = i
	}
	stableSortInts(order, func(a, b int) int {
		return compareSortTuples(keys[a], keys[b], fc.Over.OrderBy)
	})

	rank, denseRank := 0, 0
	for pos, idx := range order {
		rank = pos + 1
		if pos == 0 {
			denseRank = 1
		} else if compareSortTuples(keys[order[pos-1]], keys[idx], fc.Over.OrderBy) != 0 {
			denseRank++
		}
		if pos > 0 && compareSortTuples(keys[order[pos-1]], keys[idx], fc.Over.OrderBy) == 0 {
			// RANK repeats the previous row's rank on ties; recompute it
			// as "count of strictly-preceding rows + 1" rather than pos+1.
			for back := pos - 1; back >= 0; back-- {
				if compareSortTuples(keys[order[back]], keys[idx], fc.Over.OrderBy) != 0 {
					rank = back + 2
					break
				}
				if back == 0 {
					rank = 1
				}
			}
		}
		c := part[idx]
		if c.env.Windows == nil {
			c.env.Windows = map[sqlast.Expr]sqlval.Value{}
		}
		switch upper(fc.Name) {
		case "ROW_NUMBER":
			c.env.Windows[fc] = sqlval.Integer(int64(pos + 1))
		case "RANK":
			c.env.Windows[fc] = sqlval.Integer(int64(rank))
		case "DENSE_RANK":
			c.env.Windows[fc] = sqlval.Integer(int64(denseRank))
		default:
			return errs.NewFeatureError(env.Ctx, "unsupported window function %s", fc.Name)
		}
	}
	return nil
}
