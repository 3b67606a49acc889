package opticaldepth

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/windprofile/pkg/errors"
)

// Grid holds τ[i][j] for p[i] and z[j].
type Grid struct {
	P        []float64        `json:"p"`
	Z        []float64        `json:"z"`
	Tau      [][]float64      `json:"tau"`
	Warnings []errors.Warning `json:"warnings,omitempty"`
}

// Cells returns the number of cells in the grid.
func (g *Grid) Cells() int { return len(g.P) * len(g.Z) }

// Complete reports whether every cell holds a value. A grid returned
// alongside a cancellation error is incomplete; unfinished cells are NaN.
func (g *Grid) Complete() bool {
	for _, row := range g.Tau {
		for _, v := range row {
			if math.IsNaN(v) {
				return false
			}
		}
	}
	return true
}

// CellFunc is called once for every finished cell. It may be called from
// several goroutines at once.
type CellFunc func(i, j int, s Sample)

// DepthGrid evaluates the engine on every (p[i], z[j]) pair. Each cell equals
// the corresponding [Engine.Depth] value.
//
// Rows are evaluated in parallel, bounded by the engine's worker count. When
// ctx is cancelled no new cell is started; the partially filled grid is
// returned together with ctx.Err(), and unfinished cells hold NaN. The first
// numerical failure stops the evaluation and is returned attributed to its
// cell.
func (e *Engine) DepthGrid(ctx context.Context, ps, zs []float64) (*Grid, error) {
	return e.DepthGridFunc(ctx, ps, zs, nil)
}

// DepthGridFunc is DepthGrid with a per-cell callback, used for progress
// reporting.
func (e *Engine) DepthGridFunc(ctx context.Context, ps, zs []float64, onCell CellFunc) (*Grid, error) {
	if err := errors.ValidateGrid("p", ps); err != nil {
		return nil, err
	}
	if err := errors.ValidateGrid("z", zs); err != nil {
		return nil, err
	}
	if ps[0] < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "impact parameter must not be negative, got %g", ps[0])
	}

	grid := &Grid{
		P:   append([]float64(nil), ps...),
		Z:   append([]float64(nil), zs...),
		Tau: make([][]float64, len(ps)),
	}
	for i := range grid.Tau {
		row := make([]float64, len(zs))
		for j := range row {
			row[j] = math.NaN()
		}
		grid.Tau[i] = row
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, p := range ps {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			for j, z := range zs {
				if err := gctx.Err(); err != nil {
					return err
				}
				s, err := e.Depth(p, z)
				if err != nil {
					return err
				}
				// Each goroutine owns row i.
				grid.Tau[i][j] = s.Tau
				if len(s.Warnings) > 0 {
					mu.Lock()
					grid.Warnings = append(grid.Warnings, s.Warnings...)
					mu.Unlock()
				}
				if onCell != nil {
					onCell(i, j, s)
				}
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if ctx.Err() != nil {
			return grid, ctx.Err()
		}
		return nil, err
	}
	return grid, nil
}

// DepthBatch evaluates the engine on paired coordinates (ps[k], zs[k]) and
// returns one Sample per pair, in input order.
func (e *Engine) DepthBatch(ctx context.Context, ps, zs []float64) ([]Sample, error) {
	if len(ps) != len(zs) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"p and z must have the same length, got %d and %d", len(ps), len(zs))
	}
	out := make([]Sample, len(ps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for k := range ps {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := e.Depth(ps[k], zs[k])
			if err != nil {
				return err
			}
			out[k] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
