// Package opticaldepth evaluates the optical depth τ(p, z) from a point in
// the wind to a distant observer at z = +∞.
//
// An [Engine] is built once per [wind.Model] and selects one of three
// strategies from the model's method:
//
//   - analytic: closed forms for a β = 1 wind, including the stretch,
//     expansion and anisotropic porosity models, with series expansions
//     near their removable singularities
//   - numerical: adaptive quadrature of the local opacity for any β, with
//     pointwise porosity, Rosseland and anisotropic weights
//   - resonance: the Doppler-shifted line absorption of package resonance
//
// Points behind or inside the photosphere return [Occulted] with
// Sample.Occulted set; they are not errors. Quadrature failures come back
// as an [errors.NonConvergenceError] attributed to the offending (p, z).
//
//	m, _ := wind.New(wind.Config{Method: wind.MethodAnalytic, Beta: 1, TauStar: 2})
//	e, _ := opticaldepth.New(m)
//	s, err := e.Depth(2, 0.5)
//
// [Engine.DepthGrid] evaluates a (p, z) grid in parallel with results
// identical to the scalar path.
package opticaldepth
