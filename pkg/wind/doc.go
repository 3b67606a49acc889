// Package wind describes the stellar wind: its beta velocity law, the ray
// geometry used to trace lines of sight through it, and the validated model
// configuration consumed by the optical-depth engine.
//
// # Geometry
//
// Coordinates are in stellar radii. A ray has impact parameter p ≥ 0 and
// depth coordinate z, with the observer at z = +∞. The inverse radius
// u = 1/r is the natural radial variable; u = 1 is the photosphere.
//
// # Configuration
//
// [Config] is a flat, serialisable description of the wind and the method
// axes (strategy, anisotropic, Rosseland, expansion, He-like). [New] checks
// the whole combination once and returns an immutable [Model]:
//
//	m, err := wind.New(wind.Config{
//	    Method:  wind.MethodNumerical,
//	    Beta:    1,
//	    TauStar: 2,
//	    H:       0.5,
//	})
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // incompatible axes or out-of-domain parameter
//	}
package wind
