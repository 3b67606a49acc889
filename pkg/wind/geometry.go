package wind

import "math"

// Radius returns r = sqrt(p² + z²).
func Radius(p, z float64) float64 {
	return math.Hypot(p, z)
}

// U returns the inverse radius 1/r.
func U(p, z float64) float64 {
	return 1 / math.Hypot(p, z)
}

// Mu returns the direction cosine z/r of the point (p, z).
func Mu(p, z float64) float64 {
	return z / math.Hypot(p, z)
}

// IsOcculted reports whether the point (p, z) is hidden from an observer at
// z = +∞ by the photosphere, or lies inside it.
//
// Only rays with p ≤ 1 can be occulted. On such a ray every point with
// z ≤ ZEdge(p) is behind or inside the star.
func IsOcculted(p, z float64) bool {
	if p > 1 {
		return false
	}
	return z <= 0 || Radius(p, z) <= 1
}

// ZEdge returns the depth coordinate where a ray of impact parameter p
// leaves the photosphere towards the observer: sqrt(1 - p²) for p ≤ 1.
// Rays with p > 1 never meet the star and return -Inf.
func ZEdge(p float64) float64 {
	if p > 1 {
		return math.Inf(-1)
	}
	return math.Sqrt(1 - p*p)
}

// OccultedDepth is the optical depth reported for points hidden by the
// photosphere. It is large enough that e^{-τ} underflows to zero.
const OccultedDepth = 1e6
