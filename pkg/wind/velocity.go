package wind

import "math"

// MinimumVelocity is the velocity floor used on the numerical optical-depth
// path. It keeps 1/w finite at the photosphere.
const MinimumVelocity = 1e-3

// Velocity is the beta velocity law in inverse-radius form,
//
//	w(u) = WMin + (1 - WMin)(1 - u)^Beta,  u = 1/r,
//
// normalised to the terminal velocity.
type Velocity struct {
	Beta float64
	WMin float64
}

// W returns the velocity at inverse radius u.
func (v Velocity) W(u float64) float64 {
	return v.WMin + (1-v.WMin)*math.Pow(1-u, v.Beta)
}

// DWDU returns dw/du.
func (v Velocity) DWDU(u float64) float64 {
	if v.Beta == 0 {
		return 0
	}
	return -v.Beta * (1 - v.WMin) * math.Pow(1-u, v.Beta-1)
}

// DWDR returns dw/dr = -u² dw/du.
func (v Velocity) DWDR(u float64) float64 {
	return -u * u * v.DWDU(u)
}

// LineOfSight returns the projected velocity w·μ at (p, z). It is
// non-decreasing in z along any ray.
func (v Velocity) LineOfSight(p, z float64) float64 {
	return v.W(U(p, z)) * Mu(p, z)
}

// DLineOfSight returns d(wμ)/dz at (p, z).
func (v Velocity) DLineOfSight(p, z float64) float64 {
	r := Radius(p, z)
	u := 1 / r
	mu := z * u
	return v.DWDR(u)*mu*mu + v.W(u)*p*p*u*u*u
}
