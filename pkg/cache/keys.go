package cache

import "time"

// Lifetimes of cached results. Results are pure functions of their key, so
// the TTLs only bound disk and memory use.
const (
	TTLGrid       = 30 * 24 * time.Hour
	TTLProfile    = 30 * 24 * time.Hour
	TTLCurve      = 30 * 24 * time.Hour
	TTLLuminosity = 90 * 24 * time.Hour
)

// Keyer builds cache keys for pipeline results. Every key starts from the
// hash of the wind configuration that produced it.
type Keyer interface {
	GridKey(modelHash string, opts GridKeyOpts) string
	ProfileKey(modelHash string, opts ProfileKeyOpts) string
	TransmissionKey(modelHash string, us []float64) string
	LuminosityKey(modelHash string) string
}

// GridKeyOpts identifies an optical-depth grid.
type GridKeyOpts struct {
	P []float64 `json:"p"`
	Z []float64 `json:"z"`
}

// ProfileKeyOpts identifies a binned line profile.
type ProfileKeyOpts struct {
	Edges      []float64 `json:"edges"`
	Energy     bool      `json:"energy,omitempty"` // Edges are energies rather than x
	Wavelength float64   `json:"wavelength,omitempty"`
	VInfinity  float64   `json:"v_infinity,omitempty"`
	// Absorber is the hash of the resonance absorber config, if any.
	Absorber string `json:"absorber,omitempty"`
	// Emitter is the hash of the remaining emitter options (He-like ratio,
	// scattering, triplet).
	Emitter string `json:"emitter,omitempty"`
}

// DefaultKeyer produces keys of the form kind:sha256(...).
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) GridKey(modelHash string, opts GridKeyOpts) string {
	return hashKey("grid", modelHash, opts)
}

func (DefaultKeyer) ProfileKey(modelHash string, opts ProfileKeyOpts) string {
	return hashKey("profile", modelHash, opts)
}

func (DefaultKeyer) TransmissionKey(modelHash string, us []float64) string {
	return hashKey("transmission", modelHash, us)
}

func (DefaultKeyer) LuminosityKey(modelHash string) string {
	return hashKey("luminosity", modelHash)
}

var _ Keyer = DefaultKeyer{}
