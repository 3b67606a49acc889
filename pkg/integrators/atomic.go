package integrators

import (
	"sort"

	"github.com/matzehuels/windprofile/pkg/errors"
)

// HC is Planck's constant times the speed of light in keV·Å.
const HC = 12.398419843320026

// Ion holds the rest wavelengths (Å) of the He-like triplet of one element,
// and the low-density f/i ratio R0.
type Ion struct {
	AtomicNumber     int     `json:"atomic_number"`
	Symbol           string  `json:"symbol"`
	Resonance        float64 `json:"w"`
	Intercombination float64 `json:"y"`
	Forbidden        float64 `json:"z"`
	R0               float64 `json:"r0"`
	LymanAlpha       float64 `json:"lyman_alpha"` // H-like Lyα, 2:1 weighted doublet
}

// Wavelength returns the rest wavelength of one triplet component.
func (ion Ion) Wavelength(t LineType) float64 {
	switch t {
	case Intercombination:
		return ion.Intercombination
	case Forbidden:
		return ion.Forbidden
	default:
		return ion.Resonance
	}
}

// R0 values are from Porquet et al. (2001) except S, Ar (Blumenthal, Drake &
// Tucker 1972) and the interpolated Na and Al.
var ions = map[int]Ion{
	6:  {6, "C", 40.2674, 40.7302, 41.4718, 11.0, lyman(33.7342, 33.7396)},
	7:  {7, "N", 28.7870, 29.0843, 29.5346, 5.3, lyman(24.7792, 24.7846)},
	8:  {8, "O", 21.6015, 21.8036, 22.0974, 3.7, lyman(18.9671, 18.9725)},
	10: {10, "Ne", 13.4473, 13.5531, 13.6984, 3.1, lyman(12.1321, 12.1375)},
	11: {11, "Na", 11.0029, 11.0832, 11.1918, 2.9, lyman(10.0232, 10.0286)},
	12: {12, "Mg", 9.16875, 9.23121, 9.31362, 2.7, lyman(8.41920, 8.42461)},
	13: {13, "Al", 7.75730, 7.80696, 7.87212, 2.5, lyman(7.17091, 7.17632)},
	14: {14, "Si", 6.64795, 6.68819, 6.73949, 2.3, lyman(6.18043, 6.18584)},
	16: {16, "S", 5.03873, 5.06649, 5.10067, 2.04, lyman(4.72735, 4.73276)},
	18: {18, "Ar", 3.94907, 3.96936, 3.99415, 1.69, lyman(3.73119, 3.73652)},
	20: {20, "Ca", 3.17715, 3.19275, 3.21103, 1.33, lyman(3.01848, 3.02390)},
	26: {26, "Fe", 1.85040, 1.85952, 1.86819, 1.02, lyman(1.77802, 1.78344)},
}

func lyman(a1, a2 float64) float64 { return (2*a1 + a2) / 3 }

// LookupIon returns the tabulated parameters for an atomic number.
func LookupIon(z int) (Ion, error) {
	ion, ok := ions[z]
	if !ok {
		return Ion{}, errors.New(errors.ErrCodeNotFound, "no atomic data for Z=%d (supported: %v)", z, SupportedIons())
	}
	return ion, nil
}

// SupportedIons lists the tabulated atomic numbers in ascending order.
func SupportedIons() []int {
	zs := make([]int, 0, len(ions))
	for z := range ions {
		zs = append(zs, z)
	}
	sort.Ints(zs)
	return zs
}

// EnergyToX maps photon energies (keV) to the scaled Doppler shift
// x = (E0/E - 1)/v∞ of a line with rest wavelength λ (Å). v∞ is in units of
// c. Positive x is red-shifted.
func EnergyToX(energies []float64, wavelength, vInfinity float64) []float64 {
	e0 := HC / wavelength
	xs := make([]float64, len(energies))
	for i, e := range energies {
		xs[i] = (e0/e - 1) / vInfinity
	}
	return xs
}
