package integrators

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/windprofile/pkg/errors"
)

// Line identifies a single emission line on an energy grid.
type Line struct {
	Wavelength float64 `json:"wavelength" toml:"wavelength"` // Rest wavelength, Å
	VInfinity  float64 `json:"v_infinity" toml:"v_infinity"` // Terminal velocity / c
}

// Validate rejects non-physical line parameters.
func (l Line) Validate() error {
	if err := errors.ValidateOpenRange(errors.ErrCodeConfiguration, "wavelength", l.Wavelength, 0, 1e6); err != nil {
		return err
	}
	return errors.ValidateOpenRange(errors.ErrCodeConfiguration, "v_infinity", l.VInfinity, 0, 1)
}

// Triplet identifies a He-like triplet on an energy grid.
type Triplet struct {
	Ion       Ion     `json:"ion"`
	VInfinity float64 `json:"v_infinity"`
	G         float64 `json:"g"` // (i + f)/r emissivity ratio
}

// Profile is a binned line profile. Flux has one entry per energy bin and
// is normalised to unit sum; Energy and X echo the bin edges.
type Profile struct {
	Energy []float64 `json:"energy,omitempty"`
	X      []float64 `json:"x"`
	Flux   []float64 `json:"flux"`

	// Total is the unnormalised flux summed over the bins.
	Total float64 `json:"total"`
	// TransmissionRatio is Total over the flux of a transparent wind.
	TransmissionRatio float64 `json:"transmission_ratio,omitempty"`
	// RADFraction is the fraction of the flux transmitted by resonance
	// absorption, when an absorber is set. The normalised profile is
	// scaled by it.
	RADFraction float64 `json:"rad_fraction,omitempty"`
	// FToI is the forbidden-to-intercombination flux ratio of a triplet.
	FToI float64 `json:"f_to_i,omitempty"`
}

// FluxBins integrates L(x) over the bins [xs[i], xs[i+1]] in parallel. The
// edges may be ascending or descending.
func (e *Emitter) FluxBins(ctx context.Context, xs []float64) ([]float64, error) {
	if len(xs) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "need at least two bin edges, got %d", len(xs))
	}
	for i, x := range xs {
		if err := errors.ValidateFinite("x", x); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "bin edge %d", i)
		}
	}

	flux := make([]float64, len(xs)-1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range flux {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := e.Flux(xs[i], xs[i+1])
			if err != nil {
				return err
			}
			flux[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return flux, nil
}

// ProfileX bins the line on scaled-frequency edges xs.
func (e *Emitter) ProfileX(ctx context.Context, xs []float64) (*Profile, error) {
	flux, err := e.FluxBins(ctx, xs)
	if err != nil {
		return nil, err
	}
	prof := &Profile{X: append([]float64(nil), xs...), Flux: flux}
	return prof, e.finish(ctx, prof, xs)
}

// Profile bins the line on an ascending energy grid (keV).
func (e *Emitter) Profile(ctx context.Context, energies []float64, line Line) (*Profile, error) {
	if err := line.Validate(); err != nil {
		return nil, err
	}
	if err := validateEnergies(energies); err != nil {
		return nil, err
	}
	xs := EnergyToX(energies, line.Wavelength, line.VInfinity)
	prof, err := e.ProfileX(ctx, xs)
	if err != nil {
		return nil, err
	}
	prof.Energy = append([]float64(nil), energies...)
	return prof, nil
}

// finish computes the RAD fraction, normalises the flux and computes the
// transmission ratio.
func (e *Emitter) finish(ctx context.Context, prof *Profile, xs []float64) error {
	if e.absorber != nil {
		noRAD, err := e.WithoutAbsorber().FluxBins(ctx, xs)
		if err != nil {
			return err
		}
		prof.RADFraction = 1
		if s := floats.Sum(noRAD); s > 0 {
			prof.RADFraction = floats.Sum(prof.Flux) / s
		}
	}

	prof.Total = normalize(prof.Flux)
	if prof.RADFraction > 0 {
		floats.Scale(prof.RADFraction, prof.Flux)
	}

	if prof.Total > 0 && !e.transparent {
		unabsorbed, err := e.Transparent().FluxBins(ctx, xs)
		if err != nil {
			return err
		}
		if s := floats.Sum(unabsorbed); s > 0 {
			prof.TransmissionRatio = prof.Total / s
		}
	}
	return nil
}

// TripletProfile bins the He-like triplet on an ascending energy grid. Each
// component is mapped with its own rest wavelength. The emitter must have a
// HeLikeRatio.
func (e *Emitter) TripletProfile(ctx context.Context, energies []float64, t Triplet) (*Profile, error) {
	if e.ratio == nil {
		return nil, errors.New(errors.ErrCodeConfiguration, "triplet profile needs a he-like ratio")
	}
	if err := validateEnergies(energies); err != nil {
		return nil, err
	}
	if err := errors.ValidateNonNegative(errors.ErrCodeConfiguration, "g", t.G); err != nil {
		return nil, err
	}

	var comps [3][]float64
	for k, lt := range []LineType{Resonance, Intercombination, Forbidden} {
		line := Line{Wavelength: t.Ion.Wavelength(lt), VInfinity: t.VInfinity}
		if err := line.Validate(); err != nil {
			return nil, err
		}
		flux, err := e.Line(lt).FluxBins(ctx, EnergyToX(energies, line.Wavelength, line.VInfinity))
		if err != nil {
			return nil, err
		}
		comps[k] = flux
	}

	prof := &Profile{
		Energy: append([]float64(nil), energies...),
		X:      EnergyToX(energies, t.Ion.Resonance, t.VInfinity),
		Flux:   CombineTriplet(comps[0], comps[1], comps[2], t.G),
	}
	if i := floats.Sum(comps[1]); i > 0 {
		prof.FToI = floats.Sum(comps[2]) / i
	}
	prof.Total = normalize(prof.Flux)
	return prof, nil
}

// normalize scales flux to unit sum and returns the original sum. A flux
// with non-positive sum is left unchanged.
func normalize(flux []float64) float64 {
	total := floats.Sum(flux)
	if total > 0 {
		floats.Scale(1/total, flux)
	}
	return total
}

func validateEnergies(energies []float64) error {
	if len(energies) < 2 {
		return errors.New(errors.ErrCodeInvalidInput, "need at least two energy bin edges, got %d", len(energies))
	}
	if err := errors.ValidateGrid("energy", energies); err != nil {
		return err
	}
	if energies[0] <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "energies must be positive, got %g", energies[0])
	}
	return nil
}
