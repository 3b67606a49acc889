// Package integrators computes the observables built on top of the optical
// depth engine: X-ray emission line profiles, angle-averaged transmission,
// and the wind-integrated luminosity.
//
// # Line profiles
//
// An [Emitter] integrates the emissivity u^q/w³ of a β-law wind over the
// surface of constant scaled Doppler shift x = -μw, attenuated by e^{-τ}
// from an [opticaldepth.Engine]:
//
//	L(x) = ∫ u^q / w³ · e^{-τ(p, z)} du
//
// Points behind the star contribute nothing. On the red side the upper
// limit of the u integral is cut where the surface meets the limb
// ([UxRoot]). Per-bin fluxes are ∫ L dx, split at the two frequencies where
// L has a kink ([Emitter.XKink], [Emitter.XOcc]), and the binned profile is
// normalised to unit sum.
//
// Optional modifiers are resonance (RAD) absorption by a Doppler-shifted
// line, the radial He-like f/i ratio and Sobolev resonance scattering.
//
//	e, _ := opticaldepth.New(model)
//	em, _ := integrators.NewEmitter(e)
//	prof, err := em.Profile(ctx, energies, integrators.Line{Wavelength: 21.6015, VInfinity: 0.0067})
//
// # Transmission and luminosity
//
// [AngleAveragedTransmission] averages e^{-τ} over the unocculted directions
// from a point in the wind; [IntegratedLuminosity] integrates it over the
// emitting region, and [FractionalEmission] compares the result with a
// transparent wind.
package integrators
