package wind

import (
	"fmt"
	"strings"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/numeric"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultBeta is the velocity-law exponent. The analytic strategy only
	// supports this value.
	DefaultBeta = 1.0

	// DefaultU0 is the inverse radius of the onset of X-ray emission,
	// corresponding to R0 = 1.5 stellar radii.
	DefaultU0 = 1 / 1.5

	// DefaultMethod is the optical-depth strategy.
	DefaultMethod = MethodAnalytic
)

// Method selects the optical-depth strategy.
type Method string

// Supported strategies.
const (
	MethodAnalytic  Method = "analytic"
	MethodNumerical Method = "numerical"
	MethodResonance Method = "resonance"
)

// ValidMethods is the set of supported strategies.
var ValidMethods = map[Method]bool{
	MethodAnalytic:  true,
	MethodNumerical: true,
	MethodResonance: true,
}

// ParseMethod converts a user-supplied string to a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !ValidMethods[m] {
		return "", errors.New(errors.ErrCodeConfiguration, "unknown method %q (want analytic, numerical or resonance)", s)
	}
	return m, nil
}

// =============================================================================
// Config
// =============================================================================

// Config is the user-facing wind description. It decodes from TOML files and
// from JSON API requests; [New] validates it into an immutable [Model].
//
// For the resonance strategy TauStar holds τ0, the line-centre opacity scale.
type Config struct {
	Method Method `toml:"method" json:"method,omitempty"`

	// Velocity law and emitting region
	Beta float64 `toml:"beta" json:"beta"`
	U0   float64 `toml:"u0" json:"u0"`
	UMin float64 `toml:"u_min" json:"u_min,omitempty"`
	Q    float64 `toml:"q" json:"q,omitempty"`

	// Continuum opacity
	TauStar     float64 `toml:"tau_star" json:"tau_star"`
	H           float64 `toml:"h" json:"h,omitempty"`
	Anisotropic bool    `toml:"anisotropic" json:"anisotropic,omitempty"`
	Rosseland   bool    `toml:"rosseland" json:"rosseland,omitempty"`
	Expansion   bool    `toml:"expansion" json:"expansion,omitempty"`
	HeLike      bool    `toml:"he_like" json:"he_like,omitempty"`
	KappaRatio  float64 `toml:"kappa_ratio" json:"kappa_ratio,omitempty"`

	// Resonance line (Doppler) parameters, in units of the line energy and c
	DeltaE    float64 `toml:"delta_e" json:"delta_e,omitempty"`
	GammaE    float64 `toml:"gamma_e" json:"gamma_e,omitempty"`
	VInfinity float64 `toml:"v_infinity" json:"v_infinity,omitempty"`

	Quadrature numeric.QuadratureOptions `toml:"quadrature" json:"quadrature,omitempty"`
}

// DefaultConfig returns a smooth analytic wind with β = 1 and τ* = 1.
func DefaultConfig() Config {
	return Config{
		Method:  DefaultMethod,
		Beta:    DefaultBeta,
		U0:      DefaultU0,
		TauStar: 1,
	}
}

// SetDefaults fills zero-valued fields that have a non-zero default.
func (c *Config) SetDefaults() {
	if c.Method == "" {
		c.Method = DefaultMethod
	}
	if c.U0 == 0 {
		c.U0 = DefaultU0
	}
}

// Validate checks every parameter and every combination of method axes.
// All failures carry ErrCodeConfiguration.
func (c Config) Validate() error {
	if !ValidMethods[c.Method] {
		return errors.New(errors.ErrCodeConfiguration, "unknown method %q", c.Method)
	}

	for _, v := range []struct {
		name string
		val  float64
	}{
		{"beta", c.Beta},
		{"tau_star", c.TauStar},
		{"h", c.H},
		{"kappa_ratio", c.KappaRatio},
	} {
		if err := errors.ValidateNonNegative(errors.ErrCodeConfiguration, v.name, v.val); err != nil {
			return err
		}
	}
	if err := errors.ValidateRange(errors.ErrCodeConfiguration, "u0", c.U0, 0, 1); err != nil {
		return err
	}
	if c.U0 == 0 {
		return errors.New(errors.ErrCodeConfiguration, "u0 must be positive")
	}
	if err := errors.ValidateRange(errors.ErrCodeConfiguration, "u_min", c.UMin, 0, c.U0); err != nil {
		return err
	}
	if err := errors.ValidateFinite("q", c.Q); err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, err, "invalid emissivity index")
	}
	if c.Q <= -1 {
		return errors.New(errors.ErrCodeConfiguration, "q must be greater than -1, got %g", c.Q)
	}
	if c.KappaRatio > 0 && !c.HeLike {
		return errors.New(errors.ErrCodeConfiguration, "kappa_ratio is set but he_like is off")
	}

	switch c.Method {
	case MethodAnalytic:
		if c.Rosseland {
			return errors.New(errors.ErrCodeConfiguration, "rosseland weighting requires the numerical method")
		}
		if c.Anisotropic && c.Expansion {
			return errors.New(errors.ErrCodeConfiguration, "the analytic expansion model is isotropic; drop anisotropic or expansion")
		}
		if c.Beta != 1 {
			return errors.New(errors.ErrCodeConfiguration, "the analytic method requires beta = 1, got %g", c.Beta)
		}
	case MethodNumerical:
		if c.Expansion {
			return errors.New(errors.ErrCodeConfiguration, "the expansion porosity model is only available analytically")
		}
	case MethodResonance:
		if c.H > 0 || c.Anisotropic || c.Rosseland || c.Expansion {
			return errors.New(errors.ErrCodeConfiguration, "the resonance method does not support porosity")
		}
		if c.HeLike {
			return errors.New(errors.ErrCodeConfiguration, "the resonance method does not support the he-like correction")
		}
		if err := errors.ValidateOpenRange(errors.ErrCodeConfiguration, "v_infinity", c.VInfinity, 0, 1); err != nil {
			return err
		}
		if err := errors.ValidateOpenRange(errors.ErrCodeConfiguration, "delta_e", c.DeltaE, -1, 1); err != nil {
			return err
		}
		if err := errors.ValidateNonNegative(errors.ErrCodeConfiguration, "gamma_e", c.GammaE); err != nil {
			return err
		}
		if c.GammaE == 0 {
			return errors.New(errors.ErrCodeConfiguration, "gamma_e must be positive")
		}
	}

	q := c.Quadrature
	if q.RelTol < 0 || q.AbsTol < 0 || q.MaxIntervals < 0 {
		return errors.New(errors.ErrCodeConfiguration, "quadrature tolerances must not be negative")
	}
	return nil
}

// String returns a compact, human-readable description of the method axes.
func (c Config) String() string {
	var b strings.Builder
	b.WriteString(string(c.Method))
	flag := func(on bool, name string) {
		if on {
			b.WriteString("+")
			b.WriteString(name)
		}
	}
	flag(c.H > 0, "porous")
	flag(c.Anisotropic, "anisotropic")
	flag(c.Rosseland, "rosseland")
	flag(c.Expansion, "expansion")
	flag(c.HeLike, fmt.Sprintf("helike(%g)", c.KappaRatio))
	return b.String()
}
