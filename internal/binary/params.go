// Package binary implements the per-trial system under evolution: a
// compact binary receiving a natal kick at the second supernova, evolved
// through its host potential to the gravitational-wave merger time.
//
// Units: masses Msun, binary separations Rsun, speeds km/s, galactocentric
// distances kpc, times Gyr.
package binary

import (
	"fmt"

	"github.com/nsbh/kickmc/internal/dynamo"
)

// Params is the immutable input tuple for one trial.
type Params struct {
	MCompanion float64 // first-born compact object, Msun
	MNS        float64 // neutron star formed in the SN, Msun
	MHe        float64 // helium-star progenitor of the NS, Msun
	SemiMajor  float64 // pre-kick semi-major axis, Rsun
	Ecc        float64 // pre-kick eccentricity
	KickSpeed  float64 // km/s
	Radius     float64 // galactocentric birth radius, kpc
}

func (p Params) Validate() error {
	if p.MCompanion <= 0 || p.MNS <= 0 || p.MHe <= 0 {
		return fmt.Errorf("masses must be positive (%g, %g, %g Msun): %w",
			p.MCompanion, p.MNS, p.MHe, dynamo.ErrParameterBounds)
	}
	if p.MHe < p.MNS {
		return fmt.Errorf("helium star (%g Msun) lighter than its remnant (%g Msun): %w",
			p.MHe, p.MNS, dynamo.ErrParameterBounds)
	}
	if p.SemiMajor <= 0 {
		return fmt.Errorf("semi-major axis must be positive, got %g Rsun: %w",
			p.SemiMajor, dynamo.ErrParameterBounds)
	}
	if p.Ecc < 0 || p.Ecc >= 1 {
		return fmt.Errorf("eccentricity must be in [0,1), got %g: %w",
			p.Ecc, dynamo.ErrParameterBounds)
	}
	if p.KickSpeed < 0 {
		return fmt.Errorf("kick speed must be non-negative, got %g km/s: %w",
			p.KickSpeed, dynamo.ErrParameterBounds)
	}
	if p.Radius <= 0 {
		return fmt.Errorf("birth radius must be positive, got %g kpc: %w",
			p.Radius, dynamo.ErrParameterBounds)
	}
	return nil
}
