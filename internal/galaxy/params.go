package galaxy

import (
	"fmt"

	"github.com/nsbh/kickmc/internal/dynamo"
)

// Parameters describes one host galaxy: the observed burst offset, the
// three-component mass decomposition, and the observational metadata the
// result files are labeled with. Masses are in Msun, lengths in kpc,
// distance in Mpc.
type Parameters struct {
	Name      string  `yaml:"name"`
	GRB       string  `yaml:"grb"`
	Telescope string  `yaml:"telescope"`
	Offset    float64 `yaml:"offset"`
	Mspiral   float64 `yaml:"mspiral"`
	Mbulge    float64 `yaml:"mbulge"`
	Mhalo     float64 `yaml:"mhalo"`
	Reff      float64 `yaml:"r_eff"`
	Distance  float64 `yaml:"distance"`
	Redshift  float64 `yaml:"redshift"`
}

func (p Parameters) Validate() error {
	checks := []struct {
		name string
		val  float64
	}{
		{"offset", p.Offset},
		{"mspiral", p.Mspiral},
		{"mbulge", p.Mbulge},
		{"mhalo", p.Mhalo},
		{"r_eff", p.Reff},
		{"distance", p.Distance},
	}
	for _, c := range checks {
		if c.val <= 0 {
			return fmt.Errorf("galaxy %q: %s must be positive, got %g: %w",
				p.Name, c.name, c.val, dynamo.ErrParameterBounds)
		}
	}
	return nil
}

// OffsetConstraint is the observational target: the measured projected
// offset and its 1-sigma uncertainty, both in kpc.
type OffsetConstraint struct {
	Offset      float64 `yaml:"offset"`
	Uncertainty float64 `yaml:"offset_uncer"`
}

func (c OffsetConstraint) Validate() error {
	if c.Offset <= 0 || c.Uncertainty <= 0 {
		return fmt.Errorf("offset constraint (%g ± %g kpc): %w",
			c.Offset, c.Uncertainty, dynamo.ErrParameterBounds)
	}
	return nil
}

// Matches reports whether a projected radius lands within one sigma of the
// observed offset.
func (c OffsetConstraint) Matches(rproj float64) bool {
	return rproj >= c.Offset-c.Uncertainty && rproj <= c.Offset+c.Uncertainty
}

// FromStellarMass builds default Parameters for a host with no published
// mass decomposition: 90/10 disk/bulge split of the stellar mass and a halo
// thirty times heavier, a crude abundance-matching stand-in.
func FromStellarMass(name string, mstar, reff, offset, distance float64) Parameters {
	return Parameters{
		Name:     name,
		Offset:   offset,
		Mspiral:  0.9 * mstar,
		Mbulge:   0.1 * mstar,
		Mhalo:    30 * mstar,
		Reff:     reff,
		Distance: distance,
	}
}
