package galaxy

import (
	"math"

	"github.com/nsbh/kickmc/internal/dynamo"
)

// Unit system: lengths kpc, masses Msun, velocities km/s, times Gyr.
const (
	// G in kpc (km/s)^2 / Msun.
	G = 4.30091e-6

	// KmsToKpcGyr converts km/s to kpc/Gyr.
	KmsToKpcGyr = 1.02271
)

// Potential is a spherical three-component host model: a Hernquist bulge,
// a Plummer sphere standing in for the disk, and an NFW halo. Scale radii
// are tied to the effective radius.
type Potential struct {
	bulgeMass  float64
	bulgeScale float64
	diskMass   float64
	diskScale  float64
	haloMass   float64 // NFW characteristic mass 4*pi*rho0*rs^3
	haloScale  float64
}

func NewPotential(p Parameters) *Potential {
	return &Potential{
		bulgeMass:  p.Mbulge,
		bulgeScale: 0.2 * p.Reff,
		diskMass:   p.Mspiral,
		diskScale:  p.Reff / 1.678, // exponential scale length
		haloMass:   p.Mhalo,
		haloScale:  10 * p.Reff,
	}
}

// EnclosedMass returns the total mass inside radius r in Msun.
func (p *Potential) EnclosedMass(r float64) float64 {
	if r <= 0 {
		return 0
	}
	bulge := p.bulgeMass * r * r / ((r + p.bulgeScale) * (r + p.bulgeScale))
	d2 := r*r + p.diskScale*p.diskScale
	disk := p.diskMass * r * r * r / (d2 * math.Sqrt(d2))
	x := r / p.haloScale
	halo := p.haloMass * (math.Log(1+x) - x/(1+x))
	return bulge + disk + halo
}

// Phi returns the gravitational potential at radius r in (km/s)^2.
func (p *Potential) Phi(r float64) float64 {
	bulge := -G * p.bulgeMass / (r + p.bulgeScale)
	disk := -G * p.diskMass / math.Sqrt(r*r+p.diskScale*p.diskScale)
	var halo float64
	if r > 0 {
		halo = -G * p.haloMass * math.Log(1+r/p.haloScale) / r
	} else {
		halo = -G * p.haloMass / p.haloScale
	}
	return bulge + disk + halo
}

// Accel returns the gravitational acceleration at pos in (km/s)^2 per kpc.
func (p *Potential) Accel(pos dynamo.Vec3) dynamo.Vec3 {
	r := pos.Norm()
	if r == 0 {
		return dynamo.Vec3{}
	}
	a := -G * p.EnclosedMass(r) / (r * r)
	return pos.Scale(a / r)
}

// CircularVelocity returns the circular-orbit speed at radius r in km/s.
func (p *Potential) CircularVelocity(r float64) float64 {
	if r <= 0 {
		return 0
	}
	return math.Sqrt(G * p.EnclosedMass(r) / r)
}

// Field adapts the potential to a dynamo.System over trajectory states
// [x, y, z, vx, vy, vz] in kpc and kpc/Gyr.
type Field struct {
	pot *Potential
}

var (
	_ dynamo.System      = (*Field)(nil)
	_ dynamo.Hamiltonian = (*Field)(nil)
)

func NewField(pot *Potential) *Field {
	return &Field{pot: pot}
}

func (f *Field) StateDim() int { return 6 }

func (f *Field) Derive(x dynamo.State, t float64) dynamo.State {
	acc := f.pot.Accel(x.Position())
	// (km/s)^2/kpc -> kpc/Gyr^2
	k := KmsToKpcGyr * KmsToKpcGyr
	return dynamo.State{x[3], x[4], x[5], acc[0] * k, acc[1] * k, acc[2] * k}
}

// Energy is the specific mechanical energy in (km/s)^2.
func (f *Field) Energy(x dynamo.State) float64 {
	v := x.Velocity().Scale(1 / KmsToKpcGyr)
	return 0.5*v.Dot(v) + f.pot.Phi(x.Position().Norm())
}
