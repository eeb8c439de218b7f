package binary

import (
	"math"
	"math/rand"

	"github.com/nsbh/kickmc/internal/dynamo"
)

const (
	// GBin is G in (km/s)^2 Rsun / Msun, for two-body work.
	GBin = 1.9075e5

	// RsunKm converts Rsun to km.
	RsunKm = 6.957e5
)

// PostKick holds the orbital elements and center-of-mass velocity of the
// binary immediately after the supernova, plus the drawn geometry recorded
// in the result row.
type PostKick struct {
	SemiMajor  float64 // Rsun; meaningless if Disrupted
	Ecc        float64
	Separation float64 // orbital separation at the moment of the SN, Rsun

	Systemic dynamo.Vec3 // center-of-mass velocity imparted, km/s
	VSys     float64     // |Systemic|

	Disrupted bool

	// Drawn geometry.
	Theta   float64 // kick polar angle from the orbital velocity
	Phi     float64 // kick azimuth
	Anomaly float64 // mean anomaly at the SN
	Omega   float64 // pre-SN orbital angular velocity at the SN, rad/s
}

// applyKick draws an isotropic kick direction and an orbital phase, then
// solves the post-SN two-body problem following the usual instantaneous
// mass-loss plus velocity-impulse treatment (Kalogera 1996).
func applyKick(p Params, rng *rand.Rand) PostKick {
	mi := p.MCompanion + p.MHe
	mf := p.MCompanion + p.MNS

	out := PostKick{
		Theta:   math.Acos(2*rng.Float64() - 1),
		Phi:     2 * math.Pi * rng.Float64(),
		Anomaly: 2 * math.Pi * rng.Float64(),
	}

	// Separation and velocity at a random orbital phase.
	ecc := solveKepler(out.Anomaly, p.Ecc)
	r := p.SemiMajor * (1 - p.Ecc*math.Cos(ecc))
	v2 := GBin * mi * (2/r - 1/p.SemiMajor)
	h := math.Sqrt(GBin * mi * p.SemiMajor * (1 - p.Ecc*p.Ecc))
	vtan := h / r
	vrad := math.Sqrt(math.Max(0, v2-vtan*vtan))
	if math.Sin(ecc) < 0 {
		vrad = -vrad
	}
	out.Separation = r
	out.Omega = vtan / (r * RsunKm)

	// Separation along x, orbit in the xy plane.
	rvec := dynamo.Vec3{r, 0, 0}
	vvec := dynamo.Vec3{vrad, vtan, 0}

	// Kick components in a frame aligned with the orbital velocity.
	e1 := vvec.Unit()
	e2 := dynamo.Vec3{0, 0, 1}.Cross(e1)
	e3 := dynamo.Vec3{0, 0, 1}
	vk := e1.Scale(p.KickSpeed * math.Cos(out.Theta)).
		Add(e2.Scale(p.KickSpeed * math.Sin(out.Theta) * math.Cos(out.Phi))).
		Add(e3.Scale(p.KickSpeed * math.Sin(out.Theta) * math.Sin(out.Phi)))

	vnew := vvec.Add(vk)

	// Mass loss recoil plus the kick share carried by the center of mass.
	out.Systemic = vvec.Scale(p.MCompanion * (p.MNS - p.MHe) / (mi * mf)).
		Add(vk.Scale(p.MNS / mf))
	out.VSys = out.Systemic.Norm()

	eps := 0.5*vnew.Dot(vnew) - GBin*mf/r
	if eps >= 0 {
		out.Disrupted = true
		return out
	}

	out.SemiMajor = -GBin * mf / (2 * eps)
	hnew := rvec.Cross(vnew).Norm()
	e2f := 1 - hnew*hnew/(GBin*mf*out.SemiMajor)
	out.Ecc = math.Sqrt(math.Max(0, e2f))
	if out.Ecc >= 1 {
		out.Disrupted = true
	}
	return out
}

// solveKepler returns the eccentric anomaly for mean anomaly m, by Newton
// iteration.
func solveKepler(m, e float64) float64 {
	if e == 0 {
		return m
	}
	ecc := m
	for i := 0; i < 30; i++ {
		f := ecc - e*math.Sin(ecc) - m
		df := 1 - e*math.Cos(ecc)
		step := f / df
		ecc -= step
		if math.Abs(step) < 1e-12 {
			break
		}
	}
	return ecc
}
