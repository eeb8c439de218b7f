// Package sample draws the per-trial binary and kick parameters. Each
// family exposes one operation taking a distribution-method name and a
// trial count and returning a sequence of that length, so a whole run's
// parameters are drawn up front and trials stay index-addressable.
package sample

import (
	"fmt"
	"math"
	"math/rand"
)

// Distribution defaults, in Msun, Rsun and km/s.
const (
	DefaultNSMean  = 1.33
	DefaultNSSigma = 0.09

	MinCompanionMass = 1.1
	MaxCompanionMass = 2.5

	MinSemiMajor = 0.1
	MaxSemiMajor = 10.0

	MinHeliumMass = 2.5
	MaxHeliumMass = 8.0
	HeliumSlope   = -2.35

	// MaxwellianSigma is the Hobbs et al. pulsar-kick dispersion.
	MaxwellianSigma = 265.0

	// Two-population kick mixture: a dominant low-kick channel plus a
	// high-kick tail.
	LowKickFraction = 0.6
	LowKickSigma    = 21.0
	HighKickSigma   = 190.0

	MaxUniformKick = 1000.0
)

type Sampler struct {
	rng       *rand.Rand
	posterior []float64
}

func New(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// SetPosterior installs externally supplied NS-mass posterior samples for
// the "posterior" method.
func (s *Sampler) SetPosterior(samples []float64) {
	s.posterior = samples
}

func (s *Sampler) CompanionMasses(method string, n int) ([]float64, error) {
	switch method {
	case "fixed":
		return repeat(1.4, n), nil
	case "uniform":
		return s.uniform(MinCompanionMass, MaxCompanionMass, n), nil
	case "gaussian":
		return s.truncGaussian(DefaultNSMean, DefaultNSSigma, n), nil
	case "posterior":
		return s.fromPosterior(n)
	}
	return nil, unknownMethod("companion mass", method, "fixed", "uniform", "gaussian", "posterior")
}

func (s *Sampler) NSMasses(method string, n int) ([]float64, error) {
	switch method {
	case "fixed":
		return repeat(1.4, n), nil
	case "uniform":
		return s.uniform(MinCompanionMass, MaxCompanionMass, n), nil
	case "gaussian":
		return s.truncGaussian(DefaultNSMean, DefaultNSSigma, n), nil
	case "posterior":
		return s.fromPosterior(n)
	}
	return nil, unknownMethod("NS mass", method, "fixed", "uniform", "gaussian", "posterior")
}

func (s *Sampler) SemiMajorAxes(method string, n int) ([]float64, error) {
	switch method {
	case "fixed":
		return repeat(3.0, n), nil
	case "uniform":
		return s.uniform(MinSemiMajor, MaxSemiMajor, n), nil
	case "loguniform":
		out := make([]float64, n)
		lo, hi := math.Log(MinSemiMajor), math.Log(MaxSemiMajor)
		for i := range out {
			out[i] = math.Exp(lo + s.rng.Float64()*(hi-lo))
		}
		return out, nil
	}
	return nil, unknownMethod("semi-major axis", method, "fixed", "uniform", "loguniform")
}

func (s *Sampler) Eccentricities(method string, n int) ([]float64, error) {
	switch method {
	case "zero":
		return repeat(0, n), nil
	case "uniform":
		return s.uniform(0, 1, n), nil
	case "thermal":
		// f(e) = 2e, inverted as e = sqrt(u).
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Sqrt(s.rng.Float64())
		}
		return out, nil
	}
	return nil, unknownMethod("eccentricity", method, "zero", "uniform", "thermal")
}

// Radii draws galactocentric birth radii in kpc for a host with effective
// radius reff.
func (s *Sampler) Radii(method string, n int, reff float64) ([]float64, error) {
	switch method {
	case "fixed":
		return repeat(reff, n), nil
	case "uniform":
		return s.uniform(0, 5*reff, n), nil
	case "exponential":
		// Surface density ~ r exp(-r/Rd): a Gamma(2, Rd) radial profile,
		// drawn as the sum of two exponentials.
		rd := reff / 1.678
		out := make([]float64, n)
		for i := range out {
			out[i] = -rd * (math.Log(1-s.rng.Float64()) + math.Log(1-s.rng.Float64()))
		}
		return out, nil
	}
	return nil, unknownMethod("radius", method, "fixed", "uniform", "exponential")
}

func (s *Sampler) HeliumMasses(method string, n int) ([]float64, error) {
	switch method {
	case "fixed":
		return repeat(4.0, n), nil
	case "uniform":
		return s.uniform(MinHeliumMass, MaxHeliumMass, n), nil
	case "powerlaw":
		out := make([]float64, n)
		p := HeliumSlope + 1
		lo := math.Pow(MinHeliumMass, p)
		hi := math.Pow(MaxHeliumMass, p)
		for i := range out {
			out[i] = math.Pow(lo+s.rng.Float64()*(hi-lo), 1/p)
		}
		return out, nil
	}
	return nil, unknownMethod("helium mass", method, "fixed", "uniform", "powerlaw")
}

func (s *Sampler) KickSpeeds(method string, n int) ([]float64, error) {
	switch method {
	case "fixed":
		return repeat(MaxwellianSigma, n), nil
	case "uniform":
		return s.uniform(0, MaxUniformKick, n), nil
	case "maxwellian":
		out := make([]float64, n)
		for i := range out {
			out[i] = s.maxwellian(MaxwellianSigma)
		}
		return out, nil
	case "twopop":
		out := make([]float64, n)
		for i := range out {
			sigma := HighKickSigma
			if s.rng.Float64() < LowKickFraction {
				sigma = LowKickSigma
			}
			out[i] = s.maxwellian(sigma)
		}
		return out, nil
	}
	return nil, unknownMethod("kick speed", method, "fixed", "uniform", "maxwellian", "twopop")
}

func (s *Sampler) maxwellian(sigma float64) float64 {
	x := s.rng.NormFloat64() * sigma
	y := s.rng.NormFloat64() * sigma
	z := s.rng.NormFloat64() * sigma
	return math.Sqrt(x*x + y*y + z*z)
}

func (s *Sampler) uniform(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + s.rng.Float64()*(hi-lo)
	}
	return out
}

func (s *Sampler) truncGaussian(mean, sigma float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		v := mean + s.rng.NormFloat64()*sigma
		for v <= 0 {
			v = mean + s.rng.NormFloat64()*sigma
		}
		out[i] = v
	}
	return out
}

func (s *Sampler) fromPosterior(n int) ([]float64, error) {
	if len(s.posterior) == 0 {
		return nil, fmt.Errorf("posterior method requested but no samples loaded")
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = s.posterior[s.rng.Intn(len(s.posterior))]
	}
	return out, nil
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func unknownMethod(family, method string, known ...string) error {
	return fmt.Errorf("unknown %s method %q (known: %v)", family, method, known)
}
