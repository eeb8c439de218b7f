package binary

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/nsbh/kickmc/internal/dynamo"
	"github.com/nsbh/kickmc/internal/galaxy"
	"github.com/nsbh/kickmc/internal/integrators"
	"github.com/nsbh/kickmc/internal/results"
)

// Config tunes trajectory integration.
type Config struct {
	Dt         float64 // integration step, Gyr
	Record     bool    // keep the full state history for persistence
	Integrator string  // rk4 (default) or leapfrog
}

func DefaultConfig() Config {
	return Config{Dt: 5e-4}
}

// Engine is the mutable simulation state for exactly one trial. It is
// owned by its orchestrator for the trial's duration and never shared
// across trials.
type Engine struct {
	params Params
	pot    *galaxy.Potential
	field  *galaxy.Field
	integ  dynamo.Integrator
	cfg    Config
	rng    *rand.Rand

	post       PostKick
	mergerTime float64 // Gyr

	galTheta, galPhi   float64
	velAlpha, velPsi   float64
	x0, final          dynamo.State
	times              []float64
	traj               []dynamo.State
	residual           float64
	rmerge, rmergeProj float64 // 3-D and projected merger radii, kpc
	matched            bool
}

func NewEngine(p Params, pot *galaxy.Potential, cfg Config, seed int64) (*Engine, error) {
	if cfg.Dt <= 0 {
		cfg.Dt = DefaultConfig().Dt
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	return &Engine{
		params: p,
		pot:    pot,
		field:  galaxy.NewField(pot),
		integ:  integ,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

// ApplyKick processes the supernova and reports whether the binary was
// disrupted. A disrupted trial must not be evolved further.
func (e *Engine) ApplyKick() bool {
	e.post = applyKick(e.params, e.rng)
	return e.post.Disrupted
}

// MergerWithin computes the gravitational-wave inspiral time and reports
// whether it falls inside [min, max] Gyr.
func (e *Engine) MergerWithin(min, max float64) bool {
	e.mergerTime = MergerTime(e.post.SemiMajor, e.post.Ecc, e.params.MCompanion, e.params.MNS)
	return e.mergerTime >= min && e.mergerTime <= max
}

// PlaceInitialPosition puts the system uniformly on the sphere of its
// birth radius.
func (e *Engine) PlaceInitialPosition() {
	e.galTheta = math.Acos(2*e.rng.Float64() - 1)
	e.galPhi = 2 * math.Pi * e.rng.Float64()

	r := e.params.Radius
	e.x0 = dynamo.State{
		r * math.Sin(e.galTheta) * math.Cos(e.galPhi),
		r * math.Sin(e.galTheta) * math.Sin(e.galPhi),
		r * math.Cos(e.galTheta),
		0, 0, 0,
	}
}

// PlaceInitialVelocity combines the local circular speed along a random
// tangential direction with the kick-imparted systemic speed along a
// random isotropic direction.
func (e *Engine) PlaceInitialVelocity() {
	rhat := e.x0.Position().Unit()

	// Orthonormal basis in the tangent plane.
	ref := dynamo.Vec3{0, 0, 1}
	if math.Abs(rhat[2]) > 0.9 {
		ref = dynamo.Vec3{1, 0, 0}
	}
	e1 := rhat.Cross(ref).Unit()
	e2 := rhat.Cross(e1)

	e.velAlpha = 2 * math.Pi * e.rng.Float64()
	vc := e.pot.CircularVelocity(e.params.Radius)
	tangential := e1.Scale(math.Cos(e.velAlpha)).Add(e2.Scale(math.Sin(e.velAlpha))).Scale(vc)

	e.velPsi = math.Acos(2*e.rng.Float64() - 1)
	phi := 2 * math.Pi * e.rng.Float64()
	systemic := dynamo.Vec3{
		math.Sin(e.velPsi) * math.Cos(phi),
		math.Sin(e.velPsi) * math.Sin(phi),
		math.Cos(e.velPsi),
	}.Scale(e.post.VSys)

	v := tangential.Add(systemic).Scale(galaxy.KmsToKpcGyr)
	e.x0[3], e.x0[4], e.x0[5] = v[0], v[1], v[2]
}

// PlaceRadial is the diagnostic-sweep placement: on-axis position with the
// full systemic speed directed radially outward and no circular component.
func (e *Engine) PlaceRadial() {
	e.galTheta = math.Pi / 2
	e.galPhi = 0
	e.velAlpha = 0
	e.velPsi = math.Pi / 2
	e.x0 = dynamo.State{
		e.params.Radius, 0, 0,
		e.post.VSys * galaxy.KmsToKpcGyr, 0, 0,
	}
}

// Integrate evolves the center of mass through the potential until the
// merger time, tracking the mechanical-energy residual.
func (e *Engine) Integrate(ctx context.Context) error {
	steps := int(math.Ceil(e.mergerTime / e.cfg.Dt))
	if steps < 1 {
		steps = 1
	}
	dt := e.mergerTime / float64(steps)

	e0 := e.field.Energy(e.x0)
	x := e.x0.Clone()
	t := 0.0

	if e.cfg.Record {
		e.times = append(e.times[:0], t)
		e.traj = append(e.traj[:0], x.Clone())
	}

	for i := 0; i < steps; i++ {
		if i%1024 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		x = e.integ.Step(e.field, x, t, dt)
		t += dt

		if !x.IsValid() {
			return fmt.Errorf("trial integration at t=%.4f Gyr: %w", t, dynamo.ErrInvalidState)
		}
		if e.cfg.Record {
			e.times = append(e.times, t)
			e.traj = append(e.traj, x.Clone())
		}
	}

	e.final = x
	ef := e.field.Energy(x)
	if e0 != 0 {
		e.residual = math.Abs(ef-e0) / math.Abs(e0)
	}
	return nil
}

// EvolveUntil integrates up to horizon Gyr, calling crossed after every
// step. On the first crossing the merger time and radii are overwritten
// with the crossing time and position and evolution stops. Reports whether
// a crossing occurred.
func (e *Engine) EvolveUntil(ctx context.Context, horizon float64, crossed func(t float64, pos dynamo.Vec3) bool) (bool, error) {
	dt := e.cfg.Dt
	x := e.x0.Clone()
	t := 0.0

	for i := 0; t < horizon; i++ {
		if i%1024 == 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			default:
			}
		}

		x = e.integ.Step(e.field, x, t, dt)
		t += dt

		if !x.IsValid() {
			return false, fmt.Errorf("sweep integration at t=%.4f Gyr: %w", t, dynamo.ErrInvalidState)
		}

		if pos := x.Position(); crossed(t, pos) {
			e.mergerTime = t
			e.rmerge = pos.Norm()
			e.rmergeProj = pos.ProjectedNorm()
			e.final = x
			return true, nil
		}
	}

	e.final = x
	return false, nil
}

// ClassifySuccess records the merger radii and reports whether the final
// projected separation matches the observational constraint.
func (e *Engine) ClassifySuccess(target galaxy.OffsetConstraint) bool {
	pos := e.final.Position()
	e.rmerge = pos.Norm()
	e.rmergeProj = pos.ProjectedNorm()
	e.matched = target.Matches(e.rmergeProj)
	return e.matched
}

// EnergyResidual is the fractional mechanical-energy drift of the last
// completed integration.
func (e *Engine) EnergyResidual() float64 { return e.residual }

// Trajectory returns the recorded state history. Empty unless the engine
// was configured to record.
func (e *Engine) Trajectory() ([]float64, []dynamo.State) { return e.times, e.traj }

// Row flattens the trial into one result record carrying the given
// outcome flag. Fields past the stage the trial reached stay zero.
func (e *Engine) Row(flag int) results.Row {
	row := results.Row{
		MCompanion: e.params.MCompanion,
		MNS:        e.params.MNS,
		MHe:        e.params.MHe,
		APre:       e.params.SemiMajor,
		EPre:       e.params.Ecc,
		Separation: e.post.Separation,
		R0:         e.params.Radius,
		GalTheta:   e.galTheta,
		GalPhi:     e.galPhi,
		VKick:      e.params.KickSpeed,
		KickTheta:  e.post.Theta,
		KickPhi:    e.post.Phi,
		Anomaly:    e.post.Anomaly,
		OmegaOrb:   e.post.Omega,
		VDirAlpha:  e.velAlpha,
		VDirPsi:    e.velPsi,
		VSys:       e.post.VSys,
		MergerTime: e.mergerTime,
		RMerge:     e.rmerge,
		RMergeProj: e.rmergeProj,
		Flag:       flag,
	}
	if !e.post.Disrupted {
		row.APost = e.post.SemiMajor
		row.EPost = e.post.Ecc
	}
	if e.x0 != nil {
		row.R0Proj = e.x0.Position().ProjectedNorm()
	}
	if e.final != nil {
		v := e.final.Velocity().Scale(1 / galaxy.KmsToKpcGyr)
		row.VFinal = v.Norm()
		row.VFx, row.VFy, row.VFz = v[0], v[1], v[2]
	}
	return row
}
