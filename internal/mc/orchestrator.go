package mc

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nsbh/kickmc/internal/binary"
	"github.com/nsbh/kickmc/internal/dynamo"
	"github.com/nsbh/kickmc/internal/galaxy"
	"github.com/nsbh/kickmc/internal/results"
)

// TrialEngine is the per-trial system under evolution. *binary.Engine is
// the production implementation; tests substitute doubles through the
// runner's engine factory.
type TrialEngine interface {
	// ApplyKick processes the supernova; true means the binary was
	// disrupted and must not be evolved further.
	ApplyKick() bool
	// MergerWithin computes the inspiral time and reports whether it
	// falls inside [min, max] Gyr.
	MergerWithin(min, max float64) bool
	PlaceInitialPosition()
	PlaceInitialVelocity()
	Integrate(ctx context.Context) error
	ClassifySuccess(target galaxy.OffsetConstraint) bool
	EnergyResidual() float64
	Trajectory() ([]float64, []dynamo.State)
	Row(flag int) results.Row
}

// SweepEngine adds the diagnostic-sweep operations.
type SweepEngine interface {
	TrialEngine
	PlaceRadial()
	EvolveUntil(ctx context.Context, horizon float64, crossed func(t float64, pos dynamo.Vec3) bool) (bool, error)
}

// EngineFactory builds one engine per trial. seed makes the trial's
// internal draws reproducible. A construction error is a configuration
// error and aborts the whole run.
type EngineFactory func(p binary.Params, seed int64) (SweepEngine, error)

// RowSink is the append-only results store.
type RowSink interface {
	Append(results.Row) error
}

// TrajectorySink persists successful trajectories for visualization.
type TrajectorySink interface {
	Save(kickSpeed float64, times []float64, states []dynamo.State) (string, error)
}

// Config holds the run-wide knobs shared read-only across trials.
type Config struct {
	Seed             int64
	Workers          int     // <=1 runs sequentially
	MergerMin        float64 // Gyr
	MergerMax        float64 // Gyr
	EnergyTol        float64 // residual above which flag 4 supersedes 0/1
	StepDt           float64 // integration step, Gyr
	Integrator       string  // rk4 (default) or leapfrog
	SaveTrajectories bool
}

func DefaultConfig() Config {
	return Config{
		Workers:   1,
		MergerMin: 0,
		MergerMax: 14,
		EnergyTol: 1e-3,
		StepDt:    binary.DefaultConfig().Dt,
	}
}

// Event is a progress snapshot for live monitoring.
type Event struct {
	Done        int
	Total       int
	Counts      [5]int // indexed by Outcome
	MaxResidual float64
}

// Summary is the run-level bookkeeping reported once at the end.
type Summary struct {
	Trials            int
	Counts            map[Outcome]int
	MaxEnergyResidual float64
}

// SuccessFraction is the share of trials that merged at the observed
// offset.
func (s Summary) SuccessFraction() float64 {
	if s.Trials == 0 {
		return 0
	}
	return float64(s.Counts[OutcomeOffsetMatch]) / float64(s.Trials)
}

// TrialResult is the pure output of one trial: the finalized row plus the
// energy residual folded into the run maximum by the caller.
type TrialResult struct {
	Row      results.Row
	Outcome  Outcome
	Residual float64

	// Trajectory history, kept only for matched trials when persistence
	// is configured.
	KickSpeed float64
	Times     []float64
	States    []dynamo.State
}

// Runner executes the stochastic mode: one engine per sampled parameter
// tuple, exactly one emitted row per trial.
type Runner struct {
	cfg       Config
	pot       *galaxy.Potential
	target    galaxy.OffsetConstraint
	sink      RowSink
	traj      TrajectorySink
	log       *zap.Logger
	newEngine EngineFactory
	progress  func(Event)
	limiter   *rate.Limiter
}

func NewRunner(cfg Config, pot *galaxy.Potential, target galaxy.OffsetConstraint, sink RowSink, log *zap.Logger) *Runner {
	r := &Runner{
		cfg:     cfg,
		pot:     pot,
		target:  target,
		sink:    sink,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(30), 1),
	}
	r.newEngine = func(p binary.Params, seed int64) (SweepEngine, error) {
		return binary.NewEngine(p, pot, binary.Config{
			Dt:         cfg.StepDt,
			Record:     cfg.SaveTrajectories,
			Integrator: cfg.Integrator,
		}, seed)
	}
	return r
}

// SetEngineFactory replaces the production engine, for tests.
func (r *Runner) SetEngineFactory(f EngineFactory) { r.newEngine = f }

// SetTrajectoryStore enables persistence of matched-trial trajectories.
func (r *Runner) SetTrajectoryStore(t TrajectorySink) { r.traj = t }

// SetProgress installs a progress callback. Calls are throttled except for
// the final event.
func (r *Runner) SetProgress(fn func(Event)) { r.progress = fn }

// Run evolves every parameter tuple through the decision tree and appends
// exactly one row each. Rows may arrive at the sink in any order when
// workers > 1; the summary is order-independent.
func (r *Runner) Run(ctx context.Context, params []binary.Params) (Summary, error) {
	total := len(params)
	r.log.Info("starting run",
		zap.Int("trials", total),
		zap.Int("workers", max(1, r.cfg.Workers)),
		zap.Float64("offset_kpc", r.target.Offset),
	)

	workers := max(1, r.cfg.Workers)
	idxCh := make(chan int)
	resCh := make(chan TrialResult, workers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(idxCh)
		for i := range params {
			select {
			case idxCh <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range idxCh {
				tr, err := r.runTrial(gctx, params[i], r.cfg.Seed+int64(i)+1)
				if err != nil {
					return fmt.Errorf("trial %d: %w", i, err)
				}
				select {
				case resCh <- tr:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	// Single writer: serializes sink appends and folds the run maxima.
	summary := Summary{Counts: make(map[Outcome]int)}
	writerDone := make(chan struct{})
	var writeErr error
	go func() {
		defer close(writerDone)
		for tr := range resCh {
			if writeErr != nil {
				continue
			}
			if err := r.sink.Append(tr.Row); err != nil {
				writeErr = err
				continue
			}
			summary.Trials++
			summary.Counts[tr.Outcome]++
			if tr.Residual > summary.MaxEnergyResidual {
				summary.MaxEnergyResidual = tr.Residual
			}
			if tr.States != nil && r.traj != nil {
				if _, err := r.traj.Save(tr.KickSpeed, tr.Times, tr.States); err != nil {
					r.log.Warn("trajectory persistence failed", zap.Error(err))
				}
			}
			r.emitProgress(summary, total)
		}
	}()

	err := g.Wait()
	close(resCh)
	<-writerDone

	if err != nil {
		return summary, err
	}
	if writeErr != nil {
		return summary, fmt.Errorf("result sink: %w", writeErr)
	}

	r.emitFinal(summary, total)
	r.log.Info("run finished",
		zap.Int("trials", summary.Trials),
		zap.Int("matched", summary.Counts[OutcomeOffsetMatch]),
		zap.Float64("success_fraction", summary.SuccessFraction()),
		zap.Float64("max_energy_residual", summary.MaxEnergyResidual),
	)
	return summary, nil
}

// runTrial drives one engine through the physical decision tree. Each gate
// short-circuits the remaining stages; every path yields a finalized row.
func (r *Runner) runTrial(ctx context.Context, p binary.Params, seed int64) (TrialResult, error) {
	if err := p.Validate(); err != nil {
		return TrialResult{}, err
	}
	eng, err := r.newEngine(p, seed)
	if err != nil {
		return TrialResult{}, err
	}

	if eng.ApplyKick() {
		return TrialResult{Row: eng.Row(int(OutcomeDisrupted)), Outcome: OutcomeDisrupted}, nil
	}
	if !eng.MergerWithin(r.cfg.MergerMin, r.cfg.MergerMax) {
		return TrialResult{Row: eng.Row(int(OutcomeNoMerger)), Outcome: OutcomeNoMerger}, nil
	}

	eng.PlaceInitialPosition()
	eng.PlaceInitialVelocity()

	// Integration failure is fatal to the whole run: retrying a
	// deterministic computation cannot change its outcome.
	if err := eng.Integrate(ctx); err != nil {
		return TrialResult{}, err
	}

	outcome := OutcomeOffsetMiss
	if eng.ClassifySuccess(r.target) {
		outcome = OutcomeOffsetMatch
	}
	residual := eng.EnergyResidual()
	if residual > r.cfg.EnergyTol {
		// Conservation failure outranks the nominal classification.
		outcome = OutcomeEnergyFail
	}

	tr := TrialResult{
		Row:      eng.Row(int(outcome)),
		Outcome:  outcome,
		Residual: residual,
	}
	if outcome == OutcomeOffsetMatch && r.cfg.SaveTrajectories {
		tr.KickSpeed = p.KickSpeed
		tr.Times, tr.States = eng.Trajectory()
	}
	return tr, nil
}

func (r *Runner) emitProgress(s Summary, total int) {
	if r.progress == nil || !r.limiter.Allow() {
		return
	}
	r.progress(r.event(s, total))
}

func (r *Runner) emitFinal(s Summary, total int) {
	if r.progress == nil {
		return
	}
	r.progress(r.event(s, total))
}

func (r *Runner) event(s Summary, total int) Event {
	ev := Event{Done: s.Trials, Total: total, MaxResidual: s.MaxEnergyResidual}
	for o, n := range s.Counts {
		if o.Terminal() {
			ev.Counts[o] = n
		}
	}
	return ev
}
