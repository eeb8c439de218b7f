package mc_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/nsbh/kickmc/internal/binary"
	"github.com/nsbh/kickmc/internal/galaxy"
	"github.com/nsbh/kickmc/internal/mc"
)

// Scenario selectors encoded in the kick speed, decoded by the fake
// engine factory.
const (
	kickDisrupt    = 10.0
	kickNoMerger   = 20.0
	kickOffsetMiss = 30.0
	kickMatch      = 40.0
	kickEnergyFail = 50.0
)

func scenarioParams(kick float64) binary.Params {
	return binary.Params{
		MCompanion: 1.4, MNS: 1.4, MHe: 4.0,
		SemiMajor: 3.0, Ecc: 0, KickSpeed: kick, Radius: 2.0,
	}
}

var _ = Describe("Runner", func() {
	var (
		sink    *memSink
		target  galaxy.OffsetConstraint
		pot     *galaxy.Potential
		mu      sync.Mutex
		engines []*fakeEngine
	)

	factory := func(p binary.Params, seed int64) (mc.SweepEngine, error) {
		script := engineScript{}
		switch p.KickSpeed {
		case kickDisrupt:
			script.disrupt = true
		case kickNoMerger:
			script.inWindow = false
		case kickOffsetMiss:
			script.inWindow = true
			script.residual = 1e-6
		case kickMatch:
			script.inWindow = true
			script.match = true
			script.residual = 1e-5
		case kickEnergyFail:
			script.inWindow = true
			script.match = true
			script.residual = 0.5
		}
		eng := &fakeEngine{script: script, params: p}
		mu.Lock()
		engines = append(engines, eng)
		mu.Unlock()
		return eng, nil
	}

	newRunner := func(cfg mc.Config) *mc.Runner {
		r := mc.NewRunner(cfg, pot, target, sink, zap.NewNop())
		r.SetEngineFactory(factory)
		return r
	}

	BeforeEach(func() {
		sink = &memSink{}
		engines = nil
		target = galaxy.OffsetConstraint{Offset: 5.4, Uncertainty: 0.3}
		pot = galaxy.NewPotential(galaxy.Parameters{
			Name: "test host", Offset: 5.4, Mspiral: 7.1e9, Mbulge: 7.9e8,
			Mhalo: 2.4e11, Reff: 3.3, Distance: 1890,
		})
	})

	Context("with a disrupting kick", func() {
		It("flags the trial and stops at the first gate", func() {
			r := newRunner(mc.DefaultConfig())
			summary, err := r.Run(context.Background(), []binary.Params{scenarioParams(kickDisrupt)})
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Counts[mc.OutcomeDisrupted]).To(Equal(1))
			rows := sink.all()
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].Flag).To(Equal(int(mc.OutcomeDisrupted)))

			eng := engines[0]
			Expect(eng.applyCalls).To(Equal(1))
			Expect(eng.windowCalls).To(BeZero(), "merger gate ran after disruption")
			Expect(eng.posCalls).To(BeZero())
			Expect(eng.integCalls).To(BeZero())
		})
	})

	Context("with an inspiral outside the window", func() {
		It("flags the trial and skips the integration", func() {
			r := newRunner(mc.DefaultConfig())
			summary, err := r.Run(context.Background(), []binary.Params{scenarioParams(kickNoMerger)})
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Counts[mc.OutcomeNoMerger]).To(Equal(1))
			Expect(sink.all()[0].Flag).To(Equal(int(mc.OutcomeNoMerger)))

			eng := engines[0]
			Expect(eng.windowCalls).To(Equal(1))
			Expect(eng.posCalls).To(BeZero())
			Expect(eng.velCalls).To(BeZero())
			Expect(eng.integCalls).To(BeZero())
		})
	})

	Context("with a trial merging at the observed offset", func() {
		It("classifies a match through the full pipeline", func() {
			r := newRunner(mc.DefaultConfig())
			summary, err := r.Run(context.Background(), []binary.Params{scenarioParams(kickMatch)})
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Counts[mc.OutcomeOffsetMatch]).To(Equal(1))
			Expect(summary.SuccessFraction()).To(Equal(1.0))
			Expect(sink.all()[0].Flag).To(Equal(int(mc.OutcomeOffsetMatch)))

			eng := engines[0]
			Expect(eng.posCalls).To(Equal(1))
			Expect(eng.velCalls).To(Equal(1))
			Expect(eng.integCalls).To(Equal(1))
			Expect(eng.classifyCalls).To(Equal(1))
		})

		It("persists the trajectory when configured", func() {
			cfg := mc.DefaultConfig()
			cfg.SaveTrajectories = true
			r := newRunner(cfg)
			traj := &memTrajSink{}
			r.SetTrajectoryStore(traj)

			_, err := r.Run(context.Background(), []binary.Params{
				scenarioParams(kickMatch),
				scenarioParams(kickOffsetMiss),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(traj.count()).To(Equal(1), "only matched trials persist trajectories")
		})
	})

	Context("when energy conservation fails", func() {
		It("outranks the offset classification", func() {
			r := newRunner(mc.DefaultConfig())
			summary, err := r.Run(context.Background(), []binary.Params{scenarioParams(kickEnergyFail)})
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Counts[mc.OutcomeEnergyFail]).To(Equal(1))
			Expect(summary.Counts[mc.OutcomeOffsetMatch]).To(BeZero())
			Expect(sink.all()[0].Flag).To(Equal(int(mc.OutcomeEnergyFail)))
			Expect(summary.MaxEnergyResidual).To(Equal(0.5))
		})
	})

	Context("over a mixed batch", func() {
		var batch []binary.Params

		BeforeEach(func() {
			kicks := []float64{
				kickDisrupt, kickNoMerger, kickOffsetMiss, kickMatch, kickEnergyFail,
			}
			for i := 0; i < 20; i++ {
				batch = append(batch, scenarioParams(kicks[i%len(kicks)]))
			}
		})

		AfterEach(func() { batch = nil })

		It("emits exactly one row per trial", func() {
			r := newRunner(mc.DefaultConfig())
			summary, err := r.Run(context.Background(), batch)
			Expect(err).NotTo(HaveOccurred())

			Expect(sink.all()).To(HaveLen(len(batch)))
			Expect(summary.Trials).To(Equal(len(batch)))

			total := 0
			for o, n := range summary.Counts {
				Expect(o.Terminal()).To(BeTrue(), "non-terminal outcome %v emitted", o)
				total += n
			}
			Expect(total).To(Equal(len(batch)))
		})

		It("keeps the invariant under parallel workers", func() {
			cfg := mc.DefaultConfig()
			cfg.Workers = 4
			r := newRunner(cfg)
			summary, err := r.Run(context.Background(), batch)
			Expect(err).NotTo(HaveOccurred())

			Expect(sink.all()).To(HaveLen(len(batch)))
			Expect(summary.Counts[mc.OutcomeDisrupted]).To(Equal(4))
			Expect(summary.Counts[mc.OutcomeNoMerger]).To(Equal(4))
			Expect(summary.Counts[mc.OutcomeOffsetMiss]).To(Equal(4))
			Expect(summary.Counts[mc.OutcomeOffsetMatch]).To(Equal(4))
			Expect(summary.Counts[mc.OutcomeEnergyFail]).To(Equal(4))
			Expect(summary.MaxEnergyResidual).To(Equal(0.5))
		})

		It("reports a final progress event", func() {
			r := newRunner(mc.DefaultConfig())
			var events []mc.Event
			r.SetProgress(func(ev mc.Event) { events = append(events, ev) })

			_, err := r.Run(context.Background(), batch)
			Expect(err).NotTo(HaveOccurred())

			Expect(events).NotTo(BeEmpty())
			last := events[len(events)-1]
			Expect(last.Done).To(Equal(len(batch)))
			Expect(last.Total).To(Equal(len(batch)))
		})
	})

	Context("on failures", func() {
		It("rejects invalid trial parameters", func() {
			r := newRunner(mc.DefaultConfig())
			bad := scenarioParams(kickMatch)
			bad.Radius = 0
			_, err := r.Run(context.Background(), []binary.Params{bad})
			Expect(err).To(HaveOccurred())
		})

		It("aborts the run on an integration error", func() {
			r := mc.NewRunner(mc.DefaultConfig(), pot, target, sink, zap.NewNop())
			r.SetEngineFactory(func(p binary.Params, seed int64) (mc.SweepEngine, error) {
				return &fakeEngine{
					params: p,
					script: engineScript{inWindow: true, integErr: errors.New("state diverged")},
				}, nil
			})
			_, err := r.Run(context.Background(), []binary.Params{scenarioParams(kickMatch)})
			Expect(err).To(MatchError(ContainSubstring("state diverged")))
		})

		It("aborts the run when an engine cannot be constructed", func() {
			cfg := mc.DefaultConfig()
			cfg.Integrator = "euler"
			r := mc.NewRunner(cfg, pot, target, sink, zap.NewNop())
			_, err := r.Run(context.Background(), []binary.Params{scenarioParams(kickMatch)})
			Expect(err).To(MatchError(ContainSubstring("unknown integrator")))
			Expect(sink.all()).To(BeEmpty())
		})

		It("surfaces sink failures", func() {
			sink.err = errors.New("disk full")
			r := newRunner(mc.DefaultConfig())
			_, err := r.Run(context.Background(), []binary.Params{scenarioParams(kickMatch)})
			Expect(err).To(MatchError(ContainSubstring("disk full")))
		})
	})
})
