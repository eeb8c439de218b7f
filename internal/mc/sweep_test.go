package mc_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/nsbh/kickmc/internal/binary"
	"github.com/nsbh/kickmc/internal/galaxy"
	"github.com/nsbh/kickmc/internal/mc"
)

var _ = Describe("Sweep", func() {
	var (
		sink *memSink
		gal  galaxy.Parameters
	)

	BeforeEach(func() {
		sink = &memSink{}
		gal = galaxy.Parameters{
			Name: "sweep host", Offset: 2.0, Mspiral: 9e8, Mbulge: 1e8,
			Mhalo: 3e10, Reff: 2.5, Distance: 500,
		}
	})

	Context("with scripted engines", func() {
		var built []*fakeEngine

		factory := func(cross bool) mc.EngineFactory {
			return func(p binary.Params, seed int64) (mc.SweepEngine, error) {
				eng := &fakeEngine{script: engineScript{cross: cross}, params: p}
				built = append(built, eng)
				return eng, nil
			}
		}

		BeforeEach(func() { built = nil })

		It("visits the full radius-kick grid", func() {
			cfg := mc.DefaultSweepConfig(mc.SweepRadial)
			cfg.RadiusPoints = 4
			cfg.KickPoints = 5

			s := mc.NewSweep(cfg, gal, sink, zap.NewNop())
			s.SetEngineFactory(factory(true))

			emitted, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(built).To(HaveLen(20))
			Expect(emitted).To(Equal(20))
			for _, eng := range built {
				Expect(eng.radialCalls).To(Equal(1))
				Expect(eng.posCalls).To(BeZero(), "radial mode used the stochastic placement")
				Expect(eng.evolveCalls).To(Equal(1))
				Expect(eng.params.Radius).To(BeNumerically("<=", gal.Offset))
			}
			for _, row := range sink.all() {
				Expect(row.Flag).To(Equal(int(mc.OutcomeOffsetMatch)))
			}
		})

		It("emits no row for grid points that never cross", func() {
			cfg := mc.DefaultSweepConfig(mc.SweepTangential)
			cfg.RadiusPoints = 3
			cfg.KickPoints = 3

			s := mc.NewSweep(cfg, gal, sink, zap.NewNop())
			s.SetEngineFactory(factory(false))

			emitted, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(built).To(HaveLen(9))
			Expect(emitted).To(BeZero())
			Expect(sink.all()).To(BeEmpty())
			for _, eng := range built {
				Expect(eng.posCalls).To(Equal(1))
				Expect(eng.velCalls).To(Equal(1))
				Expect(eng.radialCalls).To(BeZero())
			}
		})

		It("rejects an unknown mode", func() {
			cfg := mc.DefaultSweepConfig("sideways")
			s := mc.NewSweep(cfg, gal, sink, zap.NewNop())
			s.SetEngineFactory(factory(true))

			_, err := s.Run(context.Background())
			Expect(err).To(MatchError(ContainSubstring("unknown sweep mode")))
		})

		It("aborts when an engine cannot be constructed", func() {
			cfg := mc.DefaultSweepConfig(mc.SweepRadial)
			cfg.Integrator = "euler"
			s := mc.NewSweep(cfg, gal, sink, zap.NewNop())

			_, err := s.Run(context.Background())
			Expect(err).To(MatchError(ContainSubstring("unknown integrator")))
			Expect(sink.all()).To(BeEmpty())
		})

		It("stops on context cancellation", func() {
			cfg := mc.DefaultSweepConfig(mc.SweepRadial)
			s := mc.NewSweep(cfg, gal, sink, zap.NewNop())
			s.SetEngineFactory(factory(true))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := s.Run(ctx)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Context("with the production engine", func() {
		It("finds offset crossings for fast radial launches", func() {
			cfg := mc.DefaultSweepConfig(mc.SweepRadial)
			cfg.RadiusPoints = 2
			cfg.KickPoints = 3
			cfg.KickMax = 800
			cfg.StepDt = 1e-5

			s := mc.NewSweep(cfg, gal, sink, zap.NewNop())
			emitted, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			// The fastest launches must cross a 2 kpc offset in this
			// low-mass host; the zero-kick ones from the center need not.
			Expect(emitted).To(BeNumerically(">", 0))
			Expect(emitted).To(BeNumerically("<=", 6))

			for _, row := range sink.all() {
				Expect(row.Flag).To(Equal(int(mc.OutcomeOffsetMatch)))
				Expect(row.MergerTime).To(BeNumerically(">", 0))
				Expect(row.MergerTime).To(BeNumerically("<=", cfg.Horizon))
				Expect(row.RMerge).To(BeNumerically(">=", gal.Offset))
			}
		})
	})
})
