package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nsbh/kickmc/internal/binary"
	"github.com/nsbh/kickmc/internal/config"
	"github.com/nsbh/kickmc/internal/galaxy"
	"github.com/nsbh/kickmc/internal/mc"
	"github.com/nsbh/kickmc/internal/results"
	"github.com/nsbh/kickmc/internal/sample"
	"github.com/nsbh/kickmc/internal/tui"
)

var (
	configFile string
	verbose    bool

	trials    int
	seed      int64
	outFile   string
	grb       string
	catalog   string
	workers   int
	saveTraj  bool
	live      bool
	posterior string

	kickDist   string
	nsMassDist string
	radiusDist string
	integrator string

	radiusPoints int
	kickPoints   int
	kickMax      float64

	plotBins int
	plotFlag int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kickmc",
		Short: "Monte Carlo supernova-kick offset estimator for compact binaries",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run stochastic kick trials against a host offset",
		RunE:  runTrials,
	}
	runCmd.Flags().IntVar(&trials, "trials", config.DefaultTrials, "number of trials")
	runCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	runCmd.Flags().StringVar(&outFile, "out", "", "output file base name")
	runCmd.Flags().StringVar(&grb, "grb", "", "GRB identifier for the host lookup")
	runCmd.Flags().StringVar(&catalog, "catalog", "", "extra host catalog (yaml)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "parallel trial workers")
	runCmd.Flags().BoolVar(&saveTraj, "save-traj", false, "persist trajectories of matched trials")
	runCmd.Flags().BoolVar(&live, "live", false, "live progress monitor")
	runCmd.Flags().StringVar(&posterior, "posterior", "", "NS-mass posterior samples (json)")
	runCmd.Flags().StringVar(&kickDist, "kick-dist", "", "kick distribution (fixed|uniform|maxwellian|twopop)")
	runCmd.Flags().StringVar(&nsMassDist, "ns-mass-dist", "", "NS mass distribution (fixed|uniform|gaussian|posterior)")
	runCmd.Flags().StringVar(&radiusDist, "radius-dist", "", "birth radius distribution (fixed|uniform|exponential)")
	runCmd.Flags().StringVar(&integrator, "integrator", "", "trajectory integrator (rk4|leapfrog)")

	sweepCmd := &cobra.Command{
		Use:   "sweep [radial|tangential]",
		Short: "deterministic (radius x kick) diagnostic grid",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	sweepCmd.Flags().StringVar(&outFile, "out", "", "output file base name")
	sweepCmd.Flags().StringVar(&grb, "grb", "", "GRB identifier for the host lookup")
	sweepCmd.Flags().StringVar(&catalog, "catalog", "", "extra host catalog (yaml)")
	sweepCmd.Flags().IntVar(&radiusPoints, "radius-points", 0, "radius grid size")
	sweepCmd.Flags().IntVar(&kickPoints, "kick-points", 0, "kick grid size")
	sweepCmd.Flags().Float64Var(&kickMax, "kick-max", 0, "kick grid upper bound (km/s)")
	sweepCmd.Flags().StringVar(&integrator, "integrator", "", "trajectory integrator (rk4|leapfrog)")

	hostsCmd := &cobra.Command{
		Use:   "hosts",
		Short: "list the built-in short-GRB host catalog",
		RunE:  listHosts,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [results file]",
		Short: "terminal histogram of projected merger offsets",
		Args:  cobra.ExactArgs(1),
		RunE:  plotResults,
	}
	plotCmd.Flags().IntVar(&plotBins, "bins", 30, "histogram bins")
	plotCmd.Flags().IntVar(&plotFlag, "flag", -1, "restrict to one outcome flag")

	rootCmd.AddCommand(runCmd, sweepCmd, hostsCmd, plotCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zap.NewDevelopmentEncoderConfig().EncodeTime
	return cfg.Build()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Command-line flags override the file.
	if cmd.Flags().Changed("trials") {
		cfg.Trials = trials
	}
	if cmd.Flags().Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}
	if outFile != "" {
		cfg.Out = outFile
	}
	if grb != "" {
		cfg.Galaxy.GRB = grb
	}
	if catalog != "" {
		cfg.Galaxy.CatalogPath = catalog
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("save-traj") {
		cfg.SaveTrajectories = saveTraj
	}
	if posterior != "" {
		cfg.Sampling.PosteriorPath = posterior
	}
	if kickDist != "" {
		cfg.Sampling.Kick = kickDist
	}
	if nsMassDist != "" {
		cfg.Sampling.NSMass = nsMassDist
	}
	if radiusDist != "" {
		cfg.Sampling.Radius = radiusDist
	}
	if integrator != "" {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("radius-points") {
		cfg.Sweep.RadiusPoints = radiusPoints
	}
	if cmd.Flags().Changed("kick-points") {
		cfg.Sweep.KickPoints = kickPoints
	}
	if cmd.Flags().Changed("kick-max") {
		cfg.Sweep.KickMax = kickMax
	}
	return cfg, nil
}

// drawParams samples every parameter family up front, one sequence per
// family, and zips them into per-trial tuples.
func drawParams(cfg *config.Config, host galaxy.Host) ([]binary.Params, error) {
	s := sample.New(cfg.Seed)
	if cfg.Sampling.PosteriorPath != "" {
		samples, err := sample.LoadPosterior(cfg.Sampling.PosteriorPath)
		if err != nil {
			return nil, err
		}
		s.SetPosterior(samples)
	}

	n := cfg.Trials
	m1, err := s.CompanionMasses(cfg.Sampling.CompanionMass, n)
	if err != nil {
		return nil, err
	}
	m2, err := s.NSMasses(cfg.Sampling.NSMass, n)
	if err != nil {
		return nil, err
	}
	mhe, err := s.HeliumMasses(cfg.Sampling.HeliumMass, n)
	if err != nil {
		return nil, err
	}
	a, err := s.SemiMajorAxes(cfg.Sampling.SemiMajorAxis, n)
	if err != nil {
		return nil, err
	}
	e, err := s.Eccentricities(cfg.Sampling.Eccentricity, n)
	if err != nil {
		return nil, err
	}
	r, err := s.Radii(cfg.Sampling.Radius, n, host.Galaxy.Reff)
	if err != nil {
		return nil, err
	}
	vk, err := s.KickSpeeds(cfg.Sampling.Kick, n)
	if err != nil {
		return nil, err
	}

	params := make([]binary.Params, n)
	for i := range params {
		params[i] = binary.Params{
			MCompanion: m1[i],
			MNS:        m2[i],
			MHe:        math.Max(mhe[i], m2[i]), // remnant cannot outweigh its progenitor
			SemiMajor:  a[i],
			Ecc:        e[i],
			KickSpeed:  vk[i],
			Radius:     r[i],
		}
	}
	return params, nil
}

func runTrials(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	host, err := cfg.ResolveHost()
	if err != nil {
		return err
	}
	params, err := drawParams(cfg, host)
	if err != nil {
		return err
	}

	sink, err := results.NewWriter(cfg.Out)
	if err != nil {
		return err
	}
	defer sink.Close()

	pot := galaxy.NewPotential(host.Galaxy)
	runner := mc.NewRunner(mc.Config{
		Seed:             cfg.Seed,
		Workers:          cfg.Workers,
		MergerMin:        cfg.MergerMin,
		MergerMax:        cfg.MergerMax,
		EnergyTol:        cfg.EnergyTol,
		StepDt:           cfg.StepDt,
		Integrator:       cfg.Integrator,
		SaveTrajectories: cfg.SaveTrajectories,
	}, pot, host.Target, sink, log)

	if cfg.SaveTrajectories {
		store, err := results.NewTrajectoryStore(trajDir(cfg.Out))
		if err != nil {
			return err
		}
		runner.SetTrajectoryStore(store)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !live {
		summary, err := runner.Run(ctx, params)
		if err != nil {
			return err
		}
		printSummary(summary, host)
		return nil
	}

	prog := tea.NewProgram(tui.New(host.Galaxy.GRB))
	runner.SetProgress(func(ev mc.Event) { prog.Send(tui.ProgressMsg(ev)) })

	var summary mc.Summary
	var runErr error
	go func() {
		summary, runErr = runner.Run(ctx, params)
		prog.Send(tui.DoneMsg{})
	}()
	if _, err := prog.Run(); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	printSummary(summary, host)
	return nil
}

func printSummary(s mc.Summary, host galaxy.Host) {
	fmt.Printf("%s: %d trials, %d matched (%.4f), max energy residual %.3e\n",
		host.Galaxy.GRB, s.Trials, s.Counts[mc.OutcomeOffsetMatch],
		s.SuccessFraction(), s.MaxEnergyResidual)
}

func trajDir(out string) string {
	base := strings.TrimSuffix(out, filepath.Ext(out))
	return base + "_traj"
}

func runSweep(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	mode := mc.SweepMode(args[0])
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	host, err := cfg.ResolveHost()
	if err != nil {
		return err
	}

	sink, err := results.NewWriter(cfg.Out)
	if err != nil {
		return err
	}
	defer sink.Close()

	sweep := mc.NewSweep(mc.SweepConfig{
		Mode:         mode,
		RadiusPoints: cfg.Sweep.RadiusPoints,
		KickPoints:   cfg.Sweep.KickPoints,
		KickMax:      cfg.Sweep.KickMax,
		Horizon:      cfg.Sweep.Horizon,
		Seed:         cfg.Seed,
		StepDt:       cfg.Sweep.StepDt,
		Integrator:   cfg.Integrator,
	}, host.Galaxy, sink, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rows, err := sweep.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s sweep: %d offset crossings -> %s\n", mode, rows, cfg.Out)
	return nil
}

func listHosts(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GRB\tGALAXY\tOFFSET [kpc]\tUNCER\tR_EFF [kpc]\tZ\tTELESCOPE")
	for _, name := range galaxy.HostNames() {
		h, err := galaxy.LookupHost(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%.1f\t%.3f\t%s\n",
			h.Galaxy.GRB, h.Galaxy.Name, h.Target.Offset, h.Target.Uncertainty,
			h.Galaxy.Reff, h.Galaxy.Redshift, h.Galaxy.Telescope)
	}
	return w.Flush()
}

func plotResults(cmd *cobra.Command, args []string) error {
	cols, err := results.ReadRows(args[0])
	if err != nil {
		return err
	}
	rproj, ok := cols["r_merge_proj"]
	if !ok {
		return fmt.Errorf("%s: no r_merge_proj column", args[0])
	}
	flags, ok := cols["flag"]
	if !ok {
		return fmt.Errorf("%s: no flag column", args[0])
	}

	var values []float64
	maxR := 0.0
	for i, v := range rproj {
		if plotFlag >= 0 && int(flags[i]) != plotFlag {
			continue
		}
		// Gated trials never reached a merger site.
		if int(flags[i]) == int(mc.OutcomeNoMerger) || int(flags[i]) == int(mc.OutcomeDisrupted) {
			continue
		}
		values = append(values, v)
		if v > maxR {
			maxR = v
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("%s: no merged trials to plot", args[0])
	}
	if maxR == 0 {
		maxR = 1
	}

	hist := make([]float64, plotBins)
	for _, v := range values {
		bin := int(v / maxR * float64(plotBins-1))
		hist[bin]++
	}

	fmt.Println(asciigraph.Plot(hist,
		asciigraph.Height(12),
		asciigraph.Width(2*plotBins),
		asciigraph.Caption(fmt.Sprintf("projected merger offset, 0 to %.1f kpc (%d trials)", maxR, len(values)))))
	return nil
}
