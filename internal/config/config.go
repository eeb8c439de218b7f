// Package config holds the YAML run configuration: trial budget, mode
// selection, sampling-method selectors and the observational inputs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nsbh/kickmc/internal/galaxy"
)

const (
	DefaultTrials    = 10000
	DefaultMergerMax = 14.0 // Gyr
	DefaultEnergyTol = 1e-3
	DefaultStepDt    = 5e-4 // Gyr
)

type Config struct {
	Trials           int     `yaml:"trials"`
	Seed             int64   `yaml:"seed"`
	Mode             string  `yaml:"mode"` // none | radial | tangential
	Out              string  `yaml:"out"`
	SaveTrajectories bool    `yaml:"save_trajectories"`
	Workers          int     `yaml:"workers"`
	MergerMin        float64 `yaml:"merger_min"`
	MergerMax        float64 `yaml:"merger_max"`
	EnergyTol        float64 `yaml:"energy_tol"`
	StepDt           float64 `yaml:"step_dt"`
	Integrator       string  `yaml:"integrator"` // rk4 | leapfrog

	Sampling SamplingConfig `yaml:"sampling"`
	Galaxy   GalaxyConfig   `yaml:"galaxy"`
	Sweep    SweepConfig    `yaml:"sweep"`
}

// SamplingConfig names the distribution family used for each parameter.
type SamplingConfig struct {
	CompanionMass string `yaml:"companion_mass"`
	NSMass        string `yaml:"ns_mass"`
	SemiMajorAxis string `yaml:"semi_major_axis"`
	Eccentricity  string `yaml:"eccentricity"`
	Radius        string `yaml:"radius"`
	HeliumMass    string `yaml:"helium_mass"`
	Kick          string `yaml:"kick"`
	PosteriorPath string `yaml:"posterior_path"`
}

// GalaxyConfig selects or constructs the host. A GRB identifier wins over
// the inline fields; inline fields build a default host from the stellar
// mass.
type GalaxyConfig struct {
	GRB         string  `yaml:"grb"`
	CatalogPath string  `yaml:"catalog_path"`
	Name        string  `yaml:"name"`
	Telescope   string  `yaml:"telescope"`
	Offset      float64 `yaml:"offset"`
	OffsetUncer float64 `yaml:"offset_uncer"`
	Reff        float64 `yaml:"r_eff"`
	StellarMass float64 `yaml:"stellar_mass"`
	Redshift    float64 `yaml:"redshift"`
	Distance    float64 `yaml:"distance"`
}

type SweepConfig struct {
	RadiusPoints int     `yaml:"radius_points"`
	KickPoints   int     `yaml:"kick_points"`
	KickMax      float64 `yaml:"kick_max"`
	Horizon      float64 `yaml:"horizon"`
	StepDt       float64 `yaml:"step_dt"`
}

func DefaultConfig() *Config {
	return &Config{
		Trials:     DefaultTrials,
		Mode:       "none",
		Out:        "kickmc_results.tsv",
		Workers:    1,
		MergerMax:  DefaultMergerMax,
		EnergyTol:  DefaultEnergyTol,
		StepDt:     DefaultStepDt,
		Integrator: "rk4",
		Sampling: SamplingConfig{
			CompanionMass: "gaussian",
			NSMass:        "gaussian",
			SemiMajorAxis: "loguniform",
			Eccentricity:  "zero",
			Radius:        "exponential",
			HeliumMass:    "uniform",
			Kick:          "maxwellian",
		},
		Galaxy: GalaxyConfig{GRB: "GRB130603B"},
		Sweep: SweepConfig{
			RadiusPoints: 10,
			KickPoints:   100,
			KickMax:      1000,
			Horizon:      0.1,
			StepDt:       1e-5,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolveHost turns the galaxy section into a concrete host: catalog
// lookup when a GRB id is given, otherwise a default construction from the
// inline observational fields. Invalid inputs fail here, before any trial
// runs.
func (c *Config) ResolveHost() (galaxy.Host, error) {
	if c.Galaxy.GRB != "" {
		if c.Galaxy.CatalogPath != "" {
			catalog, err := galaxy.LoadCatalog(c.Galaxy.CatalogPath)
			if err != nil {
				return galaxy.Host{}, err
			}
			if h, ok := catalog[c.Galaxy.GRB]; ok {
				return h, nil
			}
			return galaxy.Host{}, fmt.Errorf("GRB %q not in catalog %s", c.Galaxy.GRB, c.Galaxy.CatalogPath)
		}
		return galaxy.LookupHost(c.Galaxy.GRB)
	}

	gal := galaxy.FromStellarMass(c.Galaxy.Name, c.Galaxy.StellarMass,
		c.Galaxy.Reff, c.Galaxy.Offset, c.Galaxy.Distance)
	gal.Telescope = c.Galaxy.Telescope
	gal.Redshift = c.Galaxy.Redshift
	if err := gal.Validate(); err != nil {
		return galaxy.Host{}, err
	}
	h := galaxy.Host{
		Galaxy: gal,
		Target: galaxy.OffsetConstraint{Offset: c.Galaxy.Offset, Uncertainty: c.Galaxy.OffsetUncer},
	}
	if err := h.Target.Validate(); err != nil {
		return galaxy.Host{}, err
	}
	return h, nil
}
