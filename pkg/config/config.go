// Package config holds the tunable policy knobs for a session's
// dispatcher and sampler, with sane defaults and an optional YAML
// override file merged on top of them (Default/Load follow the
// same merge-on-load idiom as a tuning-file loader, trading a JSON
// tuning file for a YAML one).
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// SessionConfig controls the exact/Monte-Carlo dispatch policy: when
// to trust exhaustive enumeration versus fall back to sampling, and
// how much sampling to do once it does.
type SessionConfig struct {
	// WorkloadBound is W_exact: the node budget past which exact
	// enumeration is abandoned in favor of sampling.
	WorkloadBound int `yaml:"workload_bound"`

	// PilotSamples is k: the size of the pilot batch used to estimate
	// the rejection sampler's acceptance rate.
	PilotSamples int `yaml:"pilot_samples"`

	// AcceptanceFloor is alpha_floor: below this estimated acceptance
	// rate, the dispatcher abandons rejection sampling.
	AcceptanceFloor float64 `yaml:"acceptance_floor"`

	// TargetSamples is N: the number of samples collected once a
	// sampling strategy is chosen.
	TargetSamples int `yaml:"target_samples"`

	// BurnIn is B: MCMC swap-chain burn-in steps before sampling.
	BurnIn int `yaml:"burn_in"`

	// Workers bounds sampler parallelism.
	Workers int `yaml:"workers"`

	// Seed seeds every RNG derived for a session. Zero is used as-is;
	// it is not replaced by a time-derived seed.
	Seed int64 `yaml:"seed"`

	// InvariantTolerance is epsilon for the post-hoc marginal row-sum
	// and column-sum checks run after every Marginals call.
	InvariantTolerance float64 `yaml:"invariant_tolerance"`
}

// Default returns the baseline dispatch policy: a million-node exact
// budget, a 1000-sample pilot batch, a 1% acceptance floor, 10,000
// target samples, and a 1000-step MCMC burn-in.
func Default() SessionConfig {
	return SessionConfig{
		WorkloadBound:      1_000_000,
		PilotSamples:       1000,
		AcceptanceFloor:    0.01,
		TargetSamples:      10_000,
		BurnIn:             1000,
		Workers:            4,
		Seed:               0,
		InvariantTolerance: 1e-6,
	}
}

// Load reads a YAML override file on top of Default, so a file that
// sets only a handful of fields leaves the rest at their defaults.
func Load(path string) (SessionConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Save writes cfg to path as a readable YAML file.
func Save(cfg SessionConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
