package oracle

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/azen-engine/pkg/config"
	"github.com/azen-engine/pkg/constraints"
	"github.com/azen-engine/pkg/inference"
)

// Dispatch tries exact enumeration bounded by cfg.WorkloadBound; if the
// search tree overruns that bound, it falls back to Monte Carlo
// sampling, whose own regime choice (rejection vs.
// constrained-generator-with-importance-weights vs. MCMC swap chain)
// is handled inside inference.Sample.
func Dispatch(ctx context.Context, store *constraints.Store, cfg config.SessionConfig) (*inference.Marginals, error) {
	m, err := inference.Enumerate(store, cfg.WorkloadBound)
	if err == nil {
		return m, nil
	}
	if err != inference.ErrWorkloadExceeded {
		return nil, err
	}

	log.Debug().Int("workload_bound", cfg.WorkloadBound).Msg("oracle: exact enumeration overran budget, sampling instead")

	sampleCfg := inference.SampleConfig{
		N:        cfg.TargetSamples,
		PilotK:   cfg.PilotSamples,
		AlphaMin: cfg.AcceptanceFloor,
		BurnIn:   cfg.BurnIn,
		Workers:  cfg.Workers,
		Seed:     cfg.Seed,
	}
	return inference.Sample(ctx, store, sampleCfg)
}
