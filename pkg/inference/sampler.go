package inference

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/azen-engine/pkg/constraints"
	"github.com/azen-engine/pkg/domino"
	"github.com/azen-engine/pkg/tiles"
)

// SampleConfig controls Sample's behavior; see pkg/config for the
// session-level defaults this is built from.
type SampleConfig struct {
	N        int // target number of samples
	PilotK   int // pilot batch size used to estimate acceptance rate
	AlphaMin float64 // acceptance-rate floor below which rejection sampling is abandoned
	BurnIn   int     // MCMC swap-chain burn-in steps
	Workers  int     // parallel worker count
	Seed     int64
}

// assignment maps every unknown tile to the opponent holding it.
type assignment map[tiles.Tile]domino.Player

// Sample estimates marginals by Monte Carlo: a pilot batch of rejection
// samples estimates the acceptance rate; if it clears AlphaMin,
// rejection sampling continues to N samples; otherwise the constrained
// generator (with importance-weight correction) or, if that too
// starves, the MCMC swap chain takes over.
func Sample(ctx context.Context, store *constraints.Store, cfg SampleConfig) (*Marginals, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	order := store.Unknown().Slice()
	remain := map[domino.Player]int{}
	for _, p := range domino.Opponents {
		remain[p] = store.Remaining(p)
	}

	pilotAccepted := 0
	pilotTrials := cfg.PilotK
	if pilotTrials <= 0 {
		pilotTrials = 1000
	}
	for i := 0; i < pilotTrials; i++ {
		if _, ok := rejectionSample(rng, store, order, remain); ok {
			pilotAccepted++
		}
	}
	alpha := float64(pilotAccepted) / float64(pilotTrials)
	log.Debug().Float64("acceptance_rate", alpha).Msg("inference: pilot sample complete")

	if alpha >= cfg.AlphaMin {
		return sampleRejection(ctx, store, order, remain, cfg, alpha)
	}
	return sampleConstrainedOrMCMC(ctx, store, order, remain, cfg, alpha)
}

// rejectionSample draws a uniform random partition of order into
// groups sized by remain (via Fisher-Yates shuffle, then contiguous
// slicing — a standard way to sample a uniform random set partition
// with fixed group sizes) and reports whether it happens to satisfy
// every opponent's candidate constraints.
func rejectionSample(rng *rand.Rand, store *constraints.Store, order []tiles.Tile, remain map[domino.Player]int) (assignment, bool) {
	shuffled := make([]tiles.Tile, len(order))
	copy(shuffled, order)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	a := make(assignment, len(shuffled))
	idx := 0
	for _, p := range domino.Opponents {
		for i := 0; i < remain[p]; i++ {
			a[shuffled[idx]] = p
			idx++
		}
	}

	for t, p := range a {
		if !store.Candidates(p).Has(t) {
			return nil, false
		}
	}
	return a, true
}

// sampleRejection runs the parallel accept/reject loop until N
// accepted samples have been collected.
func sampleRejection(ctx context.Context, store *constraints.Store, order []tiles.Tile, remain map[domino.Player]int, cfg SampleConfig, alpha float64) (*Marginals, error) {
	counts := map[domino.Player]map[tiles.Tile]int{}
	sq := map[domino.Player]map[tiles.Tile]float64{}
	for _, p := range domino.Opponents {
		counts[p] = make(map[tiles.Tile]int)
		sq[p] = make(map[tiles.Tile]float64)
	}

	var mu sync.Mutex
	accepted := 0
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		seed := cfg.Seed + int64(w) + 1
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				mu.Lock()
				if accepted >= cfg.N {
					mu.Unlock()
					return nil
				}
				mu.Unlock()

				a, ok := rejectionSample(rng, store, order, remain)
				if !ok {
					continue
				}
				mu.Lock()
				if accepted < cfg.N {
					for t, p := range a {
						counts[p][t]++
					}
					accepted++
				}
				done := accepted >= cfg.N
				mu.Unlock()
				if done {
					return nil
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := newMarginals("monte_carlo")
	m.Samples = accepted
	m.Acceptance = alpha
	m.StdErr = sq
	for _, p := range domino.Opponents {
		for _, t := range order {
			phat := float64(counts[p][t]) / float64(accepted)
			m.P[p][t] = phat
			m.StdErr[p][t] = math.Sqrt(phat * (1 - phat) / float64(accepted))
		}
	}
	return m, nil
}

// sampleConstrainedOrMCMC handles the low-acceptance regime: it first
// tries the constrained generator with importance-weight correction;
// if too many proposals starve outright (no valid player for some
// tile), it falls back to the MCMC swap chain, which is guaranteed to
// stay within the valid-assignment space by construction.
func sampleConstrainedOrMCMC(ctx context.Context, store *constraints.Store, order []tiles.Tile, remain map[domino.Player]int, cfg SampleConfig, alpha float64) (*Marginals, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	const starveTrials = 200
	starved := 0
	for i := 0; i < starveTrials; i++ {
		if _, _, ok := constrainedSample(rng, store, order, remain); !ok {
			starved++
		}
	}
	if starved < starveTrials/2 {
		return sampleConstrainedGenerator(ctx, store, order, remain, cfg, alpha)
	}
	log.Debug().Msg("inference: constrained generator starves too often, falling back to MCMC swap chain")
	return sampleMCMC(ctx, store, order, remain, cfg, alpha)
}

// constrainedSample builds one assignment tile-by-tile in random
// order, at each step choosing uniformly among the opponents who can
// still legally take the tile, and accumulates the importance weight
// w = product of (valid choice count at each step), the correction
// needed because this proposal is not the uniform target distribution.
func constrainedSample(rng *rand.Rand, store *constraints.Store, order []tiles.Tile, remain map[domino.Player]int) (assignment, float64, bool) {
	shuffled := make([]tiles.Tile, len(order))
	copy(shuffled, order)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	left := map[domino.Player]int{}
	for p, r := range remain {
		left[p] = r
	}

	a := make(assignment, len(shuffled))
	weight := 1.0
	for _, t := range shuffled {
		var choices []domino.Player
		for _, p := range domino.Opponents {
			if left[p] > 0 && store.Candidates(p).Has(t) {
				choices = append(choices, p)
			}
		}
		if len(choices) == 0 {
			return nil, 0, false
		}
		chosen := choices[rng.Intn(len(choices))]
		a[t] = chosen
		left[chosen]--
		weight *= float64(len(choices))
	}
	return a, weight, true
}

func sampleConstrainedGenerator(ctx context.Context, store *constraints.Store, order []tiles.Tile, remain map[domino.Player]int, cfg SampleConfig, alpha float64) (*Marginals, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	sumW := map[domino.Player]map[tiles.Tile]float64{}
	sumW2 := map[domino.Player]map[tiles.Tile]float64{}
	totalWeight := 0.0
	totalW2 := 0.0
	for _, p := range domino.Opponents {
		sumW[p] = make(map[tiles.Tile]float64)
		sumW2[p] = make(map[tiles.Tile]float64)
	}

	collected := 0
	for collected < cfg.N {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		a, w, ok := constrainedSample(rng, store, order, remain)
		if !ok {
			continue
		}
		for t, p := range a {
			sumW[p][t] += w
			sumW2[p][t] += w * w
		}
		totalWeight += w
		totalW2 += w * w
		collected++
	}

	m := newMarginals("monte_carlo")
	m.Samples = collected
	m.Acceptance = alpha
	m.StdErr = map[domino.Player]map[tiles.Tile]float64{}
	for _, p := range domino.Opponents {
		m.StdErr[p] = make(map[tiles.Tile]float64)
		for _, t := range order {
			phat := sumW[p][t] / totalWeight
			m.P[p][t] = phat
			// Self-normalized importance sampling variance estimate:
			// sum_i w_i^2 (f_i - phat)^2 / (sum_i w_i)^2 with f_i in {0,1}.
			variance := ((1-2*phat)*sumW2[p][t] + phat*phat*totalW2) / (totalWeight * totalWeight)
			if variance < 0 {
				variance = 0
			}
			m.StdErr[p][t] = math.Sqrt(variance)
		}
	}
	return m, nil
}

// sampleMCMC runs a Metropolis swap chain over the space of valid
// assignments: a move swaps the holders of two distinct tiles and is
// accepted unconditionally whenever the result is still valid (the
// target distribution is uniform over valid states, so the acceptance
// ratio is always 1 or 0). Because every visited state is valid by
// construction, the chain needs no importance-weight correction.
func sampleMCMC(ctx context.Context, store *constraints.Store, order []tiles.Tile, remain map[domino.Player]int, cfg SampleConfig, alpha float64) (*Marginals, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	a, ok := findValidSeed(rng, store, order, remain, 100000)
	if !ok {
		return nil, constraints.ErrInconsistent
	}

	burnIn := cfg.BurnIn
	if burnIn <= 0 {
		burnIn = 1000
	}
	for i := 0; i < burnIn; i++ {
		mcmcSwapStep(rng, store, a, order)
	}

	counts := map[domino.Player]map[tiles.Tile]int{}
	for _, p := range domino.Opponents {
		counts[p] = make(map[tiles.Tile]int)
	}

	n := cfg.N
	if n <= 0 {
		n = 10000
	}
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		mcmcSwapStep(rng, store, a, order)
		for t, p := range a {
			counts[p][t]++
		}
	}

	m := newMarginals("monte_carlo")
	m.Samples = n
	m.Acceptance = alpha
	m.StdErr = map[domino.Player]map[tiles.Tile]float64{}
	for _, p := range domino.Opponents {
		m.StdErr[p] = make(map[tiles.Tile]float64)
		for _, t := range order {
			phat := float64(counts[p][t]) / float64(n)
			m.P[p][t] = phat
			m.StdErr[p][t] = math.Sqrt(phat * (1 - phat) / float64(n))
		}
	}
	return m, nil
}

// findValidSeed repeatedly tries the constrained generator (ignoring
// its importance weight) until a valid assignment turns up, giving the
// MCMC chain a starting point known to satisfy every constraint.
func findValidSeed(rng *rand.Rand, store *constraints.Store, order []tiles.Tile, remain map[domino.Player]int, maxTries int) (assignment, bool) {
	for i := 0; i < maxTries; i++ {
		if a, _, ok := constrainedSample(rng, store, order, remain); ok {
			return a, true
		}
	}
	return nil, false
}

// mcmcSwapStep attempts one swap move in place; a or its tiles are
// left unchanged if the move is rejected.
func mcmcSwapStep(rng *rand.Rand, store *constraints.Store, a assignment, order []tiles.Tile) {
	i := rng.Intn(len(order))
	j := rng.Intn(len(order))
	if i == j {
		return
	}
	ti, tj := order[i], order[j]
	pi, pj := a[ti], a[tj]
	if pi == pj {
		return
	}
	if !store.Candidates(pj).Has(ti) || !store.Candidates(pi).Has(tj) {
		return
	}
	a[ti], a[tj] = pj, pi
}
