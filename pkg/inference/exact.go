package inference

import (
	"errors"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/azen-engine/pkg/constraints"
	"github.com/azen-engine/pkg/domino"
	"github.com/azen-engine/pkg/tiles"
)

// ErrWorkloadExceeded is returned by Enumerate when the search tree
// grows past the caller's node budget. The dispatcher uses this as the
// signal to fall back to Monte Carlo sampling.
var ErrWorkloadExceeded = errors.New("exact enumeration workload exceeded")

// Enumerate computes exact marginals by recursive backtracking over the
// unknown tiles, assigning each to a candidate-compatible opponent and
// counting complete, consistent assignments. maxNodes bounds the
// search; ErrWorkloadExceeded is returned, not panicked, so the caller
// can retry with Monte Carlo sampling.
func Enumerate(store *constraints.Store, maxNodes int) (*Marginals, error) {
	order := orderBySmallestCandidateSet(store)

	remain := map[domino.Player]int{}
	for _, p := range domino.Opponents {
		remain[p] = store.Remaining(p)
	}

	assignment := make([]domino.Player, len(order))
	counts := map[domino.Player]map[tiles.Tile]int{}
	for _, p := range domino.Opponents {
		counts[p] = make(map[tiles.Tile]int)
	}

	nodes := 0
	total := 0

	var recurse func(idx int) error
	recurse = func(idx int) error {
		nodes++
		if nodes > maxNodes {
			return ErrWorkloadExceeded
		}
		if idx == len(order) {
			total++
			for i, t := range order {
				counts[assignment[i]][t]++
			}
			return nil
		}
		t := order[idx]
		for _, p := range domino.Opponents {
			if !store.Candidates(p).Has(t) {
				continue
			}
			if remain[p] <= 0 {
				continue
			}
			remain[p]--
			assignment[idx] = p
			if err := recurse(idx + 1); err != nil {
				remain[p]++
				return err
			}
			remain[p]++
		}
		return nil
	}

	if err := recurse(0); err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, constraints.ErrInconsistent
	}

	log.Debug().Int("nodes", nodes).Int("total_assignments", total).Msg("inference: exact enumeration complete")

	m := newMarginals("exact")
	for _, p := range domino.Opponents {
		for _, t := range order {
			m.P[p][t] = float64(counts[p][t]) / float64(total)
		}
	}
	return m, nil
}

// orderBySmallestCandidateSet applies the most-constrained-variable
// heuristic: tiles with fewer candidate holders are assigned first,
// pruning dead branches sooner.
func orderBySmallestCandidateSet(store *constraints.Store) []tiles.Tile {
	u := store.Unknown().Slice()
	weight := func(t tiles.Tile) int {
		n := 0
		for _, p := range domino.Opponents {
			if store.Candidates(p).Has(t) {
				n++
			}
		}
		return n
	}
	sort.Slice(u, func(i, j int) bool { return weight(u[i]) < weight(u[j]) })
	return u
}
