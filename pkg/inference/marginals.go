// Package inference computes P(player p holds tile t | observations)
// for every unknown player and tile, either exactly by enumeration or
// approximately by Monte Carlo sampling: a full marginal-probability
// estimator built around the same kind of single biased hand sample a
// determinizer draws, run many times over and normalized into
// per-tile, per-player probabilities.
package inference

import (
	"fmt"

	"github.com/azen-engine/pkg/domino"
	"github.com/azen-engine/pkg/tiles"
)

// Marginals holds P(p holds t) for every opponent p and every tile t
// still in U, plus diagnostics about how it was computed.
type Marginals struct {
	Method      string // "exact" or "monte_carlo"
	P           map[domino.Player]map[tiles.Tile]float64
	StdErr      map[domino.Player]map[tiles.Tile]float64 // nil for exact
	Samples     int                                      // 0 for exact
	Acceptance  float64                                  // rejection-sampler acceptance rate, MC only
}

func newMarginals(method string) *Marginals {
	m := &Marginals{
		Method: method,
		P:      make(map[domino.Player]map[tiles.Tile]float64, len(domino.Opponents)),
	}
	for _, p := range domino.Opponents {
		m.P[p] = make(map[tiles.Tile]float64)
	}
	return m
}

// At returns P(p holds t), or 0 if t is not a candidate for p.
func (m *Marginals) At(p domino.Player, t tiles.Tile) float64 {
	if row, ok := m.P[p]; ok {
		return row[t]
	}
	return 0
}

// CheckInvariant verifies the per-tile row-sum invariant: for every
// unknown tile t, sum_p P(p holds t) = 1, within eps.
func (m *Marginals) CheckInvariant(unknown tiles.Set, eps float64) error {
	for _, t := range unknown.Slice() {
		sum := 0.0
		for _, p := range domino.Opponents {
			sum += m.At(p, t)
		}
		if diff := sum - 1.0; diff > eps || diff < -eps {
			return fmt.Errorf("marginal invariant violated for tile %s: sum=%f", t, sum)
		}
	}
	return nil
}

// CheckColumnInvariant verifies the per-player column-sum invariant:
// for every opponent p, sum_{t in U} P(p holds t) = r(p), within eps.
func (m *Marginals) CheckColumnInvariant(unknown tiles.Set, remaining map[domino.Player]int, eps float64) error {
	for _, p := range domino.Opponents {
		sum := 0.0
		for _, t := range unknown.Slice() {
			sum += m.At(p, t)
		}
		want := float64(remaining[p])
		if diff := sum - want; diff > eps || diff < -eps {
			return fmt.Errorf("marginal column invariant violated for %s: sum=%f, want=%f", p, sum, want)
		}
	}
	return nil
}
