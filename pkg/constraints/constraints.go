// Package constraints implements the per-player candidate-set store and
// the deterministic fixed-point propagator that shrinks it after every
// observation: per-opponent candidate tracking driven by pass
// inference, generalized from rank-exclusion bookkeeping to
// tile-bitmask candidate sets, with an added |S|=2 Hall pruning rule
// beyond simple saturated-hand cascades.
package constraints

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/azen-engine/pkg/domino"
	"github.com/azen-engine/pkg/tiles"
)

// ErrInconsistent is returned by Propagate when no configuration can
// satisfy the accumulated constraints. It signals a corrupt observation
// log or a caller bug; a well-formed session never triggers it.
var ErrInconsistent = errors.New("constraint store is inconsistent")

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...))
}

// maxPropagationPasses bounds the fixed-point loop. Each pass either
// shrinks some candidate set or leaves everything unchanged, so the
// loop terminates well before this many iterations; 28*3 is a safe
// ceiling with margin.
const maxPropagationPasses = 100

// Store holds C(p) for every unknown player, plus the bookkeeping
// (U and r) needed to check I1-I5 at a propagation fixed point.
type Store struct {
	candidates map[domino.Player]tiles.Set
	remaining  map[domino.Player]int
	unknown    tiles.Set
}

// New creates the initial constraint store: every opponent's candidate
// set is the full unknown-tile set, with 7 tiles remaining each.
func New(unknown tiles.Set) *Store {
	s := &Store{
		candidates: make(map[domino.Player]tiles.Set, len(domino.Opponents)),
		remaining:  make(map[domino.Player]int, len(domino.Opponents)),
		unknown:    unknown,
	}
	for _, p := range domino.Opponents {
		s.candidates[p] = unknown
		s.remaining[p] = 7
	}
	return s
}

// Candidates returns C(p), the tiles p might still hold.
func (s *Store) Candidates(p domino.Player) tiles.Set { return s.candidates[p] }

// Remaining returns r(p), the number of tiles p currently holds.
func (s *Store) Remaining(p domino.Player) int { return s.remaining[p] }

// Unknown returns U, the current unknown-tile set.
func (s *Store) Unknown() tiles.Set { return s.unknown }

// Clone returns an independent copy of s.
func (s *Store) Clone() *Store {
	n := &Store{
		candidates: make(map[domino.Player]tiles.Set, len(s.candidates)),
		remaining:  make(map[domino.Player]int, len(s.remaining)),
		unknown:    s.unknown,
	}
	for p, c := range s.candidates {
		n.candidates[p] = c
	}
	for p, r := range s.remaining {
		n.remaining[p] = r
	}
	return n
}

// RemovePlayed applies R1: whenever any tile t is played (by anyone),
// t leaves every candidate set and leaves U. If player played it and
// player is one of the tracked opponents, their remaining count drops
// by one. Does not itself run the fixed-point loop; call Propagate
// after any batch of mutations.
func (s *Store) RemovePlayed(player domino.Player, t tiles.Tile) {
	s.unknown = s.unknown.Remove(t)
	for p := range s.candidates {
		s.candidates[p] = s.candidates[p].Remove(t)
	}
	if _, tracked := s.remaining[player]; tracked {
		s.remaining[player]--
	}
}

// RestrictPass applies R2: a Pass(p, (a,b)) means p holds no tile
// containing a or b, so C(p) loses the block set B(a,b).
func (s *Store) RestrictPass(p domino.Player, a, b int) {
	s.candidates[p] = s.candidates[p].Diff(tiles.Block(a, b))
}

// Propagate runs the derived rules (saturated-hand cascade, Hall
// pruning for |S|=2) to a fixed point, then checks every structural
// invariant. It returns ErrInconsistent if no configuration can satisfy
// the accumulated constraints. Running Propagate twice in a row is a
// no-op the second time.
func (s *Store) Propagate() error {
	for pass := 0; pass < maxPropagationPasses; pass++ {
		changed := s.applySaturatedHand() || s.applyHallPairs()
		if !changed {
			log.Debug().Int("pass", pass).Msg("constraints: propagation reached fixed point")
			break
		}
	}
	return s.checkInvariants()
}

// applySaturatedHand: if |C(p)| = r(p), every tile in C(p) is
// determined for p and must be removed from every other opponent's
// candidate set.
func (s *Store) applySaturatedHand() bool {
	changed := false
	for _, p := range domino.Opponents {
		cp := s.candidates[p]
		if cp.Len() != s.remaining[p] {
			continue
		}
		for _, q := range domino.Opponents {
			if q == p {
				continue
			}
			before := s.candidates[q]
			after := before.Diff(cp)
			if after != before {
				s.candidates[q] = after
				changed = true
			}
		}
	}
	return changed
}

// applyHallPairs handles the only nontrivial case when |P|=3: a
// 2-player subset S={p,q} whose combined candidates exactly cover
// their combined remaining counts owns those tiles collectively, and
// the third player's candidates must exclude them.
func (s *Store) applyHallPairs() bool {
	changed := false
	for i := 0; i < len(domino.Opponents); i++ {
		for j := i + 1; j < len(domino.Opponents); j++ {
			p, q := domino.Opponents[i], domino.Opponents[j]
			union := s.candidates[p].Union(s.candidates[q])
			need := s.remaining[p] + s.remaining[q]
			if union.Len() != need {
				continue
			}
			third := thirdOpponent(p, q)
			before := s.candidates[third]
			after := before.Diff(union)
			if after != before {
				s.candidates[third] = after
				changed = true
			}
		}
	}
	return changed
}

func thirdOpponent(p, q domino.Player) domino.Player {
	for _, r := range domino.Opponents {
		if r != p && r != q {
			return r
		}
	}
	panic("constraints: no third opponent found")
}

// checkInvariants verifies containment, capacity, coverage, and the
// Hall condition for every subset size, returning ErrInconsistent on
// the first violation found.
func (s *Store) checkInvariants() error {
	sumRemaining := 0
	for _, p := range domino.Opponents {
		sumRemaining += s.remaining[p]

		// Containment.
		if !s.candidates[p].Subset(s.unknown) {
			return inconsistent("C(%s) is not a subset of U", p)
		}
		// Capacity.
		if s.candidates[p].Len() < s.remaining[p] {
			log.Warn().Str("player", p.String()).Msg("constraints: capacity violation")
			return inconsistent("|C(%s)|=%d < r(%s)=%d", p, s.candidates[p].Len(), p, s.remaining[p])
		}
	}

	// Total capacity.
	if sumRemaining != s.unknown.Len() {
		return inconsistent("sum of remaining counts %d != |U| %d", sumRemaining, s.unknown.Len())
	}

	// Coverage.
	uncovered := s.unknown
	for _, p := range domino.Opponents {
		uncovered = uncovered.Diff(s.candidates[p])
	}
	if !uncovered.Empty() {
		log.Warn().Int("uncovered", uncovered.Len()).Msg("constraints: coverage violation")
		return inconsistent("%d unknown tile(s) have no candidate holder", uncovered.Len())
	}

	// Hall condition for |S|=2 (|S|=1 is capacity; |S|=3 is total capacity).
	for i := 0; i < len(domino.Opponents); i++ {
		for j := i + 1; j < len(domino.Opponents); j++ {
			p, q := domino.Opponents[i], domino.Opponents[j]
			union := s.candidates[p].Union(s.candidates[q])
			need := s.remaining[p] + s.remaining[q]
			if union.Len() < need {
				return inconsistent("Hall condition fails for {%s,%s}: |union|=%d < %d", p, q, union.Len(), need)
			}
		}
	}
	return nil
}
