// Package domino implements the mutable game-state ledger for a 2-vs-2
// double-six domino game: South's hand, the shrinking unknown-tile set,
// per-player remaining counts, the open ends, and the observation
// history. It follows a validate/apply split (one mutation point)
// generalized from card-game hand-shedding rules to domino
// end-matching. Apply does not check whose turn it is: any player may
// appear in any order.
package domino

import (
	"errors"
	"fmt"

	"github.com/azen-engine/pkg/tiles"
)

// ErrInvalidObservation wraps every precondition failure apply() can
// report; callers can test with errors.Is.
var ErrInvalidObservation = errors.New("invalid observation")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidObservation, fmt.Sprintf(format, args...))
}

// GameState is the mutable ledger of one game: South's hand, the
// shrinking unknown-tile set, per-player remaining counts, the open
// ends, and the observation history. It is mutated only through Apply,
// the single source of truth for state transitions.
type GameState struct {
	handS   tiles.Set // South's hand; South's own plays remove tiles from it
	unknown tiles.Set // U: tiles not in hand_S and not yet played
	remain  [NumPlayers]int // r(p) for p != South, r_S at index South
	ends    Ends
	history []Observation
	played  tiles.Set // all tiles placed on the chain, by anyone
}

// NewGameState creates a fresh game state from South's 7-tile hand.
func NewGameState(handS tiles.Set) (*GameState, error) {
	if handS.Len() != 7 {
		return nil, invalid("hand_S must contain exactly 7 tiles, got %d", handS.Len())
	}
	if !handS.Subset(tiles.All()) {
		return nil, invalid("hand_S contains a tile outside the double-six set")
	}
	gs := &GameState{
		handS:   handS,
		unknown: tiles.All().Diff(handS),
		ends:    EmptyEnds,
	}
	for p := Player(0); p < NumPlayers; p++ {
		gs.remain[p] = 7
	}
	return gs, nil
}

// HandS returns South's current hand.
func (gs *GameState) HandS() tiles.Set { return gs.handS }

// Unknown returns U, the current unknown-tile set.
func (gs *GameState) Unknown() tiles.Set { return gs.unknown }

// Remaining returns the number of tiles player p still holds.
func (gs *GameState) Remaining(p Player) int { return gs.remain[p] }

// CurrentEnds returns the current open ends, or the empty-chain sentinel.
func (gs *GameState) CurrentEnds() Ends { return gs.ends }

// History returns the ordered observation log.
func (gs *GameState) History() []Observation {
	out := make([]Observation, len(gs.history))
	copy(out, gs.history)
	return out
}

// Played returns every tile placed on the chain so far.
func (gs *GameState) Played() tiles.Set { return gs.played }

// IsLocked reports whether the last four observations were all passes —
// a locked board. A pure query over the existing ledger; it does not
// trigger any action on its own.
func (gs *GameState) IsLocked() bool {
	n := len(gs.history)
	if n < 4 {
		return false
	}
	for _, o := range gs.history[n-4:] {
		if o.Kind != KindPass {
			return false
		}
	}
	return true
}

// IsOver reports whether any player has emptied their hand, or the
// board is locked (IsLocked).
func (gs *GameState) IsOver() bool {
	for p := Player(0); p < NumPlayers; p++ {
		if gs.remain[p] == 0 {
			return true
		}
	}
	return gs.IsLocked()
}

// Clone returns a deep-enough copy of gs for snapshot/query use. Every
// field is a value type or an immutable slice-by-copy, so this is cheap.
func (gs *GameState) Clone() *GameState {
	n := *gs
	n.history = make([]Observation, len(gs.history))
	copy(n.history, gs.history)
	return &n
}

// Apply validates and applies a single observation, mutating gs in
// place. On error, gs is left exactly as it was before the call.
func (gs *GameState) Apply(o Observation) error {
	switch o.Kind {
	case KindPlay:
		return gs.applyPlay(o)
	case KindPass:
		return gs.applyPass(o)
	default:
		return invalid("unknown observation kind")
	}
}

func (gs *GameState) applyPlay(o Observation) error {
	t := o.Tile

	if o.Player == South {
		if !gs.handS.Has(t) {
			return invalid("south does not hold tile %s", t)
		}
	} else {
		if !gs.unknown.Has(t) {
			return invalid("tile %s is not in the unknown set (already played or in hand_S)", t)
		}
	}
	if gs.remain[o.Player] <= 0 {
		return invalid("player %s has no tiles remaining", o.Player)
	}

	newEnds, err := nextEnds(gs.ends, t, o.Side)
	if err != nil {
		return err
	}

	gs.history = append(gs.history, o)
	gs.ends = newEnds
	gs.played = gs.played.Add(t)
	gs.remain[o.Player]--

	if o.Player == South {
		gs.handS = gs.handS.Remove(t)
	} else {
		gs.unknown = gs.unknown.Remove(t)
	}
	return nil
}

func (gs *GameState) applyPass(o Observation) error {
	if o.Player == South {
		return invalid("south never passes (its hand is always known)")
	}
	if gs.ends.Empty {
		return invalid("cannot pass before any tile has been played")
	}
	if !o.Ends.sameUnordered(gs.ends) {
		return invalid("pass claims ends %s but current ends are %s", o.Ends, gs.ends)
	}
	gs.history = append(gs.history, o)
	return nil
}

// nextEnds applies the end-match rule: the played tile must share a
// value with the targeted end; that end is replaced by the tile's
// other value (unchanged for a matching double). The first play
// establishes both ends from the tile's two values.
func nextEnds(cur Ends, t tiles.Tile, side Side) (Ends, error) {
	if cur.Empty {
		if side != SideStart {
			return Ends{}, invalid("first play must declare side=start, got %q", side)
		}
		return Ends{Left: t.A, Right: t.B}, nil
	}

	if side == SideStart {
		return Ends{}, invalid("side=start is only valid for the first play")
	}

	var target int
	switch side {
	case SideLeft:
		target = cur.Left
	case SideRight:
		target = cur.Right
	default:
		return Ends{}, invalid("unknown side %q", side)
	}
	if !t.Contains(target) {
		return Ends{}, invalid("tile %s does not match the %s end (%d)", t, side, target)
	}

	newVal := t.Other(target)
	next := cur
	if side == SideLeft {
		next.Left = newVal
	} else {
		next.Right = newVal
	}
	return next, nil
}
