package domino

import (
	"fmt"

	"github.com/azen-engine/pkg/tiles"
)

// Side identifies which open end a Play observation targets, or that
// the play is the opening play of the chain.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideStart Side = "start"
)

// Kind discriminates the two observation shapes: Play and Pass.
type Kind int

const (
	KindPlay Kind = iota
	KindPass
)

// Observation is a tagged variant of exactly two shapes: Play(p, t,
// side) and Pass(p, (a,b)). The zero value is not valid; construct
// with PlayObs or PassObs.
type Observation struct {
	Kind   Kind
	Player Player
	Tile   tiles.Tile // meaningful for KindPlay
	Side   Side       // meaningful for KindPlay
	Ends   Ends       // meaningful for KindPass: the ends the player saw
}

// PlayObs constructs a Play observation.
func PlayObs(p Player, t tiles.Tile, side Side) Observation {
	return Observation{Kind: KindPlay, Player: p, Tile: t, Side: side}
}

// PassObs constructs a Pass observation. South never passes (it always
// knows whether it can play), so p must not be South.
func PassObs(p Player, ends Ends) Observation {
	return Observation{Kind: KindPass, Player: p, Ends: ends}
}

func (o Observation) String() string {
	switch o.Kind {
	case KindPlay:
		return fmt.Sprintf("Play(%s, %s, %s)", o.Player, o.Tile, o.Side)
	case KindPass:
		return fmt.Sprintf("Pass(%s, %s)", o.Player, o.Ends)
	default:
		return "Observation(?)"
	}
}

// Ends is the pair of open-end pip values of the domino chain, or the
// sentinel "empty chain" before the first play.
type Ends struct {
	Left, Right int
	Empty       bool
}

// EmptyEnds is the sentinel chain state before any tile has been played.
var EmptyEnds = Ends{Empty: true}

// Values returns the distinct pip values among the two ends (0, 1, or 2
// elements: 0 before any play, 1 if both ends match, 2 otherwise).
func (e Ends) Values() []int {
	if e.Empty {
		return nil
	}
	if e.Left == e.Right {
		return []int{e.Left}
	}
	return []int{e.Left, e.Right}
}

func (e Ends) String() string {
	if e.Empty {
		return "(empty)"
	}
	return fmt.Sprintf("(%d,%d)", e.Left, e.Right)
}

// sameUnordered reports whether e and o name the same pair of open
// ends, ignoring which one is called Left and which is Right: a Pass
// observer only sees an unordered pair, not the engine's internal
// left/right labeling.
func (e Ends) sameUnordered(o Ends) bool {
	if e.Empty != o.Empty {
		return false
	}
	if e.Empty {
		return true
	}
	return (e.Left == o.Left && e.Right == o.Right) || (e.Left == o.Right && e.Right == o.Left)
}
