package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azen-engine/pkg/domino"
	"github.com/azen-engine/pkg/tiles"
)

// scenario1Unknown is the 21-tile unknown set for a fixed South hand:
// the full double-six set minus South's hand.
func scenario1Unknown() tiles.Set {
	handS := tiles.NewSet(
		tiles.New(0, 1), tiles.New(1, 3), tiles.New(2, 5), tiles.New(3, 3),
		tiles.New(4, 6), tiles.New(5, 5), tiles.New(6, 6),
	)
	return tiles.All().Diff(handS)
}

func TestNewStoreStartsAtFullCoverage(t *testing.T) {
	u := scenario1Unknown()
	s := New(u)
	for _, p := range domino.Opponents {
		assert.Equal(t, u, s.Candidates(p))
		assert.Equal(t, 7, s.Remaining(p))
	}
	require.NoError(t, s.Propagate())
}

func TestRemovePlayedShrinksUnknownAndCandidates(t *testing.T) {
	u := scenario1Unknown()
	s := New(u)
	t36 := tiles.New(3, 6)
	require.True(t, u.Has(t36))

	s.RemovePlayed(domino.North, t36)
	require.NoError(t, s.Propagate())

	assert.False(t, s.Unknown().Has(t36))
	assert.Equal(t, 6, s.Remaining(domino.North))
	for _, p := range domino.Opponents {
		assert.False(t, s.Candidates(p).Has(t36))
	}
}

func TestRestrictPassEliminatesBlock(t *testing.T) {
	u := scenario1Unknown()
	s := New(u)
	s.RestrictPass(domino.West, 3, 3)
	require.NoError(t, s.Propagate())

	block := tiles.Block(3, 3)
	assert.True(t, s.Candidates(domino.West).Intersect(block).Empty())
}

func TestSaturatedHandCascades(t *testing.T) {
	// Shrink West's candidate set down to exactly 7 tiles by removing
	// every other unknown tile from it directly; then the
	// saturated-hand rule (R3) must remove those 7 tiles from North
	// and East's candidate sets.
	u := scenario1Unknown()
	s := New(u)

	keep := u.Slice()[:7]
	keepSet := tiles.NewSet(keep...)
	for _, t := range u.Diff(keepSet).Slice() {
		s.candidates[domino.West] = s.candidates[domino.West].Remove(t)
	}
	require.Equal(t, 7, s.Candidates(domino.West).Len())

	require.NoError(t, s.Propagate())

	for _, tl := range keep {
		assert.False(t, s.Candidates(domino.North).Has(tl))
		assert.False(t, s.Candidates(domino.East).Has(tl))
	}
}

func TestHallPairPruningForSizeTwo(t *testing.T) {
	// Restrict North and East's candidates down to a combined 14-tile
	// set that exactly matches their combined remaining count (7+7);
	// West's candidates must then exclude that union entirely.
	u := scenario1Unknown()
	s := New(u)

	all := u.Slice()
	owned := tiles.NewSet(all[:14]...)
	s.candidates[domino.North] = owned
	s.candidates[domino.East] = owned

	require.NoError(t, s.Propagate())

	assert.True(t, s.Candidates(domino.West).Intersect(owned).Empty())
}

func TestPropagateIsIdempotent(t *testing.T) {
	u := scenario1Unknown()
	s := New(u)
	s.RemovePlayed(domino.North, tiles.New(3, 6))
	s.RestrictPass(domino.West, 3, 3)

	require.NoError(t, s.Propagate())
	before := s.Clone()
	require.NoError(t, s.Propagate())

	for _, p := range domino.Opponents {
		assert.Equal(t, before.Candidates(p), s.Candidates(p))
	}
}

func TestPropagateDetectsCapacityViolation(t *testing.T) {
	u := scenario1Unknown()
	s := New(u)
	// Force West's candidate set below its remaining count.
	small := u.Slice()[:3]
	s.candidates[domino.West] = tiles.NewSet(small...)

	err := s.Propagate()
	assert.ErrorIs(t, err, ErrInconsistent)
}

func TestPropagateDetectsUncoveredTile(t *testing.T) {
	u := scenario1Unknown()
	s := New(u)
	lonely := u.Slice()[0]
	for _, p := range domino.Opponents {
		s.candidates[p] = s.candidates[p].Remove(lonely)
	}

	err := s.Propagate()
	assert.ErrorIs(t, err, ErrInconsistent)
}

func TestPropagateDetectsHallViolation(t *testing.T) {
	u := scenario1Unknown()
	s := New(u)
	all := u.Slice()
	tiny := tiles.NewSet(all[:10]...)
	s.candidates[domino.North] = tiny
	s.candidates[domino.East] = tiny

	err := s.Propagate()
	assert.ErrorIs(t, err, ErrInconsistent)
}

func TestCloneIsIndependent(t *testing.T) {
	u := scenario1Unknown()
	s := New(u)
	clone := s.Clone()
	s.RemovePlayed(domino.West, u.Slice()[0])
	assert.NotEqual(t, s.Unknown(), clone.Unknown())
}
