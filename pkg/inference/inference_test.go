package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azen-engine/pkg/constraints"
	"github.com/azen-engine/pkg/domino"
	"github.com/azen-engine/pkg/tiles"
)

func scenario1Unknown() tiles.Set {
	handS := tiles.NewSet(
		tiles.New(0, 1), tiles.New(1, 3), tiles.New(2, 5), tiles.New(3, 3),
		tiles.New(4, 6), tiles.New(5, 5), tiles.New(6, 6),
	)
	return tiles.All().Diff(handS)
}

// lateGameStore shrinks the opening 21-tile unknown set down to a
// small, exactly-enumerable late-game state: each opponent has already
// played 2 of its original 7 tiles, leaving |U|=15 and
// r(W)=r(N)=r(E)=5 (756,756 valid configurations, well inside a
// 20,000,000-node cap).
func lateGameStore() *constraints.Store {
	u := scenario1Unknown()
	store := constraints.New(u)

	played := u.Slice()[:6]
	owners := []domino.Player{domino.West, domino.West, domino.North, domino.North, domino.East, domino.East}
	for i, t := range played {
		store.RemovePlayed(owners[i], t)
	}
	return store
}

func TestEnumerateUniformWhenUnconstrained(t *testing.T) {
	store := lateGameStore()
	require.NoError(t, store.Propagate())

	m, err := Enumerate(store, 20_000_000)
	require.NoError(t, err)
	require.NoError(t, m.CheckInvariant(store.Unknown(), 1e-9))

	// With no further information, each opponent holds exactly 5 of
	// the 15 unknown tiles, so every opponent is equally likely to
	// hold any given tile: 5/15 = 1/3.
	anyTile := store.Unknown().Slice()[0]
	for _, p := range domino.Opponents {
		assert.InDelta(t, 1.0/3.0, m.At(p, anyTile), 1e-9)
	}

	remaining := map[domino.Player]int{}
	for _, p := range domino.Opponents {
		remaining[p] = store.Remaining(p)
	}
	require.NoError(t, m.CheckColumnInvariant(store.Unknown(), remaining, 1e-9))
}

func TestEnumerateColumnInvariantDetectsMismatch(t *testing.T) {
	store := lateGameStore()
	require.NoError(t, store.Propagate())

	m, err := Enumerate(store, 20_000_000)
	require.NoError(t, err)

	wrong := map[domino.Player]int{domino.West: 4, domino.North: 5, domino.East: 5}
	assert.Error(t, m.CheckColumnInvariant(store.Unknown(), wrong, 1e-9))
}

func TestEnumerateRespectsSaturatedHand(t *testing.T) {
	u := scenario1Unknown()
	store := constraints.New(u)

	// West passes on (3,4) and (6,6), losing suits 3, 4 and 6; the 7
	// unknown tiles built only from pips 0, 1, 2 and 5 remain, exactly
	// West's hand size.
	store.RestrictPass(domino.West, 3, 4)
	store.RestrictPass(domino.West, 6, 6)
	keep := u.Diff(tiles.Block(3, 4)).Diff(tiles.Block(6, 6))
	require.Equal(t, 7, keep.Len())
	require.NoError(t, store.Propagate())

	m, err := Enumerate(store, 50_000_000)
	require.NoError(t, err)
	require.NoError(t, m.CheckInvariant(u, 1e-9))

	for _, tl := range keep.Slice() {
		assert.InDelta(t, 1.0, m.At(domino.West, tl), 1e-9)
		assert.InDelta(t, 0.0, m.At(domino.North, tl), 1e-9)
	}
}

func TestEnumerateWorkloadExceeded(t *testing.T) {
	u := scenario1Unknown()
	store := constraints.New(u)
	require.NoError(t, store.Propagate())

	_, err := Enumerate(store, 10)
	assert.ErrorIs(t, err, ErrWorkloadExceeded)
}

func TestSampleRejectionRegime(t *testing.T) {
	u := scenario1Unknown()
	store := constraints.New(u)
	require.NoError(t, store.Propagate())

	cfg := SampleConfig{N: 2000, PilotK: 200, AlphaMin: 0.01, Workers: 2, Seed: 42}
	m, err := Sample(context.Background(), store, cfg)
	require.NoError(t, err)
	require.NoError(t, m.CheckInvariant(u, 0.2))

	anyTile := u.Slice()[0]
	for _, p := range domino.Opponents {
		assert.InDelta(t, 1.0/3.0, m.At(p, anyTile), 0.15)
	}
}

func TestSampleFallsBackUnderLowAcceptance(t *testing.T) {
	u := scenario1Unknown()
	store := constraints.New(u)

	// Force a low acceptance rate by cutting West's candidate set
	// down close to its remaining count, without making it infeasible:
	// passes on (3,5) and (6,6) leave West only the 9 unknown tiles
	// built from pips 0, 1, 2 and 4.
	store.RestrictPass(domino.West, 3, 5)
	store.RestrictPass(domino.West, 6, 6)
	require.NoError(t, store.Propagate())

	cfg := SampleConfig{N: 500, PilotK: 200, AlphaMin: 0.5, BurnIn: 200, Workers: 1, Seed: 7}
	m, err := Sample(context.Background(), store, cfg)
	require.NoError(t, err)
	assert.Equal(t, "monte_carlo", m.Method)
	require.NoError(t, m.CheckInvariant(u, 0.3))
}

func TestSampleHonorsContextCancellation(t *testing.T) {
	u := scenario1Unknown()
	store := constraints.New(u)
	require.NoError(t, store.Propagate())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := SampleConfig{N: 1_000_000, PilotK: 10, AlphaMin: 0.01, Workers: 2, Seed: 1}
	_, err := Sample(ctx, store, cfg)
	assert.Error(t, err)
}
