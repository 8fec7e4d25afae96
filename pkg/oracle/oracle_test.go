package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azen-engine/pkg/config"
	"github.com/azen-engine/pkg/domino"
	"github.com/azen-engine/pkg/tiles"
)

func handS() tiles.Set {
	return tiles.NewSet(
		tiles.New(0, 1), tiles.New(1, 3), tiles.New(2, 5), tiles.New(3, 3),
		tiles.New(4, 6), tiles.New(5, 5), tiles.New(6, 6),
	)
}

func testConfig() config.SessionConfig {
	cfg := config.Default()
	cfg.WorkloadBound = 50_000_000
	cfg.TargetSamples = 500
	cfg.PilotSamples = 100
	cfg.Seed = 11
	return cfg
}

func TestNewSessionAssignsID(t *testing.T) {
	s, err := New(handS(), testConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
}

func TestApplyRejectsInvalidObservation(t *testing.T) {
	s, err := New(handS(), testConfig())
	require.NoError(t, err)

	err = s.Apply(domino.PassObs(domino.South, domino.Ends{}))
	assert.Equal(t, KindInvalidObservation, KindOf(err))
	assert.Empty(t, s.History())
}

func TestApplyTracksScenario(t *testing.T) {
	s, err := New(handS(), testConfig())
	require.NoError(t, err)

	require.NoError(t, s.Apply(domino.PlayObs(domino.South, tiles.New(3, 3), domino.SideStart)))
	require.NoError(t, s.Apply(domino.PassObs(domino.West, domino.Ends{Left: 3, Right: 3})))
	require.NoError(t, s.Apply(domino.PlayObs(domino.North, tiles.New(3, 6), domino.SideLeft)))

	assert.Equal(t, 20, s.Store().Unknown().Len())
	assert.False(t, s.Store().Candidates(domino.West).Has(tiles.New(3, 3)))
	assert.Equal(t, 6, s.Store().Remaining(domino.North))
}

// TestMarginalsSatisfyInvariant drives the session down to a small
// late-game state (|U|=15, r(W)=r(N)=r(E)=5, and West's pass on (3,3)
// leaving 199,584 valid configurations) rather than stopping at the
// 21-tile opening, whose 399,072,960 configurations overrun
// testConfig's WorkloadBound and force
// Dispatch into Monte Carlo sampling.
func TestMarginalsSatisfyInvariant(t *testing.T) {
	s, err := New(handS(), testConfig())
	require.NoError(t, err)

	plays := []domino.Observation{
		domino.PlayObs(domino.South, tiles.New(3, 3), domino.SideStart),
		domino.PassObs(domino.West, domino.Ends{Left: 3, Right: 3}),
		domino.PlayObs(domino.North, tiles.New(3, 4), domino.SideLeft),  // ends (4,3)
		domino.PlayObs(domino.East, tiles.New(3, 5), domino.SideRight),  // ends (4,5)
		domino.PlayObs(domino.West, tiles.New(0, 4), domino.SideLeft),   // ends (0,5)
		domino.PlayObs(domino.North, tiles.New(1, 5), domino.SideRight), // ends (0,1)
		domino.PlayObs(domino.East, tiles.New(0, 2), domino.SideLeft),   // ends (2,1)
		domino.PlayObs(domino.West, tiles.New(1, 6), domino.SideRight),  // ends (2,6)
	}
	for _, o := range plays {
		require.NoError(t, s.Apply(o))
	}
	require.Equal(t, 15, s.Store().Unknown().Len())
	for _, p := range domino.Opponents {
		require.Equal(t, 5, s.Store().Remaining(p))
	}

	m, err := s.Marginals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "exact", m.Method)
}

func TestVerifyDetectsNothingWrongOnCleanSession(t *testing.T) {
	s, err := New(handS(), testConfig())
	require.NoError(t, err)
	assert.NoError(t, s.Verify())
}

func TestSnapshotIsIndependentOfLiveSession(t *testing.T) {
	s, err := New(handS(), testConfig())
	require.NoError(t, err)
	require.NoError(t, s.Apply(domino.PlayObs(domino.South, tiles.New(3, 3), domino.SideStart)))

	snap := s.Snapshot()
	require.NoError(t, s.Apply(domino.PassObs(domino.West, domino.Ends{Left: 3, Right: 3})))

	assert.Len(t, snap.Game.History(), 1)
	assert.Len(t, s.History(), 2)
}
