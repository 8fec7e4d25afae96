// Package oracle ties pkg/domino, pkg/constraints, and pkg/inference
// together into the single stateful object an external caller drives:
// apply an observation, ask for marginals, snapshot, roll back.
package oracle

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/azen-engine/pkg/config"
	"github.com/azen-engine/pkg/constraints"
	"github.com/azen-engine/pkg/domino"
	"github.com/azen-engine/pkg/inference"
	"github.com/azen-engine/pkg/tiles"
)

// Session holds one game's belief state: the observation ledger and
// the opponent candidate-set store it implies.
type Session struct {
	ID     string
	cfg    config.SessionConfig
	game   *domino.GameState
	store  *constraints.Store
}

// New creates a session from South's hand and a policy configuration.
func New(handS tiles.Set, cfg config.SessionConfig) (*Session, error) {
	gs, err := domino.NewGameState(handS)
	if err != nil {
		return nil, wrap(KindInvalidObservation, err)
	}
	s := &Session{
		ID:    uuid.NewString(),
		cfg:   cfg,
		game:  gs,
		store: constraints.New(gs.Unknown()),
	}
	log.Info().Str("session_id", s.ID).Msg("oracle: session created")
	return s, nil
}

// Apply validates and applies one observation to both the game ledger
// and the constraint store, then re-runs propagation to a fixed point.
// On any error the session is left exactly as it was before the call.
func (s *Session) Apply(o domino.Observation) error {
	preGame := s.game.Clone()
	preStore := s.store.Clone()

	if err := s.game.Apply(o); err != nil {
		return wrap(KindInvalidObservation, err)
	}

	if o.Kind == domino.KindPlay && o.Player != domino.South {
		s.store.RemovePlayed(o.Player, o.Tile)
	}
	if o.Kind == domino.KindPass {
		s.store.RestrictPass(o.Player, o.Ends.Values()[0], lastValue(o.Ends))
	}

	if err := s.store.Propagate(); err != nil {
		s.game = preGame
		s.store = preStore
		return wrap(KindInconsistent, err)
	}

	log.Debug().Str("session_id", s.ID).Str("observation", o.String()).Msg("oracle: observation applied")
	return nil
}

func lastValue(e domino.Ends) int {
	vs := e.Values()
	if len(vs) == 1 {
		return vs[0]
	}
	return vs[1]
}

// Marginals computes P(p holds t) for every opponent and unknown tile,
// dispatching between exact enumeration and Monte Carlo sampling, then
// verifies both the row-sum (sum_p P=1) and column-sum (sum_t P = r(p))
// invariants before returning.
func (s *Session) Marginals(ctx context.Context) (*inference.Marginals, error) {
	m, err := Dispatch(ctx, s.store, s.cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, wrap(KindTimeout, err)
		}
		return nil, wrap(KindInternalError, err)
	}
	if err := m.CheckInvariant(s.store.Unknown(), s.cfg.InvariantTolerance); err != nil {
		return nil, wrap(KindInternalError, err)
	}
	remaining := map[domino.Player]int{}
	for _, p := range domino.Opponents {
		remaining[p] = s.store.Remaining(p)
	}
	if err := m.CheckColumnInvariant(s.store.Unknown(), remaining, s.cfg.InvariantTolerance); err != nil {
		return nil, wrap(KindInternalError, err)
	}
	return m, nil
}

// Snapshot is a concurrency-safe, independent copy of the session's
// belief state, suitable for handing to a background worker while the
// live session keeps accepting observations.
type Snapshot struct {
	Game  *domino.GameState
	Store *constraints.Store
}

// Snapshot takes an immutable copy of the current belief state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{Game: s.game.Clone(), Store: s.store.Clone()}
}

// Verify re-checks every structural invariant against the current
// store without mutating it. A pure diagnostic a caller can run after a
// batch of Apply calls to catch a smuggled-in bug early.
func (s *Session) Verify() error {
	probe := s.store.Clone()
	if err := probe.Propagate(); err != nil {
		return wrap(KindInconsistent, err)
	}
	return nil
}

// History returns the session's full observation ledger.
func (s *Session) History() []domino.Observation { return s.game.History() }

// GameState exposes the underlying ledger for read-only queries
// (remaining counts, current ends, lock/over detection).
func (s *Session) GameState() *domino.GameState { return s.game }

// Store exposes the underlying constraint store for read-only queries.
func (s *Session) Store() *constraints.Store { return s.store }
