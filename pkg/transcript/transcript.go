// Package transcript persists an observation stream to a JSON array
// external callers can produce and consume, and reads it back into
// domino.Observation values. The round-trip shape (Save/Load wrapping
// Encode/Decode) mirrors a file-based game log, using a JSON wire
// format instead of line-oriented text.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/azen-engine/pkg/domino"
	"github.com/azen-engine/pkg/tiles"
)

// record is the JSON wire shape of one observation: {kind, player,
// tile, side} for a play, {kind, player, ends} for a pass. Tile and
// ends are omitted by the encoder when not meaningful for the kind.
type record struct {
	Kind   string `json:"kind"`
	Player string `json:"player"`
	Tile   *[2]int `json:"tile,omitempty"`
	Side   string  `json:"side,omitempty"`
	Ends   *[2]int `json:"ends,omitempty"`
}

func playerCode(p domino.Player) string { return p.String() }

func parsePlayer(s string) (domino.Player, error) {
	switch s {
	case "S":
		return domino.South, nil
	case "W":
		return domino.West, nil
	case "N":
		return domino.North, nil
	case "E":
		return domino.East, nil
	default:
		return 0, fmt.Errorf("transcript: unknown player code %q", s)
	}
}

func toRecord(o domino.Observation) record {
	switch o.Kind {
	case domino.KindPlay:
		tile := [2]int{o.Tile.A, o.Tile.B}
		return record{Kind: "play", Player: playerCode(o.Player), Tile: &tile, Side: string(o.Side)}
	case domino.KindPass:
		ends := [2]int{o.Ends.Left, o.Ends.Right}
		return record{Kind: "pass", Player: playerCode(o.Player), Ends: &ends}
	default:
		return record{Kind: "unknown", Player: playerCode(o.Player)}
	}
}

func fromRecord(r record) (domino.Observation, error) {
	p, err := parsePlayer(r.Player)
	if err != nil {
		return domino.Observation{}, err
	}
	switch r.Kind {
	case "play":
		if r.Tile == nil {
			return domino.Observation{}, fmt.Errorf("transcript: play record missing tile")
		}
		return domino.PlayObs(p, tiles.New(r.Tile[0], r.Tile[1]), domino.Side(r.Side)), nil
	case "pass":
		if r.Ends == nil {
			return domino.Observation{}, fmt.Errorf("transcript: pass record missing ends")
		}
		return domino.PassObs(p, domino.Ends{Left: r.Ends[0], Right: r.Ends[1]}), nil
	default:
		return domino.Observation{}, fmt.Errorf("transcript: unknown record kind %q", r.Kind)
	}
}

// Encode renders an observation stream as a JSON array.
func Encode(obs []domino.Observation) ([]byte, error) {
	records := make([]record, len(obs))
	for i, o := range obs {
		records[i] = toRecord(o)
	}
	return json.MarshalIndent(records, "", "  ")
}

// Decode parses a JSON array back into observations.
func Decode(data []byte) ([]domino.Observation, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	obs := make([]domino.Observation, len(records))
	for i, r := range records {
		o, err := fromRecord(r)
		if err != nil {
			return nil, err
		}
		obs[i] = o
	}
	return obs, nil
}

// Save writes obs to path as a JSON transcript.
func Save(path string, obs []domino.Observation) error {
	data, err := Encode(obs)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a JSON transcript from path.
func Load(path string) ([]domino.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
