package tiles

import (
	"math/bits"
	"math/rand"
)

// Set is a bitmask over the 28-tile universe: bit i set means tile
// Decode(i) is a member. All operations are O(1) or O(popcount), which
// keeps the constraint propagator's repeated set algebra and the
// sampler's consistency checks cheap even as they run many times per
// observation.
type Set uint32

// EmptySet contains no tiles.
const EmptySet Set = 0

// Add returns s with t added.
func (s Set) Add(t Tile) Set { return s | (1 << uint(t.Index())) }

// Remove returns s with t removed.
func (s Set) Remove(t Tile) Set { return s &^ (1 << uint(t.Index())) }

// Has reports whether t is a member of s.
func (s Set) Has(t Tile) bool { return s&(1<<uint(t.Index())) != 0 }

// Union returns the union of s and o.
func (s Set) Union(o Set) Set { return s | o }

// Intersect returns the intersection of s and o.
func (s Set) Intersect(o Set) Set { return s & o }

// Diff returns s with every tile in o removed.
func (s Set) Diff(o Set) Set { return s &^ o }

// Len returns the number of tiles in s.
func (s Set) Len() int { return bits.OnesCount32(uint32(s)) }

// Empty reports whether s has no members.
func (s Set) Empty() bool { return s == 0 }

// Subset reports whether every tile in s is also in o.
func (s Set) Subset(o Set) bool { return s&o == s }

// Slice returns the members of s as a slice, in index order.
func (s Set) Slice() []Tile {
	out := make([]Tile, 0, s.Len())
	for b := s; b != 0; b &= b - 1 {
		i := bits.TrailingZeros32(uint32(b))
		out = append(out, Decode(i))
	}
	return out
}

// ForEach calls fn for every tile in s, in index order.
func (s Set) ForEach(fn func(Tile)) {
	for b := s; b != 0; b &= b - 1 {
		i := bits.TrailingZeros32(uint32(b))
		fn(Decode(i))
	}
}

// Sample draws k distinct tiles from s uniformly at random using rng,
// without replacement. It panics if k exceeds s.Len().
func (s Set) Sample(rng *rand.Rand, k int) []Tile {
	members := s.Slice()
	if k > len(members) {
		panic("tiles: sample size exceeds set size")
	}
	rng.Shuffle(len(members), func(i, j int) {
		members[i], members[j] = members[j], members[i]
	})
	return members[:k]
}

// NewSet builds a Set from a slice of tiles.
func NewSet(ts ...Tile) Set {
	var s Set
	for _, t := range ts {
		s = s.Add(t)
	}
	return s
}
