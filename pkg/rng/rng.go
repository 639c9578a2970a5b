// Package rng provides the deterministic random number source used for dice
// draws: xoshiro256++, seedable and snapshotable.
package rng

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Algorithm names the generator; it is recorded in snapshots so that a
// snapshot taken by one build cannot be silently misread by another.
const Algorithm = "xoshiro256++"

// fallbackState replaces the forbidden all-zero xoshiro state. The words are
// fixed so that seed derivation stays reproducible across platforms.
var fallbackState = [4]uint64{
	0x9e3779b97f4a7c15, 0xbf58476d1ce4e5b9, 0x94d049bb133111eb, 0x2545f4914f6cdd1d,
}

// Source is a single xoshiro256++ stream.
type Source struct {
	s [4]uint64
}

// NewFromEntropy returns a source seeded from system entropy.
func NewFromEntropy() *Source {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is unrecoverable; a fixed state at least keeps
		// the engine usable.
		return New(fallbackState)
	}
	src := &Source{}
	src.SeedBytes(buf[:])
	return src
}

// New returns a source with the given state. The all-zero state is replaced
// with a fixed nonzero one.
func New(state [4]uint64) *Source {
	src := &Source{s: state}
	src.fixZero()
	return src
}

// NewSeeded returns a source deterministically derived from data via
// SeedBytes.
func NewSeeded(data []byte) *Source {
	src := &Source{}
	src.SeedBytes(data)
	return src
}

// SeedBytes replaces the stream state with one derived from data: the
// SHA-256 digest of data read as four little-endian words. The same bytes
// always produce the same subsequent stream on every platform.
func (r *Source) SeedBytes(data []byte) {
	sum := sha256.Sum256(data)
	for i := 0; i < 4; i++ {
		r.s[i] = binary.LittleEndian.Uint64(sum[i*8:])
	}
	r.fixZero()
}

// Reseed replaces the stream state from system entropy.
func (r *Source) Reseed() {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err == nil {
		r.SeedBytes(buf[:])
		return
	}
	r.s = fallbackState
}

func (r *Source) fixZero() {
	if r.s[0] == 0 && r.s[1] == 0 && r.s[2] == 0 && r.s[3] == 0 {
		r.s = fallbackState
	}
}

// State returns a copy of the stream state.
func (r *Source) State() [4]uint64 {
	return r.s
}

// Restore replaces the stream state with a previously captured one. The
// next draw is the one that would have followed State.
func (r *Source) Restore(state [4]uint64) error {
	if state[0] == 0 && state[1] == 0 && state[2] == 0 && state[3] == 0 {
		return fmt.Errorf("rng: all-zero state is not a valid %s state", Algorithm)
	}
	r.s = state
	return nil
}

func rotl(x uint64, k uint) uint64 {
	return x<<k | x>>(64-k)
}

// Uint64 advances the stream and returns the next word.
func (r *Source) Uint64() uint64 {
	result := rotl(r.s[0]+r.s[3], 23) + r.s[0]
	t := r.s[1] << 17
	r.s[2] ^= r.s[0]
	r.s[3] ^= r.s[1]
	r.s[1] ^= r.s[2]
	r.s[0] ^= r.s[3]
	r.s[2] ^= t
	r.s[3] = rotl(r.s[3], 45)
	return result
}

// Roll returns a uniformly distributed integer in [1, faces]. faces must be
// positive. Uniformity comes from rejection sampling, so the draw sequence
// for a given state depends only on the sequence of face counts.
func (r *Source) Roll(faces int64) int64 {
	if faces <= 0 {
		panic("rng: non-positive face count")
	}
	n := uint64(faces)
	limit := ^uint64(0) - ^uint64(0)%n
	for {
		v := r.Uint64()
		if v < limit {
			return int64(v%n) + 1
		}
	}
}
