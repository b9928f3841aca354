// Package pda derives program-owned account addresses from seed tuples.
//
// Every stateful record of the bridge lives at an address that is a
// deterministic function of its seeds and the owning program identity, so a
// caller can never substitute a forged record: readers re-derive and compare
// on every access that trusts account identity.
package pda

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"
	"github.com/scalarorg/bridge-core/pkg/types"
)

const (
	// MaxSeeds bounds the seed tuple length for a single derivation.
	MaxSeeds = 16
	// MaxSeedLen bounds the byte length of a single seed.
	MaxSeedLen = 32
)

// derivedMarker domain-separates derived addresses from signing keys.
const derivedMarker = "ProgramDerivedAddress"

var (
	ErrInvalidSeeds = errors.New("pda: invalid seeds")
	ErrTooManySeeds = errors.New("pda: too many seeds")
	ErrSeedTooLong  = errors.New("pda: seed too long")
	ErrNoViableBump = errors.New("pda: no viable bump")
)

// CreateAddress hashes the seed tuple into an address. It fails with
// ErrInvalidSeeds when the digest happens to be a valid curve point, since a
// derived address must never collide with a signing key.
func CreateAddress(seeds [][]byte, programID types.Address) (types.Address, error) {
	if len(seeds) > MaxSeeds {
		return types.ZeroAddress, ErrTooManySeeds
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return types.ZeroAddress, ErrSeedTooLong
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(derivedMarker))

	var addr types.Address
	copy(addr[:], h.Sum(nil))
	if isOnCurve(addr) {
		return types.ZeroAddress, ErrInvalidSeeds
	}
	return addr, nil
}

// Derive searches bump nonces from 255 downwards until the seed tuple hashes
// off-curve, returning the address and the winning bump.
func Derive(seeds [][]byte, programID types.Address) (types.Address, uint8, error) {
	if len(seeds)+1 > MaxSeeds {
		return types.ZeroAddress, 0, ErrTooManySeeds
	}
	bumped := make([][]byte, len(seeds)+1)
	copy(bumped, seeds)
	for bump := 255; bump >= 0; bump-- {
		bumped[len(seeds)] = []byte{uint8(bump)}
		addr, err := CreateAddress(bumped, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return types.ZeroAddress, 0, err
		}
	}
	return types.ZeroAddress, 0, ErrNoViableBump
}

// Validate re-derives the expected address for the seed tuple and compares it
// with the candidate, returning the bump on success and ErrInvalidSeeds when
// the candidate does not belong to the tuple.
func Validate(seeds [][]byte, programID types.Address, candidate types.Address) (uint8, error) {
	addr, bump, err := Derive(seeds, programID)
	if err != nil {
		return 0, err
	}
	if addr != candidate {
		return 0, ErrInvalidSeeds
	}
	return bump, nil
}

func isOnCurve(addr types.Address) bool {
	_, err := new(edwards25519.Point).SetBytes(addr[:])
	return err == nil
}
