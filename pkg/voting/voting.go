// Package voting implements the quorum rules shared by the round loader and
// the token proxy: threshold computation over a snapshotted relay list,
// first-wins vote slots, and order-independent tallying.
package voting

import (
	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/types"
)

const (
	// MaxRelays bounds the relay list of a single round.
	MaxRelays = 100

	// RelayReparation is the per-relay lamport bond escrowed into a proposal
	// when it is finalized and refunded to each relay on its first vote.
	RelayReparation uint64 = 10_000
)

// RequiredVotes returns the byzantine-majority threshold over n relays with a
// configurable floor: max(minRequired, 2n/3+1).
func RequiredVotes(n int, minRequired uint32) uint32 {
	threshold := uint32(n)*2/3 + 1
	if threshold < minRequired {
		return minRequired
	}
	return threshold
}

// NewSlots allocates one None vote slot per snapshot relay, in round order.
func NewSlots(n int) []types.Vote {
	return make([]types.Vote, n)
}

// RelayIndex finds the voter's position in the snapshot relay list.
func RelayIndex(relays []types.Address, relay types.Address) (int, error) {
	for i, r := range relays {
		if r == relay {
			return i, nil
		}
	}
	return 0, program.ErrInvalidRelay
}

// Cast applies a vote to the relay's slot. None is never a valid vote. A slot
// already holding a vote is left untouched and Cast reports applied=false:
// replays are silent no-ops, not errors.
func Cast(slots []types.Vote, index int, vote types.Vote) (applied bool, err error) {
	if vote == types.VoteNone {
		return false, program.ErrInvalidArgument
	}
	if index < 0 || index >= len(slots) {
		return false, program.ErrInvalidRelay
	}
	if slots[index] != types.VoteNone {
		return false, nil
	}
	slots[index] = vote
	return true, nil
}

// Confirmations tallies Confirm votes. Only the count matters, never the
// order the votes arrived in.
func Confirmations(slots []types.Vote) uint32 {
	var n uint32
	for _, v := range slots {
		if v == types.VoteConfirm {
			n++
		}
	}
	return n
}

// QuorumReached reports whether the Confirm tally meets the threshold.
func QuorumReached(slots []types.Vote, required uint32) bool {
	return Confirmations(slots) >= required
}
