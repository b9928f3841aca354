package voting_test

import (
	"testing"

	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/types"
	"github.com/scalarorg/bridge-core/pkg/voting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredVotes(t *testing.T) {
	tests := []struct {
		name        string
		relays      int
		minRequired uint32
		want        uint32
	}{
		{name: "four relays no floor", relays: 4, minRequired: 0, want: 3},
		{name: "single relay", relays: 1, minRequired: 0, want: 1},
		{name: "three relays", relays: 3, minRequired: 0, want: 3},
		{name: "hundred relays", relays: 100, minRequired: 0, want: 67},
		{name: "floor dominates", relays: 4, minRequired: 4, want: 4},
		{name: "threshold dominates floor", relays: 10, minRequired: 2, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, voting.RequiredVotes(tt.relays, tt.minRequired))
		})
	}
}

func TestCastFirstWins(t *testing.T) {
	slots := voting.NewSlots(3)

	applied, err := voting.Cast(slots, 1, types.VoteConfirm)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, types.VoteConfirm, slots[1])

	// Replays are silent no-ops, even with a different vote value.
	applied, err = voting.Cast(slots, 1, types.VoteReject)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, types.VoteConfirm, slots[1])
}

func TestCastRejectsNone(t *testing.T) {
	slots := voting.NewSlots(2)
	_, err := voting.Cast(slots, 0, types.VoteNone)
	assert.ErrorIs(t, err, program.ErrInvalidArgument)
}

func TestCastOutOfRange(t *testing.T) {
	slots := voting.NewSlots(2)
	_, err := voting.Cast(slots, 2, types.VoteConfirm)
	assert.ErrorIs(t, err, program.ErrInvalidRelay)
	_, err = voting.Cast(slots, -1, types.VoteConfirm)
	assert.ErrorIs(t, err, program.ErrInvalidRelay)
}

func TestTallyOrderIndependent(t *testing.T) {
	build := func(order []int) uint32 {
		slots := voting.NewSlots(4)
		for _, idx := range order {
			_, err := voting.Cast(slots, idx, types.VoteConfirm)
			require.NoError(t, err)
		}
		return voting.Confirmations(slots)
	}

	assert.Equal(t, build([]int{0, 1, 2}), build([]int{2, 0, 1}))
}

func TestRelayIndex(t *testing.T) {
	relays := make([]types.Address, 3)
	relays[0][0] = 1
	relays[1][0] = 2
	relays[2][0] = 3

	idx, err := voting.RelayIndex(relays, relays[2])
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	var stranger types.Address
	stranger[0] = 9
	_, err = voting.RelayIndex(relays, stranger)
	assert.ErrorIs(t, err, program.ErrInvalidRelay)
}

func TestQuorumScenarioFourRelays(t *testing.T) {
	// Genesis round with 4 relays and no floor: quorum is floor(8/3)+1 = 3.
	required := voting.RequiredVotes(4, 0)
	require.Equal(t, uint32(3), required)

	slots := voting.NewSlots(4)
	for i := 0; i < 2; i++ {
		_, err := voting.Cast(slots, i, types.VoteConfirm)
		require.NoError(t, err)
	}
	assert.False(t, voting.QuorumReached(slots, required))

	_, err := voting.Cast(slots, 2, types.VoteConfirm)
	require.NoError(t, err)
	assert.True(t, voting.QuorumReached(slots, required))

	// A fourth vote changes the tally but not the quorum outcome.
	_, err = voting.Cast(slots, 3, types.VoteConfirm)
	require.NoError(t, err)
	assert.True(t, voting.QuorumReached(slots, required))
}
