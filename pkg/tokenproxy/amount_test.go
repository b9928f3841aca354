package tokenproxy_test

import (
	"testing"

	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/tokenproxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositAmountRescaling(t *testing.T) {
	tests := []struct {
		name            string
		amount          uint64
		hostDecimals    uint8
		foreignDecimals uint8
		want            uint64
	}{
		{name: "scale up", amount: 1_500_000, hostDecimals: 6, foreignDecimals: 9, want: 1_500_000_000},
		{name: "scale down truncates", amount: 1_234_567_891, hostDecimals: 9, foreignDecimals: 6, want: 1_234_567},
		{name: "equal decimals", amount: 42, hostDecimals: 9, foreignDecimals: 9, want: 42},
		{name: "zero", amount: 0, hostDecimals: 6, foreignDecimals: 9, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tokenproxy.DepositAmount(tt.amount, tt.hostDecimals, tt.foreignDecimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithdrawalAmountIsInverseDirection(t *testing.T) {
	// Foreign 9 decimals down to host 6: sub-unit precision is dropped.
	got, err := tokenproxy.WithdrawalAmount(1_500_000_999, 6, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), got)

	// Host wider than foreign: scale up losslessly.
	got, err = tokenproxy.WithdrawalAmount(1_500, 9, 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), got)
}

func TestRescaleRoundTripNeverGains(t *testing.T) {
	// Down then back up loses at most one quantum of the coarser scale.
	for _, amount := range []uint64{0, 1, 999, 1_000, 1_999_999_999, 12_345_678_901} {
		down, err := tokenproxy.DepositAmount(amount, 9, 6)
		require.NoError(t, err)
		back, err := tokenproxy.WithdrawalAmount(down, 9, 6)
		require.NoError(t, err)
		assert.LessOrEqual(t, back, amount)
		assert.Less(t, amount-back, uint64(1000))
	}
}

func TestRescaleOverflow(t *testing.T) {
	_, err := tokenproxy.DepositAmount(1<<63, 0, 9)
	assert.ErrorIs(t, err, program.ErrOverflow)

	// A decimal gap beyond 19 cannot be represented at all.
	_, err = tokenproxy.DepositAmount(1, 0, 20)
	assert.ErrorIs(t, err, program.ErrOverflow)
}
