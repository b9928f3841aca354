package tokenproxy

import "github.com/scalarorg/bridge-core/pkg/program"

// pow10 returns 10^n for n up to 19; anything above cannot fit a uint64.
func pow10(n uint8) (uint64, error) {
	if n > 19 {
		return 0, program.ErrOverflow
	}
	out := uint64(1)
	for i := uint8(0); i < n; i++ {
		out *= 10
	}
	return out, nil
}

// DepositAmount rescales a host-ledger amount to foreign-chain decimals.
// Division truncates: deposits can lose sub-unit precision, never gain it.
func DepositAmount(amount uint64, hostDecimals, foreignDecimals uint8) (uint64, error) {
	return rescale(amount, hostDecimals, foreignDecimals)
}

// WithdrawalAmount rescales a foreign-chain amount to host-ledger decimals,
// the inverse of DepositAmount and also truncating.
func WithdrawalAmount(amount uint64, hostDecimals, foreignDecimals uint8) (uint64, error) {
	return rescale(amount, foreignDecimals, hostDecimals)
}

func rescale(amount uint64, fromDecimals, toDecimals uint8) (uint64, error) {
	switch {
	case toDecimals > fromDecimals:
		factor, err := pow10(toDecimals - fromDecimals)
		if err != nil {
			return 0, err
		}
		scaled := amount * factor
		if amount != 0 && scaled/factor != amount {
			return 0, program.ErrOverflow
		}
		return scaled, nil
	case toDecimals < fromDecimals:
		factor, err := pow10(fromDecimals - toDecimals)
		if err != nil {
			return 0, err
		}
		return amount / factor, nil
	default:
		return amount, nil
	}
}
