// Package program models the execution environment the bridge programs run
// in: rent-funded storage accounts, a trusted clock, and the error taxonomy
// shared by the round loader and the token proxy.
package program

import (
	"errors"
	"time"

	"github.com/scalarorg/bridge-core/pkg/types"
)

// Account is one storage record on the host ledger. Data holds a packed
// record owned by exactly one program; Lamports is the rent/escrow balance.
type Account struct {
	Address  types.Address
	Owner    types.Address
	Lamports uint64
	Data     []byte
}

// Authorization errors: always fatal, nothing is applied.
var (
	ErrMissingSignature = errors.New("program: required signature missing")
	ErrIllegalOwner     = errors.New("program: illegal account owner")
	ErrInvalidRelay     = errors.New("program: relay not in round")
)

// Address/binding validation errors: a forged or misrouted account.
var (
	ErrInvalidArgument   = errors.New("program: invalid argument")
	ErrInvalidRelayRound = errors.New("program: invalid relay round")
)

// Capacity/limit errors: fatal for the transaction, state untouched.
var (
	ErrAccountDataTooSmall = errors.New("program: account data too small")
	ErrDepositLimit        = errors.New("program: deposit limit exceeded")
	ErrInsufficientFunds   = errors.New("program: insufficient funds")
	ErrOverflow            = errors.New("program: arithmetic overflow")
)

// Lifecycle errors.
var (
	ErrAlreadyInitialized       = errors.New("program: account already initialized")
	ErrNotInitialized           = errors.New("program: account not initialized")
	ErrEmergencyEnabled         = errors.New("program: emergency mode enabled")
	ErrInvalidWithdrawalStatus  = errors.New("program: invalid withdrawal status")
	ErrProposalAlreadyFinalized = errors.New("program: proposal already finalized")
)

// Clock is the trusted wall-clock read. Time-based semantics (round TTL,
// withdrawal epochs) are evaluated lazily against it on the next relevant
// call, never via scheduled callbacks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a preset instant; the test double for Clock.
type FixedClock struct {
	Instant time.Time
}

func (c *FixedClock) Now() time.Time { return c.Instant }

// Advance moves the fixed clock forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.Instant = c.Instant.Add(d) }

// Signers is the set of addresses that signed the current instruction.
type Signers map[types.Address]struct{}

func NewSigners(addrs ...types.Address) Signers {
	s := make(Signers, len(addrs))
	for _, a := range addrs {
		s[a] = struct{}{}
	}
	return s
}

func (s Signers) Has(addr types.Address) bool {
	_, ok := s[addr]
	return ok
}

// RequireSigner fails with ErrMissingSignature unless addr signed.
func (s Signers) RequireSigner(addr types.Address) error {
	if !s.Has(addr) {
		return ErrMissingSignature
	}
	return nil
}

// TransferLamports moves amount between two account balances with overflow
// and underflow checks; either both balances change or neither does.
func TransferLamports(from, to *Account, amount uint64) error {
	if from.Lamports < amount {
		return ErrInsufficientFunds
	}
	if to.Lamports+amount < to.Lamports {
		return ErrOverflow
	}
	from.Lamports -= amount
	to.Lamports += amount
	return nil
}

// RequireOwner fails with ErrIllegalOwner unless the account is owned by the
// given program.
func RequireOwner(acc *Account, programID types.Address) error {
	if acc.Owner != programID {
		return ErrIllegalOwner
	}
	return nil
}
