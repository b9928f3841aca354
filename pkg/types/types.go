package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
)

// AddressLen is the byte length of a ledger account address.
const AddressLen = 32

// Address is a 32-byte account address on the host ledger.
type Address [AddressLen]byte

var ZeroAddress Address

func AddressFromBytes(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLen {
		return addr, fmt.Errorf("invalid address length %d", len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

func AddressFromBase58(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return ZeroAddress, fmt.Errorf("invalid base58 address %q: %w", s, err)
	}
	return AddressFromBytes(b)
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) String() string { return base58.Encode(a[:]) }

func (a Address) IsZero() bool { return a == ZeroAddress }

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	addr, err := AddressFromBase58(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// ForeignAddress identifies an account on the foreign (event-source) chain.
type ForeignAddress struct {
	Workchain int8
	Address   [32]byte
}

func (f ForeignAddress) String() string {
	return fmt.Sprintf("%d:%x", f.Workchain, f.Address)
}

func (f ForeignAddress) Equal(other ForeignAddress) bool {
	return f.Workchain == other.Workchain && bytes.Equal(f.Address[:], other.Address[:])
}

func (f ForeignAddress) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses the "workchain:hex" form produced by String.
func (f *ForeignAddress) UnmarshalText(text []byte) error {
	parts := strings.SplitN(string(text), ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid foreign address %q", text)
	}
	workchain, err := strconv.ParseInt(parts[0], 10, 8)
	if err != nil {
		return fmt.Errorf("invalid foreign address workchain %q: %w", parts[0], err)
	}
	raw, err := hex.DecodeString(parts[1])
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("invalid foreign address body %q", parts[1])
	}
	f.Workchain = int8(workchain)
	copy(f.Address[:], raw)
	return nil
}

// AccountKind discriminates the packed layout stored in a program account.
type AccountKind uint8

const (
	AccountKindUninitialized AccountKind = iota
	AccountKindDeposit
	AccountKindProposal
	AccountKindSettings
	AccountKindRelayRound
)

func (k AccountKind) String() string {
	switch k {
	case AccountKindDeposit:
		return "Deposit"
	case AccountKindProposal:
		return "Proposal"
	case AccountKindSettings:
		return "Settings"
	case AccountKindRelayRound:
		return "RelayRound"
	default:
		return "Uninitialized"
	}
}

// Vote is a single relay's vote slot on a proposal. VoteNone is the unset
// sentinel; a slot never transitions away from Confirm or Reject.
type Vote uint8

const (
	VoteNone Vote = iota
	VoteConfirm
	VoteReject
)

func (v Vote) String() string {
	switch v {
	case VoteConfirm:
		return "Confirm"
	case VoteReject:
		return "Reject"
	default:
		return "None"
	}
}

// WithdrawalStatus is the settlement sub-state of a withdrawal request.
type WithdrawalStatus uint8

const (
	WithdrawalStatusNew WithdrawalStatus = iota
	WithdrawalStatusProcessed
	WithdrawalStatusCancelled
	WithdrawalStatusPending
	WithdrawalStatusWaitingForApprove
)

func (s WithdrawalStatus) String() string {
	switch s {
	case WithdrawalStatusNew:
		return "New"
	case WithdrawalStatusProcessed:
		return "Processed"
	case WithdrawalStatusCancelled:
		return "Cancelled"
	case WithdrawalStatusPending:
		return "Pending"
	case WithdrawalStatusWaitingForApprove:
		return "WaitingForApprove"
	default:
		return fmt.Sprintf("WithdrawalStatus(%d)", uint8(s))
	}
}

// Terminal reports whether no further status transition is allowed.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalStatusProcessed || s == WithdrawalStatusCancelled
}

// TokenKind selects how an asset is settled on the host chain: a mintable
// wrapped token, or a native token locked in a program vault.
type TokenKind uint8

const (
	TokenKindMint TokenKind = iota
	TokenKindVault
)

func (k TokenKind) String() string {
	if k == TokenKindVault {
		return "Vault"
	}
	return "Mint"
}
