package tokenproxy

import (
	"github.com/scalarorg/bridge-core/pkg/codec"
	"github.com/scalarorg/bridge-core/pkg/encode"
	"github.com/scalarorg/bridge-core/pkg/types"
	"github.com/scalarorg/bridge-core/pkg/voting"
)

const (
	// MaxNameLen bounds the asset symbol used as a derivation seed.
	MaxNameLen = 32

	// WithdrawalPeriod is the rolling daily-limit window in seconds.
	WithdrawalPeriod int64 = 86400

	// PackedSettingsLen is the exact packed size of a per-asset Settings record.
	PackedSettingsLen = 1 + 1 + 1 + 1 + 3*types.AddressLen + 1 + 1 + 5*8 + 4 + MaxNameLen

	// PackedDepositLen is the exact packed size of a Deposit record.
	PackedDepositLen = 1 + 1 + types.AddressLen + 8 + 1 + 32 + 16

	// PackedWithdrawalLen is the exact packed size of a Withdrawal record.
	PackedWithdrawalLen = 1 + 1 + 3*types.AddressLen + 8 + 8 + 1 + 32 + 8 +
		types.AddressLen + 1 + 8 + 4 + 4 + 4 + voting.MaxRelays
)

// Settings is the per-asset configuration: settlement kind, limits and the
// emergency kill-switch.
type Settings struct {
	IsInitialized bool
	Kind          types.AccountKind
	TokenKind     types.TokenKind
	Emergency     bool

	Admin types.Address
	Mint  types.Address
	Vault types.Address // zero for mint-settled assets

	ForeignDecimals uint8 // event-side precision
	HostDecimals    uint8 // host-ledger precision

	DepositLimit          uint64
	WithdrawalLimit       uint64
	WithdrawalDailyLimit  uint64
	WithdrawalDailyAmount uint64
	WithdrawalEpochEnd    int64

	Name string
}

func (s *Settings) Pack(buf []byte) error {
	if len(s.Name) > MaxNameLen {
		return codec.ErrOverflow
	}
	w := codec.NewWriter(buf)
	w.WriteBool(s.IsInitialized)
	w.WriteUint8(uint8(s.Kind))
	w.WriteUint8(uint8(s.TokenKind))
	w.WriteBool(s.Emergency)
	w.WriteAddress(s.Admin)
	w.WriteAddress(s.Mint)
	w.WriteAddress(s.Vault)
	w.WriteUint8(s.ForeignDecimals)
	w.WriteUint8(s.HostDecimals)
	w.WriteUint64(s.DepositLimit)
	w.WriteUint64(s.WithdrawalLimit)
	w.WriteUint64(s.WithdrawalDailyLimit)
	w.WriteUint64(s.WithdrawalDailyAmount)
	w.WriteInt64(s.WithdrawalEpochEnd)
	w.WriteUint32(uint32(len(s.Name)))
	w.WriteBytes([]byte(s.Name), MaxNameLen)
	return w.Err()
}

func UnpackSettings(buf []byte) (*Settings, error) {
	r := codec.NewReader(buf)
	s := &Settings{
		IsInitialized: r.ReadBool(),
		Kind:          types.AccountKind(r.ReadUint8()),
		TokenKind:     types.TokenKind(r.ReadUint8()),
		Emergency:     r.ReadBool(),
		Admin:         r.ReadAddress(),
		Mint:          r.ReadAddress(),
		Vault:         r.ReadAddress(),
	}
	s.ForeignDecimals = r.ReadUint8()
	s.HostDecimals = r.ReadUint8()
	s.DepositLimit = r.ReadUint64()
	s.WithdrawalLimit = r.ReadUint64()
	s.WithdrawalDailyLimit = r.ReadUint64()
	s.WithdrawalDailyAmount = r.ReadUint64()
	s.WithdrawalEpochEnd = r.ReadInt64()
	nameLen := r.ReadUint32()
	if nameLen > MaxNameLen {
		return nil, codec.ErrInvalidData
	}
	s.Name = string(r.ReadBytes(int(nameLen), MaxNameLen))
	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// DepositEvent is what the relays observe and forward to the foreign chain.
type DepositEvent struct {
	Sender    types.Address
	Amount    uint64 // rescaled to foreign-chain decimals
	Recipient types.ForeignAddress
}

// Deposit is the immutable record of one inbound transfer, content-addressed
// by a caller-chosen 128-bit seed.
type Deposit struct {
	IsInitialized bool
	Kind          types.AccountKind
	Event         DepositEvent
	SeedLo        uint64
	SeedHi        uint64
}

func (d *Deposit) Pack(buf []byte) error {
	w := codec.NewWriter(buf)
	w.WriteBool(d.IsInitialized)
	w.WriteUint8(uint8(d.Kind))
	w.WriteAddress(d.Event.Sender)
	w.WriteUint64(d.Event.Amount)
	w.WriteInt8(d.Event.Recipient.Workchain)
	w.WriteBytes(d.Event.Recipient.Address[:], 32)
	w.WriteUint64(d.SeedLo)
	w.WriteUint64(d.SeedHi)
	return w.Err()
}

func UnpackDeposit(buf []byte) (*Deposit, error) {
	r := codec.NewReader(buf)
	d := &Deposit{
		IsInitialized: r.ReadBool(),
		Kind:          types.AccountKind(r.ReadUint8()),
	}
	d.Event.Sender = r.ReadAddress()
	d.Event.Amount = r.ReadUint64()
	d.Event.Recipient.Workchain = r.ReadInt8()
	copy(d.Event.Recipient.Address[:], r.ReadBytes(32, 32))
	d.SeedLo = r.ReadUint64()
	d.SeedHi = r.ReadUint64()
	if err := r.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// WithdrawalEvent is the foreign-chain event a withdrawal request settles.
type WithdrawalEvent struct {
	Sender    types.ForeignAddress
	Amount    uint64 // full precision, foreign-chain decimals
	Recipient types.Address
}

// Withdrawal is a proposal specialization: the consensus state plus the
// settlement status sub-machine and the fill bounty.
type Withdrawal struct {
	IsInitialized bool
	Kind          types.AccountKind

	Author             types.Address
	Settings           types.Address
	EventTimestamp     int64
	EventTransactionLt uint64
	EventConfiguration types.Address

	Event WithdrawalEvent

	Status types.WithdrawalStatus
	Bounty uint64

	RoundNumber   uint32
	RequiredVotes uint32
	Signers       []types.Vote
}

func (wd *Withdrawal) Pack(buf []byte) error {
	w := codec.NewWriter(buf)
	w.WriteBool(wd.IsInitialized)
	w.WriteUint8(uint8(wd.Kind))
	w.WriteAddress(wd.Author)
	w.WriteAddress(wd.Settings)
	w.WriteInt64(wd.EventTimestamp)
	w.WriteUint64(wd.EventTransactionLt)
	w.WriteAddress(wd.EventConfiguration)
	w.WriteInt8(wd.Event.Sender.Workchain)
	w.WriteBytes(wd.Event.Sender.Address[:], 32)
	w.WriteUint64(wd.Event.Amount)
	w.WriteAddress(wd.Event.Recipient)
	w.WriteUint8(uint8(wd.Status))
	w.WriteUint64(wd.Bounty)
	w.WriteUint32(wd.RoundNumber)
	w.WriteUint32(wd.RequiredVotes)
	if len(wd.Signers) > voting.MaxRelays {
		return codec.ErrOverflow
	}
	w.WriteUint32(uint32(len(wd.Signers)))
	for _, v := range wd.Signers {
		w.WriteUint8(uint8(v))
	}
	for i := len(wd.Signers); i < voting.MaxRelays; i++ {
		w.WriteUint8(uint8(types.VoteNone))
	}
	return w.Err()
}

func UnpackWithdrawal(buf []byte) (*Withdrawal, error) {
	r := codec.NewReader(buf)
	wd := &Withdrawal{
		IsInitialized: r.ReadBool(),
		Kind:          types.AccountKind(r.ReadUint8()),
		Author:        r.ReadAddress(),
		Settings:      r.ReadAddress(),
	}
	wd.EventTimestamp = r.ReadInt64()
	wd.EventTransactionLt = r.ReadUint64()
	wd.EventConfiguration = r.ReadAddress()
	wd.Event.Sender.Workchain = r.ReadInt8()
	copy(wd.Event.Sender.Address[:], r.ReadBytes(32, 32))
	wd.Event.Amount = r.ReadUint64()
	wd.Event.Recipient = r.ReadAddress()
	wd.Status = types.WithdrawalStatus(r.ReadUint8())
	wd.Bounty = r.ReadUint64()
	wd.RoundNumber = r.ReadUint32()
	wd.RequiredVotes = r.ReadUint32()
	signerCount := r.ReadUint32()
	if signerCount > voting.MaxRelays {
		return nil, codec.ErrInvalidData
	}
	wd.Signers = make([]types.Vote, signerCount)
	for i := range wd.Signers {
		wd.Signers[i] = types.Vote(r.ReadUint8())
	}
	for i := int(signerCount); i < voting.MaxRelays; i++ {
		r.ReadUint8()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return wd, nil
}

// SettingsSeeds derives the per-asset settings record.
func SettingsSeeds(name string) [][]byte {
	return [][]byte{[]byte("settings"), []byte(name)}
}

// MintSeeds derives the wrapped mint of a mint-settled asset.
func MintSeeds(name string) [][]byte {
	return [][]byte{[]byte("mint"), []byte(name)}
}

// VaultSeeds derives the vault token account of a vault-settled asset.
func VaultSeeds(name string) [][]byte {
	return [][]byte{[]byte("vault"), []byte(name)}
}

// AuthoritySeeds derives the program's own settlement authority.
func AuthoritySeeds() [][]byte {
	return [][]byte{[]byte("authority")}
}

// DepositSeeds derives a deposit record from its caller-chosen seed.
func DepositSeeds(settings types.Address, seedLo, seedHi uint64) [][]byte {
	return [][]byte{[]byte("deposit"), settings.Bytes(), encode.Uint128LE(seedLo, seedHi)}
}

// WithdrawalSeeds derives a withdrawal from its immutable binding tuple.
func WithdrawalSeeds(author, settings types.Address, eventTimestamp int64, eventTransactionLt uint64, eventConfiguration types.Address) [][]byte {
	return [][]byte{
		[]byte("withdrawal"),
		author.Bytes(),
		settings.Bytes(),
		encode.Int64LE(eventTimestamp),
		encode.Uint64LE(eventTransactionLt),
		eventConfiguration.Bytes(),
	}
}
