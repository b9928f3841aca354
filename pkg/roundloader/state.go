package roundloader

import (
	"time"

	"github.com/scalarorg/bridge-core/pkg/codec"
	"github.com/scalarorg/bridge-core/pkg/encode"
	"github.com/scalarorg/bridge-core/pkg/types"
	"github.com/scalarorg/bridge-core/pkg/voting"
)

const (
	// MaxEventPayloadLen is the fixed payload window of a proposal. Writes
	// beyond it fail; the account is sized for the maximum possible payload
	// at creation time.
	MaxEventPayloadLen = 2048

	// PackedSettingsLen is the exact packed size of the Settings record.
	PackedSettingsLen = 1 + 1 + 4 + types.AddressLen + 4 + 8

	// PackedRelayRoundLen is the exact packed size of a RelayRound record.
	PackedRelayRoundLen = 1 + 1 + 4 + 8 + 4 + voting.MaxRelays*types.AddressLen

	// PackedProposalLen is the exact packed size of a Proposal record.
	PackedProposalLen = 1 + 1 + 1 + 3*types.AddressLen + 8 + 8 + 32 + 4 + 4 +
		4 + MaxEventPayloadLen + 4 + voting.MaxRelays
)

// Settings is the round-loader singleton: the current round pointer and the
// governance knobs consulted when proposals are finalized.
type Settings struct {
	IsInitialized      bool
	Kind               types.AccountKind
	CurrentRoundNumber uint32
	RoundSubmitter     types.Address
	MinRequiredVotes   uint32
	RoundTTL           int64 // seconds a round stays current before rotation is due
}

func (s *Settings) Pack(buf []byte) error {
	w := codec.NewWriter(buf)
	w.WriteBool(s.IsInitialized)
	w.WriteUint8(uint8(s.Kind))
	w.WriteUint32(s.CurrentRoundNumber)
	w.WriteAddress(s.RoundSubmitter)
	w.WriteUint32(s.MinRequiredVotes)
	w.WriteInt64(s.RoundTTL)
	return w.Err()
}

func UnpackSettings(buf []byte) (*Settings, error) {
	r := codec.NewReader(buf)
	s := &Settings{
		IsInitialized:      r.ReadBool(),
		Kind:               types.AccountKind(r.ReadUint8()),
		CurrentRoundNumber: r.ReadUint32(),
		RoundSubmitter:     r.ReadAddress(),
		MinRequiredVotes:   r.ReadUint32(),
		RoundTTL:           r.ReadInt64(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// RelayRound is one immutable quorum snapshot: the relays authorized to vote
// while the round is current. It is referenced, never mutated, by later
// votes until superseded.
type RelayRound struct {
	IsInitialized bool
	Kind          types.AccountKind
	RoundNumber   uint32
	RoundEnd      int64
	Relays        []types.Address
}

// Expired reports whether the round outlived its end timestamp.
func (r *RelayRound) Expired(now time.Time) bool {
	return now.Unix() > r.RoundEnd
}

func (r *RelayRound) Pack(buf []byte) error {
	w := codec.NewWriter(buf)
	w.WriteBool(r.IsInitialized)
	w.WriteUint8(uint8(r.Kind))
	w.WriteUint32(r.RoundNumber)
	w.WriteInt64(r.RoundEnd)
	if len(r.Relays) > voting.MaxRelays {
		return codec.ErrOverflow
	}
	w.WriteUint32(uint32(len(r.Relays)))
	for _, relay := range r.Relays {
		w.WriteAddress(relay)
	}
	for i := len(r.Relays); i < voting.MaxRelays; i++ {
		w.WriteAddress(types.ZeroAddress)
	}
	return w.Err()
}

func UnpackRelayRound(buf []byte) (*RelayRound, error) {
	r := codec.NewReader(buf)
	round := &RelayRound{
		IsInitialized: r.ReadBool(),
		Kind:          types.AccountKind(r.ReadUint8()),
		RoundNumber:   r.ReadUint32(),
		RoundEnd:      r.ReadInt64(),
	}
	count := r.ReadUint32()
	if count > voting.MaxRelays {
		return nil, codec.ErrInvalidData
	}
	round.Relays = make([]types.Address, count)
	for i := range round.Relays {
		round.Relays[i] = r.ReadAddress()
	}
	for i := int(count); i < voting.MaxRelays; i++ {
		r.ReadAddress()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return round, nil
}

// Proposal is the generic voting record. Its address binds the immutable
// creation-time tuple (author, settings, event timestamp, event transaction
// lt, event configuration); the payload content hash is captured at finalize
// and checked by voters and executors.
type Proposal struct {
	IsInitialized bool
	Kind          types.AccountKind
	IsExecuted    bool

	Author             types.Address
	Settings           types.Address
	EventTimestamp     int64
	EventTransactionLt uint64
	EventConfiguration types.Address
	PayloadHash        [32]byte

	RoundNumber   uint32 // quorum snapshot, set at finalize
	RequiredVotes uint32

	Payload []byte
	Signers []types.Vote // indexed 1:1 with the snapshot relay list
}

func (p *Proposal) Pack(buf []byte) error {
	w := codec.NewWriter(buf)
	w.WriteBool(p.IsInitialized)
	w.WriteUint8(uint8(p.Kind))
	w.WriteBool(p.IsExecuted)
	w.WriteAddress(p.Author)
	w.WriteAddress(p.Settings)
	w.WriteInt64(p.EventTimestamp)
	w.WriteUint64(p.EventTransactionLt)
	w.WriteAddress(p.EventConfiguration)
	w.WriteBytes(p.PayloadHash[:], 32)
	w.WriteUint32(p.RoundNumber)
	w.WriteUint32(p.RequiredVotes)
	w.WriteUint32(uint32(len(p.Payload)))
	w.WriteBytes(p.Payload, MaxEventPayloadLen)
	if len(p.Signers) > voting.MaxRelays {
		return codec.ErrOverflow
	}
	w.WriteUint32(uint32(len(p.Signers)))
	for _, v := range p.Signers {
		w.WriteUint8(uint8(v))
	}
	for i := len(p.Signers); i < voting.MaxRelays; i++ {
		w.WriteUint8(uint8(types.VoteNone))
	}
	return w.Err()
}

func UnpackProposal(buf []byte) (*Proposal, error) {
	r := codec.NewReader(buf)
	p := &Proposal{
		IsInitialized: r.ReadBool(),
		Kind:          types.AccountKind(r.ReadUint8()),
		IsExecuted:    r.ReadBool(),
		Author:        r.ReadAddress(),
		Settings:      r.ReadAddress(),
	}
	p.EventTimestamp = r.ReadInt64()
	p.EventTransactionLt = r.ReadUint64()
	p.EventConfiguration = r.ReadAddress()
	copy(p.PayloadHash[:], r.ReadBytes(32, 32))
	p.RoundNumber = r.ReadUint32()
	p.RequiredVotes = r.ReadUint32()
	payloadLen := r.ReadUint32()
	if payloadLen > MaxEventPayloadLen {
		return nil, codec.ErrInvalidData
	}
	p.Payload = r.ReadBytes(int(payloadLen), MaxEventPayloadLen)
	signerCount := r.ReadUint32()
	if signerCount > voting.MaxRelays {
		return nil, codec.ErrInvalidData
	}
	p.Signers = make([]types.Vote, signerCount)
	for i := range p.Signers {
		p.Signers[i] = types.Vote(r.ReadUint8())
	}
	for i := int(signerCount); i < voting.MaxRelays; i++ {
		r.ReadUint8()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// RoundRotationEvent is the proposal payload electing the next relay round.
type RoundRotationEvent struct {
	RoundNumber uint32
	RoundEnd    int64
	Relays      []types.Address
}

// PackedLen returns the packed size of the event for its relay count.
func (e *RoundRotationEvent) PackedLen() int {
	return 4 + 8 + 4 + len(e.Relays)*types.AddressLen
}

func (e *RoundRotationEvent) Pack() ([]byte, error) {
	if len(e.Relays) > voting.MaxRelays {
		return nil, codec.ErrOverflow
	}
	buf := make([]byte, e.PackedLen())
	w := codec.NewWriter(buf)
	w.WriteUint32(e.RoundNumber)
	w.WriteInt64(e.RoundEnd)
	w.WriteUint32(uint32(len(e.Relays)))
	for _, relay := range e.Relays {
		w.WriteAddress(relay)
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}

func UnpackRoundRotationEvent(buf []byte) (*RoundRotationEvent, error) {
	r := codec.NewReader(buf)
	e := &RoundRotationEvent{
		RoundNumber: r.ReadUint32(),
		RoundEnd:    r.ReadInt64(),
	}
	count := r.ReadUint32()
	if count > voting.MaxRelays {
		return nil, codec.ErrInvalidData
	}
	e.Relays = make([]types.Address, count)
	for i := range e.Relays {
		e.Relays[i] = r.ReadAddress()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return e, nil
}

// SettingsSeeds derives the round-loader settings singleton.
func SettingsSeeds() [][]byte {
	return [][]byte{[]byte("settings")}
}

// RelayRoundSeeds derives the record of one relay round.
func RelayRoundSeeds(roundNumber uint32) [][]byte {
	return [][]byte{[]byte("relay_round"), encode.Uint32LE(roundNumber)}
}

// ProposalSeeds derives a proposal from its immutable binding tuple.
func ProposalSeeds(author, settings types.Address, eventTimestamp int64, eventTransactionLt uint64, eventConfiguration types.Address) [][]byte {
	return [][]byte{
		[]byte("proposal"),
		author.Bytes(),
		settings.Bytes(),
		encode.Int64LE(eventTimestamp),
		encode.Uint64LE(eventTransactionLt),
		eventConfiguration.Bytes(),
	}
}
