// Package roundloader rotates the relay quorum. It owns the Settings
// singleton, the immutable RelayRound registry and the proposal voting state
// machine used to elect each new round.
package roundloader

import (
	"crypto/sha256"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/scalarorg/bridge-core/pkg/pda"
	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/types"
	"github.com/scalarorg/bridge-core/pkg/voting"
)

// Program executes round-loader operations over explicitly passed accounts.
// One instruction runs to completion per invocation; the ledger's per-account
// write locks serialize racing transactions.
type Program struct {
	ID               types.Address
	UpgradeAuthority types.Address
	Clock            program.Clock
}

func New(id, upgradeAuthority types.Address, clock program.Clock) *Program {
	return &Program{ID: id, UpgradeAuthority: upgradeAuthority, Clock: clock}
}

// GenesisParams seeds the very first relay round.
type GenesisParams struct {
	RoundNumber      uint32
	RoundEnd         int64
	RoundSubmitter   types.Address
	MinRequiredVotes uint32
	RoundTTL         int64
	Relays           []types.Address
}

// InitializeGenesis creates the Settings singleton and RelayRound(round 0).
// Callable once, and only by the program upgrade authority.
func (p *Program) InitializeGenesis(settingsAcc, roundAcc *program.Account, params GenesisParams, signers program.Signers) error {
	if err := signers.RequireSigner(p.UpgradeAuthority); err != nil {
		return err
	}
	if err := program.RequireOwner(settingsAcc, p.ID); err != nil {
		return err
	}
	if err := program.RequireOwner(roundAcc, p.ID); err != nil {
		return err
	}
	if _, err := pda.Validate(SettingsSeeds(), p.ID, settingsAcc.Address); err != nil {
		return err
	}
	if _, err := pda.Validate(RelayRoundSeeds(params.RoundNumber), p.ID, roundAcc.Address); err != nil {
		return err
	}
	if len(params.Relays) == 0 || len(params.Relays) > voting.MaxRelays {
		return program.ErrInvalidArgument
	}
	if s, err := UnpackSettings(settingsAcc.Data); err == nil && s.IsInitialized {
		return program.ErrAlreadyInitialized
	}

	settings := &Settings{
		IsInitialized:      true,
		Kind:               types.AccountKindSettings,
		CurrentRoundNumber: params.RoundNumber,
		RoundSubmitter:     params.RoundSubmitter,
		MinRequiredVotes:   params.MinRequiredVotes,
		RoundTTL:           params.RoundTTL,
	}
	if err := settings.Pack(settingsAcc.Data); err != nil {
		return err
	}
	round := &RelayRound{
		IsInitialized: true,
		Kind:          types.AccountKindRelayRound,
		RoundNumber:   params.RoundNumber,
		RoundEnd:      p.boundedRoundEnd(params.RoundEnd, params.RoundTTL),
		Relays:        params.Relays,
	}
	if err := round.Pack(roundAcc.Data); err != nil {
		return err
	}
	log.Info().
		Uint32("roundNumber", params.RoundNumber).
		Int("relays", len(params.Relays)).
		Msg("[RoundLoader] genesis initialized")
	return nil
}

// boundedRoundEnd caps a requested round end at the TTL window from now.
// A zero request takes the whole window.
func (p *Program) boundedRoundEnd(requested, ttl int64) int64 {
	latest := p.Clock.Now().Unix() + ttl
	if requested == 0 || requested > latest {
		return latest
	}
	return requested
}

// SettingsPatch applies only the provided fields; nil fields stay unchanged.
type SettingsPatch struct {
	RoundSubmitter   *types.Address
	MinRequiredVotes *uint32
	RoundTTL         *int64
}

// UpdateSettings applies a sparse governance patch, gated on the current
// round submitter's signature.
func (p *Program) UpdateSettings(settingsAcc *program.Account, patch SettingsPatch, signers program.Signers) error {
	if err := program.RequireOwner(settingsAcc, p.ID); err != nil {
		return err
	}
	settings, err := UnpackSettings(settingsAcc.Data)
	if err != nil {
		return err
	}
	if !settings.IsInitialized {
		return program.ErrNotInitialized
	}
	if err := signers.RequireSigner(settings.RoundSubmitter); err != nil {
		return err
	}
	if patch.RoundSubmitter != nil {
		settings.RoundSubmitter = *patch.RoundSubmitter
	}
	if patch.MinRequiredVotes != nil {
		settings.MinRequiredVotes = *patch.MinRequiredVotes
	}
	if patch.RoundTTL != nil {
		settings.RoundTTL = *patch.RoundTTL
	}
	return settings.Pack(settingsAcc.Data)
}

// RelayRoundParams describes a manually submitted round.
type RelayRoundParams struct {
	RoundNumber uint32
	RoundEnd    int64
	Relays      []types.Address
}

// CreateRelayRound is the bootstrap/manual rotation path: only the designated
// round submitter may call it, and round numbers never go backwards.
func (p *Program) CreateRelayRound(settingsAcc, roundAcc *program.Account, params RelayRoundParams, signers program.Signers) error {
	if err := program.RequireOwner(settingsAcc, p.ID); err != nil {
		return err
	}
	if err := program.RequireOwner(roundAcc, p.ID); err != nil {
		return err
	}
	settings, err := UnpackSettings(settingsAcc.Data)
	if err != nil {
		return err
	}
	if !settings.IsInitialized {
		return program.ErrNotInitialized
	}
	if err := signers.RequireSigner(settings.RoundSubmitter); err != nil {
		return err
	}
	if params.RoundNumber < settings.CurrentRoundNumber {
		return program.ErrInvalidRelayRound
	}
	if len(params.Relays) == 0 || len(params.Relays) > voting.MaxRelays {
		return program.ErrInvalidArgument
	}
	if _, err := pda.Validate(RelayRoundSeeds(params.RoundNumber), p.ID, roundAcc.Address); err != nil {
		return err
	}
	if r, err := UnpackRelayRound(roundAcc.Data); err == nil && r.IsInitialized {
		return program.ErrAlreadyInitialized
	}

	round := &RelayRound{
		IsInitialized: true,
		Kind:          types.AccountKindRelayRound,
		RoundNumber:   params.RoundNumber,
		RoundEnd:      p.boundedRoundEnd(params.RoundEnd, settings.RoundTTL),
		Relays:        params.Relays,
	}
	if err := round.Pack(roundAcc.Data); err != nil {
		return err
	}
	settings.CurrentRoundNumber = params.RoundNumber
	if err := settings.Pack(settingsAcc.Data); err != nil {
		return err
	}
	log.Info().
		Uint32("roundNumber", params.RoundNumber).
		Int("relays", len(params.Relays)).
		Msg("[RoundLoader] relay round created")
	return nil
}

// ProposalParams is the immutable binding tuple fixed at creation.
type ProposalParams struct {
	Author             types.Address
	Settings           types.Address
	EventTimestamp     int64
	EventTransactionLt uint64
	EventConfiguration types.Address
}

// CreateProposal allocates an empty, pre-sized proposal record at the address
// derived from the binding tuple. The payload is written afterwards, before
// finalize closes the write window.
func (p *Program) CreateProposal(proposalAcc *program.Account, params ProposalParams, signers program.Signers) error {
	if err := signers.RequireSigner(params.Author); err != nil {
		return err
	}
	if err := program.RequireOwner(proposalAcc, p.ID); err != nil {
		return err
	}
	seeds := ProposalSeeds(params.Author, params.Settings, params.EventTimestamp, params.EventTransactionLt, params.EventConfiguration)
	if _, err := pda.Validate(seeds, p.ID, proposalAcc.Address); err != nil {
		return err
	}
	if len(proposalAcc.Data) < PackedProposalLen {
		return program.ErrAccountDataTooSmall
	}
	if existing, err := UnpackProposal(proposalAcc.Data); err == nil && existing.Kind == types.AccountKindProposal {
		return program.ErrAlreadyInitialized
	}

	proposal := &Proposal{
		Kind:               types.AccountKindProposal,
		Author:             params.Author,
		Settings:           params.Settings,
		EventTimestamp:     params.EventTimestamp,
		EventTransactionLt: params.EventTransactionLt,
		EventConfiguration: params.EventConfiguration,
	}
	return proposal.Pack(proposalAcc.Data)
}

// WriteProposal appends payload bytes at a caller-chosen offset. The write
// window closes permanently once the proposal is finalized.
func (p *Program) WriteProposal(proposalAcc *program.Account, offset uint32, data []byte, signers program.Signers) error {
	if err := program.RequireOwner(proposalAcc, p.ID); err != nil {
		return err
	}
	proposal, err := UnpackProposal(proposalAcc.Data)
	if err != nil {
		return err
	}
	if proposal.Kind != types.AccountKindProposal {
		return program.ErrInvalidArgument
	}
	if proposal.IsInitialized {
		return program.ErrProposalAlreadyFinalized
	}
	if err := signers.RequireSigner(proposal.Author); err != nil {
		return err
	}
	end := uint64(offset) + uint64(len(data))
	if end > MaxEventPayloadLen {
		return program.ErrAccountDataTooSmall
	}
	if uint64(len(proposal.Payload)) < end {
		grown := make([]byte, end)
		copy(grown, proposal.Payload)
		proposal.Payload = grown
	}
	copy(proposal.Payload[offset:end], data)
	return proposal.Pack(proposalAcc.Data)
}

// FinalizeProposal closes the payload window, captures the payload hash,
// snapshots the current relay round and escrows the reparation bond from the
// funder. After this point only votes and execution can touch the record.
func (p *Program) FinalizeProposal(proposalAcc, settingsAcc, roundAcc, funder *program.Account, signers program.Signers) error {
	if err := program.RequireOwner(proposalAcc, p.ID); err != nil {
		return err
	}
	if err := program.RequireOwner(settingsAcc, p.ID); err != nil {
		return err
	}
	if err := program.RequireOwner(roundAcc, p.ID); err != nil {
		return err
	}
	proposal, err := UnpackProposal(proposalAcc.Data)
	if err != nil {
		return err
	}
	if proposal.Kind != types.AccountKindProposal {
		return program.ErrInvalidArgument
	}
	if proposal.IsInitialized {
		return program.ErrProposalAlreadyFinalized
	}
	if err := signers.RequireSigner(proposal.Author); err != nil {
		return err
	}
	settings, err := UnpackSettings(settingsAcc.Data)
	if err != nil {
		return err
	}
	if !settings.IsInitialized {
		return program.ErrNotInitialized
	}
	round, err := UnpackRelayRound(roundAcc.Data)
	if err != nil {
		return err
	}
	if !round.IsInitialized || round.RoundNumber != settings.CurrentRoundNumber {
		return program.ErrInvalidRelayRound
	}
	if round.Expired(p.Clock.Now()) {
		return program.ErrInvalidRelayRound
	}
	if _, err := pda.Validate(RelayRoundSeeds(round.RoundNumber), p.ID, roundAcc.Address); err != nil {
		return err
	}

	// A rotation proposal may only elect a round newer than the current one.
	event, err := UnpackRoundRotationEvent(proposal.Payload)
	if err != nil {
		return fmt.Errorf("malformed rotation payload: %w", err)
	}
	if event.RoundNumber <= settings.CurrentRoundNumber {
		return program.ErrInvalidRelayRound
	}

	relayCount := len(round.Relays)
	bond := voting.RelayReparation * uint64(relayCount)
	if err := program.TransferLamports(funder, proposalAcc, bond); err != nil {
		return err
	}

	proposal.PayloadHash = sha256.Sum256(proposal.Payload)
	proposal.RoundNumber = round.RoundNumber
	proposal.RequiredVotes = voting.RequiredVotes(relayCount, settings.MinRequiredVotes)
	proposal.Signers = voting.NewSlots(relayCount)
	proposal.IsInitialized = true
	if err := proposal.Pack(proposalAcc.Data); err != nil {
		return err
	}
	log.Info().
		Str("proposal", proposalAcc.Address.String()).
		Uint32("roundNumber", proposal.RoundNumber).
		Uint32("requiredVotes", proposal.RequiredVotes).
		Msg("[RoundLoader] proposal finalized")
	return nil
}

// Vote casts one relay's vote. The relay must belong to the proposal's
// snapshot round; a relay's first vote refunds its reparation bond, replays
// change nothing and succeed.
func (p *Program) Vote(proposalAcc, roundAcc, relayAcc *program.Account, vote types.Vote, signers program.Signers) error {
	if err := program.RequireOwner(proposalAcc, p.ID); err != nil {
		return err
	}
	if err := program.RequireOwner(roundAcc, p.ID); err != nil {
		return err
	}
	if err := signers.RequireSigner(relayAcc.Address); err != nil {
		return err
	}
	proposal, err := UnpackProposal(proposalAcc.Data)
	if err != nil {
		return err
	}
	if !proposal.IsInitialized {
		return program.ErrNotInitialized
	}
	round, err := UnpackRelayRound(roundAcc.Data)
	if err != nil {
		return err
	}
	if !round.IsInitialized || round.RoundNumber != proposal.RoundNumber {
		return program.ErrInvalidRelayRound
	}
	if _, err := pda.Validate(RelayRoundSeeds(round.RoundNumber), p.ID, roundAcc.Address); err != nil {
		return err
	}
	index, err := voting.RelayIndex(round.Relays, relayAcc.Address)
	if err != nil {
		return err
	}
	applied, err := voting.Cast(proposal.Signers, index, vote)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	if err := program.TransferLamports(proposalAcc, relayAcc, voting.RelayReparation); err != nil {
		return err
	}
	return proposal.Pack(proposalAcc.Data)
}

// ExecuteProposal performs the rotation exactly once after quorum. Calls
// before quorum or after execution are no-ops.
func (p *Program) ExecuteProposal(proposalAcc, settingsAcc, newRoundAcc *program.Account) error {
	if err := program.RequireOwner(proposalAcc, p.ID); err != nil {
		return err
	}
	if err := program.RequireOwner(settingsAcc, p.ID); err != nil {
		return err
	}
	if err := program.RequireOwner(newRoundAcc, p.ID); err != nil {
		return err
	}
	proposal, err := UnpackProposal(proposalAcc.Data)
	if err != nil {
		return err
	}
	if !proposal.IsInitialized {
		return program.ErrNotInitialized
	}
	if proposal.IsExecuted {
		return nil
	}
	if !voting.QuorumReached(proposal.Signers, proposal.RequiredVotes) {
		return nil
	}
	settings, err := UnpackSettings(settingsAcc.Data)
	if err != nil {
		return err
	}
	event, err := UnpackRoundRotationEvent(proposal.Payload)
	if err != nil {
		return fmt.Errorf("malformed rotation payload: %w", err)
	}
	if sha256.Sum256(proposal.Payload) != proposal.PayloadHash {
		return program.ErrInvalidArgument
	}
	if event.RoundNumber <= settings.CurrentRoundNumber {
		return program.ErrInvalidRelayRound
	}
	if _, err := pda.Validate(RelayRoundSeeds(event.RoundNumber), p.ID, newRoundAcc.Address); err != nil {
		return err
	}
	if r, err := UnpackRelayRound(newRoundAcc.Data); err == nil && r.IsInitialized {
		return program.ErrAlreadyInitialized
	}

	round := &RelayRound{
		IsInitialized: true,
		Kind:          types.AccountKindRelayRound,
		RoundNumber:   event.RoundNumber,
		RoundEnd:      p.boundedRoundEnd(event.RoundEnd, settings.RoundTTL),
		Relays:        event.Relays,
	}
	if err := round.Pack(newRoundAcc.Data); err != nil {
		return err
	}
	settings.CurrentRoundNumber = event.RoundNumber
	if err := settings.Pack(settingsAcc.Data); err != nil {
		return err
	}
	proposal.IsExecuted = true
	if err := proposal.Pack(proposalAcc.Data); err != nil {
		return err
	}
	log.Info().
		Str("proposal", proposalAcc.Address.String()).
		Uint32("roundNumber", event.RoundNumber).
		Msg("[RoundLoader] proposal executed, round rotated")
	return nil
}
