package tokenproxy

import (
	"github.com/rs/zerolog/log"
	"github.com/scalarorg/bridge-core/pkg/pda"
	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/roundloader"
	"github.com/scalarorg/bridge-core/pkg/token"
	"github.com/scalarorg/bridge-core/pkg/types"
	"github.com/scalarorg/bridge-core/pkg/voting"
)

// WithdrawRequestParams carries the foreign-chain event a withdrawal settles
// plus the immutable tuple its address derives from.
type WithdrawRequestParams struct {
	Author             types.Address
	EventTimestamp     int64
	EventTransactionLt uint64
	EventConfiguration types.Address

	Sender    types.ForeignAddress
	Amount    uint64 // foreign-chain decimals, full precision
	Recipient types.Address
}

// WithdrawRequest creates a finalized withdrawal record bound to the current
// relay round: the payload is fixed up front, so unlike a round-rotation
// proposal there is no separate write/finalize phase. The funder escrows one
// reparation bond per relay in the snapshot round.
func (p *Program) WithdrawRequest(withdrawalAcc, settingsAcc, roundAcc, funder *program.Account, params WithdrawRequestParams, signers program.Signers) error {
	if err := signers.RequireSigner(params.Author); err != nil {
		return err
	}
	if err := program.RequireOwner(withdrawalAcc, p.ID); err != nil {
		return err
	}
	settings, err := p.loadSettings(settingsAcc)
	if err != nil {
		return err
	}
	if settings.Emergency {
		return program.ErrEmergencyEnabled
	}
	round, err := p.loadRelayRound(roundAcc, nil)
	if err != nil {
		return err
	}
	if round.Expired(p.Clock.Now()) {
		return program.ErrInvalidRelayRound
	}
	seeds := WithdrawalSeeds(params.Author, settingsAcc.Address, params.EventTimestamp, params.EventTransactionLt, params.EventConfiguration)
	if _, err := pda.Validate(seeds, p.ID, withdrawalAcc.Address); err != nil {
		return err
	}
	if len(withdrawalAcc.Data) < PackedWithdrawalLen {
		return program.ErrAccountDataTooSmall
	}
	if existing, err := UnpackWithdrawal(withdrawalAcc.Data); err == nil && existing.Kind == types.AccountKindProposal {
		return program.ErrAlreadyInitialized
	}

	relayCount := len(round.Relays)
	bond := voting.RelayReparation * uint64(relayCount)
	if err := program.TransferLamports(funder, withdrawalAcc, bond); err != nil {
		return err
	}

	wd := &Withdrawal{
		IsInitialized:      true,
		Kind:               types.AccountKindProposal,
		Author:             params.Author,
		Settings:           settingsAcc.Address,
		EventTimestamp:     params.EventTimestamp,
		EventTransactionLt: params.EventTransactionLt,
		EventConfiguration: params.EventConfiguration,
		Event: WithdrawalEvent{
			Sender:    params.Sender,
			Amount:    params.Amount,
			Recipient: params.Recipient,
		},
		Status:        types.WithdrawalStatusNew,
		RoundNumber:   round.RoundNumber,
		RequiredVotes: voting.RequiredVotes(relayCount, 0),
		Signers:       voting.NewSlots(relayCount),
	}
	if err := wd.Pack(withdrawalAcc.Data); err != nil {
		return err
	}
	log.Info().
		Str("withdrawal", withdrawalAcc.Address.String()).
		Uint32("roundNumber", wd.RoundNumber).
		Uint32("requiredVotes", wd.RequiredVotes).
		Uint64("amount", params.Amount).
		Msg("[TokenProxy] withdrawal requested")
	return nil
}

// VoteForWithdrawRequest casts one relay's vote on a withdrawal. First-wins
// slots: a relay's first vote refunds its reparation bond, replays change
// nothing and succeed.
func (p *Program) VoteForWithdrawRequest(withdrawalAcc, roundAcc, relayAcc *program.Account, vote types.Vote, signers program.Signers) error {
	if err := program.RequireOwner(withdrawalAcc, p.ID); err != nil {
		return err
	}
	if err := signers.RequireSigner(relayAcc.Address); err != nil {
		return err
	}
	wd, err := p.loadWithdrawal(withdrawalAcc)
	if err != nil {
		return err
	}
	round, err := p.loadRelayRound(roundAcc, &wd.RoundNumber)
	if err != nil {
		return err
	}
	index, err := voting.RelayIndex(round.Relays, relayAcc.Address)
	if err != nil {
		return err
	}
	applied, err := voting.Cast(wd.Signers, index, vote)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	if err := program.TransferLamports(withdrawalAcc, relayAcc, voting.RelayReparation); err != nil {
		return err
	}
	return wd.Pack(withdrawalAcc.Data)
}

// WithdrawEver settles a quorum-approved withdrawal of a mint-settled asset
// by minting to the recipient. Calls before quorum, or after the status has
// left New, are no-ops. Over-limit withdrawals park at WaitingForApprove.
func (p *Program) WithdrawEver(withdrawalAcc, settingsAcc, mintAcc, recipientAcc *program.Account) error {
	return p.withdraw(withdrawalAcc, settingsAcc, mintAcc, recipientAcc, types.TokenKindMint)
}

// WithdrawSol settles a quorum-approved withdrawal of a vault-settled asset
// out of the vault. A vault too short to pay parks the withdrawal at Pending
// for a later fill.
func (p *Program) WithdrawSol(withdrawalAcc, settingsAcc, vaultAcc, recipientAcc *program.Account) error {
	return p.withdraw(withdrawalAcc, settingsAcc, vaultAcc, recipientAcc, types.TokenKindVault)
}

func (p *Program) withdraw(withdrawalAcc, settingsAcc, tokenAcc, recipientAcc *program.Account, kind types.TokenKind) error {
	wd, settings, err := p.loadWithdrawalPair(withdrawalAcc, settingsAcc, kind)
	if err != nil {
		return err
	}
	if wd.Status != types.WithdrawalStatusNew {
		return nil
	}
	if !voting.QuorumReached(wd.Signers, wd.RequiredVotes) {
		return nil
	}
	hostAmount, err := WithdrawalAmount(wd.Event.Amount, settings.HostDecimals, settings.ForeignDecimals)
	if err != nil {
		return err
	}

	p.rollEpoch(settings)
	if settings.WithdrawalDailyAmount+hostAmount < settings.WithdrawalDailyAmount {
		return program.ErrOverflow
	}
	settings.WithdrawalDailyAmount += hostAmount
	if hostAmount > settings.WithdrawalLimit || settings.WithdrawalDailyAmount > settings.WithdrawalDailyLimit {
		settings.WithdrawalDailyAmount -= hostAmount
		wd.Status = types.WithdrawalStatusWaitingForApprove
		if err := settings.Pack(settingsAcc.Data); err != nil {
			return err
		}
		if err := wd.Pack(withdrawalAcc.Data); err != nil {
			return err
		}
		log.Warn().
			Str("withdrawal", withdrawalAcc.Address.String()).
			Uint64("amount", hostAmount).
			Msg("[TokenProxy] withdrawal exceeds limit, waiting for approve")
		return nil
	}

	status, err := p.settle(wd, settings, tokenAcc, recipientAcc, hostAmount, kind)
	if err != nil {
		return err
	}
	wd.Status = status
	if err := settings.Pack(settingsAcc.Data); err != nil {
		return err
	}
	if err := wd.Pack(withdrawalAcc.Data); err != nil {
		return err
	}
	log.Info().
		Str("withdrawal", withdrawalAcc.Address.String()).
		Uint64("amount", hostAmount).
		Str("status", status.String()).
		Msg("[TokenProxy] withdrawal settled")
	return nil
}

// ApproveWithdrawEver releases a mint-settled withdrawal parked at
// WaitingForApprove, bypassing the limits. Admin only.
func (p *Program) ApproveWithdrawEver(withdrawalAcc, settingsAcc, mintAcc, recipientAcc *program.Account, signers program.Signers) error {
	return p.approve(withdrawalAcc, settingsAcc, mintAcc, recipientAcc, types.TokenKindMint, signers)
}

// ApproveWithdrawSol releases a vault-settled withdrawal parked at
// WaitingForApprove, bypassing the limits. Admin only.
func (p *Program) ApproveWithdrawSol(withdrawalAcc, settingsAcc, vaultAcc, recipientAcc *program.Account, signers program.Signers) error {
	return p.approve(withdrawalAcc, settingsAcc, vaultAcc, recipientAcc, types.TokenKindVault, signers)
}

func (p *Program) approve(withdrawalAcc, settingsAcc, tokenAcc, recipientAcc *program.Account, kind types.TokenKind, signers program.Signers) error {
	wd, settings, err := p.loadWithdrawalPair(withdrawalAcc, settingsAcc, kind)
	if err != nil {
		return err
	}
	if err := signers.RequireSigner(settings.Admin); err != nil {
		return err
	}
	if wd.Status != types.WithdrawalStatusWaitingForApprove {
		return program.ErrInvalidWithdrawalStatus
	}
	hostAmount, err := WithdrawalAmount(wd.Event.Amount, settings.HostDecimals, settings.ForeignDecimals)
	if err != nil {
		return err
	}
	status, err := p.settle(wd, settings, tokenAcc, recipientAcc, hostAmount, kind)
	if err != nil {
		return err
	}
	wd.Status = status
	if err := wd.Pack(withdrawalAcc.Data); err != nil {
		return err
	}
	log.Info().
		Str("withdrawal", withdrawalAcc.Address.String()).
		Str("status", status.String()).
		Msg("[TokenProxy] withdrawal approved")
	return nil
}

// settle moves the funds. Mint assets are minted to the recipient; vault
// assets are paid from the vault, or parked at Pending when the vault cannot
// cover the amount.
func (p *Program) settle(wd *Withdrawal, settings *Settings, tokenAcc, recipientAcc *program.Account, hostAmount uint64, kind types.TokenKind) (types.WithdrawalStatus, error) {
	if recipientAcc.Address != wd.Event.Recipient {
		return 0, program.ErrInvalidArgument
	}
	switch kind {
	case types.TokenKindMint:
		if tokenAcc.Address != settings.Mint {
			return 0, program.ErrInvalidArgument
		}
		if err := p.Token.MintTo(tokenAcc, recipientAcc, hostAmount, program.NewSigners(p.authority)); err != nil {
			return 0, err
		}
		return types.WithdrawalStatusProcessed, nil
	case types.TokenKindVault:
		if tokenAcc.Address != settings.Vault {
			return 0, program.ErrInvalidArgument
		}
		vault, err := token.UnpackAccount(tokenAcc.Data)
		if err != nil {
			return 0, err
		}
		if vault.Amount < hostAmount {
			return types.WithdrawalStatusPending, nil
		}
		if err := p.Token.Transfer(tokenAcc, recipientAcc, hostAmount, program.NewSigners(p.authority)); err != nil {
			return 0, err
		}
		return types.WithdrawalStatusProcessed, nil
	default:
		return 0, program.ErrInvalidArgument
	}
}

// CancelParams redirects the refunded deposit on the foreign chain.
type CancelParams struct {
	SeedLo    uint64
	SeedHi    uint64
	Recipient *types.ForeignAddress // defaults to the original event sender
}

// CancelWithdraw aborts a Pending withdrawal and credits the amount back as a
// fresh deposit event for the relays. Only the author may cancel, and only
// from Pending; the status machine admits no second cancellation.
func (p *Program) CancelWithdraw(withdrawalAcc, settingsAcc, depositAcc *program.Account, params CancelParams, signers program.Signers) error {
	wd, err := p.loadWithdrawal(withdrawalAcc)
	if err != nil {
		return err
	}
	if err := signers.RequireSigner(wd.Author); err != nil {
		return err
	}
	if wd.Settings != settingsAcc.Address {
		return program.ErrInvalidArgument
	}
	if wd.Status != types.WithdrawalStatusPending {
		return program.ErrInvalidWithdrawalStatus
	}
	recipient := wd.Event.Sender
	if params.Recipient != nil {
		recipient = *params.Recipient
	}
	if err := p.createDeposit(depositAcc, settingsAcc.Address, DepositEvent{
		Sender:    wd.Author,
		Amount:    wd.Event.Amount,
		Recipient: recipient,
	}, params.SeedLo, params.SeedHi); err != nil {
		return err
	}
	wd.Status = types.WithdrawalStatusCancelled
	if err := wd.Pack(withdrawalAcc.Data); err != nil {
		return err
	}
	log.Info().
		Str("withdrawal", withdrawalAcc.Address.String()).
		Msg("[TokenProxy] withdrawal cancelled")
	return nil
}

// FillParams names the filler's foreign-chain address for the reimbursement
// deposit.
type FillParams struct {
	SeedLo    uint64
	SeedHi    uint64
	Recipient types.ForeignAddress
}

// FillWithdraw lets a third party pay a Pending withdrawal out of their own
// balance, keeping the bounty. The full foreign-chain amount is re-recorded
// as a deposit in the filler's favor.
func (p *Program) FillWithdraw(withdrawalAcc, settingsAcc, fillerAcc, recipientAcc, depositAcc *program.Account, params FillParams, signers program.Signers) error {
	wd, err := p.loadWithdrawal(withdrawalAcc)
	if err != nil {
		return err
	}
	settings, err := p.loadSettings(settingsAcc)
	if err != nil {
		return err
	}
	if wd.Settings != settingsAcc.Address {
		return program.ErrInvalidArgument
	}
	if wd.Status != types.WithdrawalStatusPending {
		return program.ErrInvalidWithdrawalStatus
	}
	if recipientAcc.Address != wd.Event.Recipient {
		return program.ErrInvalidArgument
	}
	hostAmount, err := WithdrawalAmount(wd.Event.Amount, settings.HostDecimals, settings.ForeignDecimals)
	if err != nil {
		return err
	}
	if wd.Bounty > hostAmount {
		return program.ErrInvalidArgument
	}
	filler, err := token.UnpackAccount(fillerAcc.Data)
	if err != nil {
		return err
	}
	if err := p.Token.Transfer(fillerAcc, recipientAcc, hostAmount-wd.Bounty, signers); err != nil {
		return err
	}
	if err := p.createDeposit(depositAcc, settingsAcc.Address, DepositEvent{
		Sender:    filler.Owner,
		Amount:    wd.Event.Amount,
		Recipient: params.Recipient,
	}, params.SeedLo, params.SeedHi); err != nil {
		return err
	}
	wd.Status = types.WithdrawalStatusProcessed
	if err := wd.Pack(withdrawalAcc.Data); err != nil {
		return err
	}
	log.Info().
		Str("withdrawal", withdrawalAcc.Address.String()).
		Str("filler", filler.Owner.String()).
		Uint64("bounty", wd.Bounty).
		Msg("[TokenProxy] withdrawal filled")
	return nil
}

// ChangeBounty lets the author sweeten a Pending withdrawal for fillers.
func (p *Program) ChangeBounty(withdrawalAcc *program.Account, bounty uint64, signers program.Signers) error {
	wd, err := p.loadWithdrawal(withdrawalAcc)
	if err != nil {
		return err
	}
	if err := signers.RequireSigner(wd.Author); err != nil {
		return err
	}
	if wd.Status != types.WithdrawalStatusPending {
		return program.ErrInvalidWithdrawalStatus
	}
	wd.Bounty = bounty
	return wd.Pack(withdrawalAcc.Data)
}

// rollEpoch lazily resets the daily counter once the previous window has
// passed. No scheduled callbacks exist; the check rides on the next call.
func (p *Program) rollEpoch(settings *Settings) {
	now := p.Clock.Now().Unix()
	if now > settings.WithdrawalEpochEnd {
		settings.WithdrawalDailyAmount = 0
		settings.WithdrawalEpochEnd = now + WithdrawalPeriod
	}
}

// loadWithdrawal rejects any record that is not a withdrawal at the address
// its binding tuple derives.
func (p *Program) loadWithdrawal(withdrawalAcc *program.Account) (*Withdrawal, error) {
	if err := program.RequireOwner(withdrawalAcc, p.ID); err != nil {
		return nil, err
	}
	wd, err := UnpackWithdrawal(withdrawalAcc.Data)
	if err != nil {
		return nil, err
	}
	if wd.Kind != types.AccountKindProposal {
		return nil, program.ErrInvalidArgument
	}
	if !wd.IsInitialized {
		return nil, program.ErrNotInitialized
	}
	seeds := WithdrawalSeeds(wd.Author, wd.Settings, wd.EventTimestamp, wd.EventTransactionLt, wd.EventConfiguration)
	if _, err := pda.Validate(seeds, p.ID, withdrawalAcc.Address); err != nil {
		return nil, err
	}
	return wd, nil
}

func (p *Program) loadWithdrawalPair(withdrawalAcc, settingsAcc *program.Account, kind types.TokenKind) (*Withdrawal, *Settings, error) {
	wd, err := p.loadWithdrawal(withdrawalAcc)
	if err != nil {
		return nil, nil, err
	}
	settings, err := p.loadSettings(settingsAcc)
	if err != nil {
		return nil, nil, err
	}
	if wd.Settings != settingsAcc.Address || settings.TokenKind != kind {
		return nil, nil, program.ErrInvalidArgument
	}
	return wd, settings, nil
}

// loadRelayRound reads a round record owned by the round-loader program.
// A non-nil wantNumber additionally pins the round to a snapshot.
func (p *Program) loadRelayRound(roundAcc *program.Account, wantNumber *uint32) (*roundloader.RelayRound, error) {
	if err := program.RequireOwner(roundAcc, p.RoundLoader); err != nil {
		return nil, err
	}
	round, err := roundloader.UnpackRelayRound(roundAcc.Data)
	if err != nil {
		return nil, err
	}
	if !round.IsInitialized {
		return nil, program.ErrNotInitialized
	}
	if wantNumber != nil && round.RoundNumber != *wantNumber {
		return nil, program.ErrInvalidRelayRound
	}
	if _, err := pda.Validate(roundloader.RelayRoundSeeds(round.RoundNumber), p.RoundLoader, roundAcc.Address); err != nil {
		return nil, err
	}
	return round, nil
}
