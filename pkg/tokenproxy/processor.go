// Package tokenproxy executes the multi-asset deposit/withdrawal programs:
// per-asset settings and limits, the deposit ledger, and withdrawal requests
// approved by the relay quorum maintained by the round loader.
package tokenproxy

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/scalarorg/bridge-core/pkg/pda"
	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/token"
	"github.com/scalarorg/bridge-core/pkg/types"
)

// Program executes token-proxy operations. Settlement authority over mints
// and vaults is the program's own derived authority address; relay rounds are
// read from, never written to, the round-loader program.
type Program struct {
	ID          types.Address
	RoundLoader types.Address
	Token       *token.Program
	Clock       program.Clock

	authority types.Address
}

func New(id, roundLoaderID types.Address, tok *token.Program, clock program.Clock) (*Program, error) {
	authority, _, err := pda.Derive(AuthoritySeeds(), id)
	if err != nil {
		return nil, fmt.Errorf("derive settlement authority: %w", err)
	}
	return &Program{
		ID:          id,
		RoundLoader: roundLoaderID,
		Token:       tok,
		Clock:       clock,
		authority:   authority,
	}, nil
}

// Authority is the derived address that owns vaults and signs settlements.
func (p *Program) Authority() types.Address { return p.authority }

// AssetParams configures a newly registered asset.
type AssetParams struct {
	Name                 string
	ForeignDecimals      uint8
	HostDecimals         uint8
	DepositLimit         uint64
	WithdrawalLimit      uint64
	WithdrawalDailyLimit uint64
	Admin                types.Address
}

// InitializeMintAsset registers a mint-settled asset: deposits burn the
// wrapped token, withdrawals mint it.
func (p *Program) InitializeMintAsset(settingsAcc, mintAcc *program.Account, params AssetParams, signers program.Signers) error {
	if err := p.validateNewSettings(settingsAcc, params, signers); err != nil {
		return err
	}
	if _, err := pda.Validate(MintSeeds(params.Name), p.ID, mintAcc.Address); err != nil {
		return err
	}
	if err := p.Token.InitializeMint(mintAcc, params.HostDecimals, p.authority); err != nil {
		return err
	}
	settings := p.newSettings(params)
	settings.TokenKind = types.TokenKindMint
	settings.Mint = mintAcc.Address
	if err := settings.Pack(settingsAcc.Data); err != nil {
		return err
	}
	log.Info().Str("name", params.Name).Msg("[TokenProxy] mint asset initialized")
	return nil
}

// VaultAssetParams additionally names the pre-existing native mint the vault
// will hold.
type VaultAssetParams struct {
	AssetParams
	Mint types.Address
}

// InitializeVaultAsset registers a vault-settled asset: deposits lock the
// native token in a program vault, withdrawals pay out of it.
func (p *Program) InitializeVaultAsset(settingsAcc, vaultAcc *program.Account, params VaultAssetParams, signers program.Signers) error {
	if err := p.validateNewSettings(settingsAcc, params.AssetParams, signers); err != nil {
		return err
	}
	if _, err := pda.Validate(VaultSeeds(params.Name), p.ID, vaultAcc.Address); err != nil {
		return err
	}
	if err := p.Token.InitializeAccount(vaultAcc, params.Mint, p.authority); err != nil {
		return err
	}
	settings := p.newSettings(params.AssetParams)
	settings.TokenKind = types.TokenKindVault
	settings.Mint = params.Mint
	settings.Vault = vaultAcc.Address
	if err := settings.Pack(settingsAcc.Data); err != nil {
		return err
	}
	log.Info().Str("name", params.Name).Msg("[TokenProxy] vault asset initialized")
	return nil
}

func (p *Program) validateNewSettings(settingsAcc *program.Account, params AssetParams, signers program.Signers) error {
	if err := signers.RequireSigner(params.Admin); err != nil {
		return err
	}
	if err := program.RequireOwner(settingsAcc, p.ID); err != nil {
		return err
	}
	if params.Name == "" || len(params.Name) > MaxNameLen {
		return program.ErrInvalidArgument
	}
	if _, err := pda.Validate(SettingsSeeds(params.Name), p.ID, settingsAcc.Address); err != nil {
		return err
	}
	if len(settingsAcc.Data) < PackedSettingsLen {
		return program.ErrAccountDataTooSmall
	}
	if s, err := UnpackSettings(settingsAcc.Data); err == nil && s.IsInitialized {
		return program.ErrAlreadyInitialized
	}
	return nil
}

func (p *Program) newSettings(params AssetParams) *Settings {
	return &Settings{
		IsInitialized:        true,
		Kind:                 types.AccountKindSettings,
		Admin:                params.Admin,
		ForeignDecimals:      params.ForeignDecimals,
		HostDecimals:         params.HostDecimals,
		DepositLimit:         params.DepositLimit,
		WithdrawalLimit:      params.WithdrawalLimit,
		WithdrawalDailyLimit: params.WithdrawalDailyLimit,
		Name:                 params.Name,
	}
}

// DepositParams describes one inbound transfer.
type DepositParams struct {
	SeedLo    uint64
	SeedHi    uint64
	Amount    uint64 // host-ledger decimals
	Recipient types.ForeignAddress
}

// DepositEver burns the wrapped token from the sender and records the
// deposit event for the relays, rescaled to foreign-chain decimals.
func (p *Program) DepositEver(settingsAcc, mintAcc, senderAcc, depositAcc *program.Account, params DepositParams, signers program.Signers) error {
	settings, err := p.loadSettings(settingsAcc)
	if err != nil {
		return err
	}
	if settings.Emergency {
		return program.ErrEmergencyEnabled
	}
	if settings.TokenKind != types.TokenKindMint || mintAcc.Address != settings.Mint {
		return program.ErrInvalidArgument
	}
	sender, err := token.UnpackAccount(senderAcc.Data)
	if err != nil {
		return err
	}
	foreignAmount, err := DepositAmount(params.Amount, settings.HostDecimals, settings.ForeignDecimals)
	if err != nil {
		return err
	}
	if err := p.Token.Burn(mintAcc, senderAcc, params.Amount, signers); err != nil {
		return err
	}
	return p.createDeposit(depositAcc, settingsAcc.Address, DepositEvent{
		Sender:    sender.Owner,
		Amount:    foreignAmount,
		Recipient: params.Recipient,
	}, params.SeedLo, params.SeedHi)
}

// DepositSol locks the native token in the vault. The deposit limit is a
// hard reject, unlike the soft withdrawal limits.
func (p *Program) DepositSol(settingsAcc, vaultAcc, senderAcc, depositAcc *program.Account, params DepositParams, signers program.Signers) error {
	settings, err := p.loadSettings(settingsAcc)
	if err != nil {
		return err
	}
	if settings.Emergency {
		return program.ErrEmergencyEnabled
	}
	if settings.TokenKind != types.TokenKindVault || vaultAcc.Address != settings.Vault {
		return program.ErrInvalidArgument
	}
	vault, err := token.UnpackAccount(vaultAcc.Data)
	if err != nil {
		return err
	}
	if vault.Amount+params.Amount < vault.Amount {
		return program.ErrOverflow
	}
	if vault.Amount+params.Amount > settings.DepositLimit {
		return program.ErrDepositLimit
	}
	sender, err := token.UnpackAccount(senderAcc.Data)
	if err != nil {
		return err
	}
	foreignAmount, err := DepositAmount(params.Amount, settings.HostDecimals, settings.ForeignDecimals)
	if err != nil {
		return err
	}
	if err := p.Token.Transfer(senderAcc, vaultAcc, params.Amount, signers); err != nil {
		return err
	}
	return p.createDeposit(depositAcc, settingsAcc.Address, DepositEvent{
		Sender:    sender.Owner,
		Amount:    foreignAmount,
		Recipient: params.Recipient,
	}, params.SeedLo, params.SeedHi)
}

func (p *Program) createDeposit(depositAcc *program.Account, settings types.Address, event DepositEvent, seedLo, seedHi uint64) error {
	if err := program.RequireOwner(depositAcc, p.ID); err != nil {
		return err
	}
	if _, err := pda.Validate(DepositSeeds(settings, seedLo, seedHi), p.ID, depositAcc.Address); err != nil {
		return err
	}
	if len(depositAcc.Data) < PackedDepositLen {
		return program.ErrAccountDataTooSmall
	}
	if d, err := UnpackDeposit(depositAcc.Data); err == nil && d.IsInitialized {
		return program.ErrAlreadyInitialized
	}
	deposit := &Deposit{
		IsInitialized: true,
		Kind:          types.AccountKindDeposit,
		Event:         event,
		SeedLo:        seedLo,
		SeedHi:        seedHi,
	}
	if err := deposit.Pack(depositAcc.Data); err != nil {
		return err
	}
	log.Info().
		Str("sender", event.Sender.String()).
		Uint64("amount", event.Amount).
		Str("recipient", event.Recipient.String()).
		Msg("[TokenProxy] deposit recorded")
	return nil
}

// loadSettings rejects any record that is not a Settings account at its own
// derived address; a mistyped record parsing cleanly is not enough.
func (p *Program) loadSettings(settingsAcc *program.Account) (*Settings, error) {
	if err := program.RequireOwner(settingsAcc, p.ID); err != nil {
		return nil, err
	}
	settings, err := UnpackSettings(settingsAcc.Data)
	if err != nil {
		return nil, err
	}
	if settings.Kind != types.AccountKindSettings {
		return nil, program.ErrInvalidArgument
	}
	if !settings.IsInitialized {
		return nil, program.ErrNotInitialized
	}
	if _, err := pda.Validate(SettingsSeeds(settings.Name), p.ID, settingsAcc.Address); err != nil {
		return nil, err
	}
	return settings, nil
}
