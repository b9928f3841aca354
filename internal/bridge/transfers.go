package bridge

import (
	"time"

	"github.com/scalarorg/bridge-core/pkg/db/models"
	"github.com/scalarorg/bridge-core/pkg/events"
	"github.com/scalarorg/bridge-core/pkg/pda"
	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/roundloader"
	"github.com/scalarorg/bridge-core/pkg/token"
	"github.com/scalarorg/bridge-core/pkg/tokenproxy"
	"github.com/scalarorg/bridge-core/pkg/types"
	"github.com/scalarorg/bridge-core/pkg/voting"
)

// RegisterMintAsset creates the settings record and wrapped mint for a
// mint-settled asset.
func (s *Service) RegisterMintAsset(params tokenproxy.AssetParams, signers []types.Address) (types.Address, error) {
	settingsAcc, err := s.assetSettings(params.Name)
	if err != nil {
		return types.ZeroAddress, err
	}
	mintAcc, err := s.proxyDerivedAccount(tokenproxy.MintSeeds(params.Name), s.Token.ID, token.PackedMintLen)
	if err != nil {
		return types.ZeroAddress, err
	}
	err = s.TokenProxy.InitializeMintAsset(settingsAcc, mintAcc, params, program.NewSigners(signers...))
	if err != nil {
		return types.ZeroAddress, err
	}
	if err := s.DbAdapter.SaveAccounts(settingsAcc, mintAcc); err != nil {
		return types.ZeroAddress, err
	}
	return settingsAcc.Address, nil
}

// RegisterVaultAsset creates the settings record and vault for a
// vault-settled asset.
func (s *Service) RegisterVaultAsset(params tokenproxy.VaultAssetParams, signers []types.Address) (types.Address, error) {
	settingsAcc, err := s.assetSettings(params.Name)
	if err != nil {
		return types.ZeroAddress, err
	}
	vaultAcc, err := s.proxyDerivedAccount(tokenproxy.VaultSeeds(params.Name), s.Token.ID, token.PackedAccountLen)
	if err != nil {
		return types.ZeroAddress, err
	}
	err = s.TokenProxy.InitializeVaultAsset(settingsAcc, vaultAcc, params, program.NewSigners(signers...))
	if err != nil {
		return types.ZeroAddress, err
	}
	if err := s.DbAdapter.SaveAccounts(settingsAcc, vaultAcc); err != nil {
		return types.ZeroAddress, err
	}
	return settingsAcc.Address, nil
}

// Deposit moves funds into the bridge and records the outbound event,
// burning or locking depending on how the asset settles.
func (s *Service) Deposit(asset string, sender types.Address, params tokenproxy.DepositParams, signers []types.Address) (types.Address, error) {
	settingsAcc, settings, err := s.loadAsset(asset)
	if err != nil {
		return types.ZeroAddress, err
	}
	senderAcc, err := s.DbAdapter.GetAccount(sender)
	if err != nil {
		return types.ZeroAddress, err
	}
	depositAcc, err := s.proxyDerivedAccount(
		tokenproxy.DepositSeeds(settingsAcc.Address, params.SeedLo, params.SeedHi),
		s.TokenProxy.ID, tokenproxy.PackedDepositLen)
	if err != nil {
		return types.ZeroAddress, err
	}

	var touched *program.Account
	switch settings.TokenKind {
	case types.TokenKindMint:
		touched, err = s.DbAdapter.GetAccount(settings.Mint)
		if err != nil {
			return types.ZeroAddress, err
		}
		err = s.TokenProxy.DepositEver(settingsAcc, touched, senderAcc, depositAcc, params, program.NewSigners(signers...))
	case types.TokenKindVault:
		touched, err = s.DbAdapter.GetAccount(settings.Vault)
		if err != nil {
			return types.ZeroAddress, err
		}
		err = s.TokenProxy.DepositSol(settingsAcc, touched, senderAcc, depositAcc, params, program.NewSigners(signers...))
	default:
		return types.ZeroAddress, program.ErrInvalidArgument
	}
	if err != nil {
		return types.ZeroAddress, err
	}
	if err := s.DbAdapter.SaveAccounts(settingsAcc, touched, senderAcc, depositAcc); err != nil {
		return types.ZeroAddress, err
	}
	s.indexDeposit(depositAcc, settingsAcc.Address)
	return depositAcc.Address, nil
}

// RequestWithdrawal creates a withdrawal bound to the current relay round.
func (s *Service) RequestWithdrawal(asset string, params tokenproxy.WithdrawRequestParams, funder types.Address, signers []types.Address) (types.Address, error) {
	settingsAcc, _, err := s.loadAsset(asset)
	if err != nil {
		return types.ZeroAddress, err
	}
	roundAcc, err := s.currentRelayRound()
	if err != nil {
		return types.ZeroAddress, err
	}
	seeds := tokenproxy.WithdrawalSeeds(params.Author, settingsAcc.Address, params.EventTimestamp, params.EventTransactionLt, params.EventConfiguration)
	withdrawalAcc, err := s.proxyDerivedAccount(seeds, s.TokenProxy.ID, tokenproxy.PackedWithdrawalLen)
	if err != nil {
		return types.ZeroAddress, err
	}
	funderAcc, err := s.loadFunder(funder)
	if err != nil {
		return types.ZeroAddress, err
	}
	err = s.TokenProxy.WithdrawRequest(withdrawalAcc, settingsAcc, roundAcc, funderAcc, params, program.NewSigners(signers...))
	if err != nil {
		return types.ZeroAddress, err
	}
	if err := s.DbAdapter.SaveAccounts(withdrawalAcc, funderAcc); err != nil {
		return types.ZeroAddress, err
	}
	s.indexWithdrawal(withdrawalAcc)
	return withdrawalAcc.Address, nil
}

// VoteWithdrawal casts one relay's vote on a withdrawal request.
func (s *Service) VoteWithdrawal(withdrawal, relay types.Address, vote types.Vote, signers []types.Address) error {
	withdrawalAcc, record, err := s.loadWithdrawalAccount(withdrawal)
	if err != nil {
		return err
	}
	roundAcc, err := s.relayRoundAccount(record.RoundNumber)
	if err != nil {
		return err
	}
	relayAcc, err := s.loadAccount(relay, types.ZeroAddress, 0)
	if err != nil {
		return err
	}
	err = s.TokenProxy.VoteForWithdrawRequest(withdrawalAcc, roundAcc, relayAcc, vote, program.NewSigners(signers...))
	if err != nil {
		return err
	}
	if err := s.DbAdapter.SaveAccounts(withdrawalAcc, relayAcc); err != nil {
		return err
	}
	s.indexWithdrawal(withdrawalAcc)
	return nil
}

// SettleWithdrawal attempts settlement of a quorum-approved withdrawal.
func (s *Service) SettleWithdrawal(withdrawal types.Address) error {
	withdrawalAcc, record, err := s.loadWithdrawalAccount(withdrawal)
	if err != nil {
		return err
	}
	settingsAcc, settings, recipientAcc, tokenAcc, err := s.settlementAccounts(record)
	if err != nil {
		return err
	}
	switch settings.TokenKind {
	case types.TokenKindMint:
		err = s.TokenProxy.WithdrawEver(withdrawalAcc, settingsAcc, tokenAcc, recipientAcc)
	case types.TokenKindVault:
		err = s.TokenProxy.WithdrawSol(withdrawalAcc, settingsAcc, tokenAcc, recipientAcc)
	default:
		err = program.ErrInvalidArgument
	}
	if err != nil {
		return err
	}
	if err := s.DbAdapter.SaveAccounts(withdrawalAcc, settingsAcc, tokenAcc, recipientAcc); err != nil {
		return err
	}
	s.indexWithdrawal(withdrawalAcc)
	return nil
}

// ApproveWithdrawal releases a limit-parked withdrawal. Admin only.
func (s *Service) ApproveWithdrawal(withdrawal types.Address, signers []types.Address) error {
	withdrawalAcc, record, err := s.loadWithdrawalAccount(withdrawal)
	if err != nil {
		return err
	}
	settingsAcc, settings, recipientAcc, tokenAcc, err := s.settlementAccounts(record)
	if err != nil {
		return err
	}
	switch settings.TokenKind {
	case types.TokenKindMint:
		err = s.TokenProxy.ApproveWithdrawEver(withdrawalAcc, settingsAcc, tokenAcc, recipientAcc, program.NewSigners(signers...))
	case types.TokenKindVault:
		err = s.TokenProxy.ApproveWithdrawSol(withdrawalAcc, settingsAcc, tokenAcc, recipientAcc, program.NewSigners(signers...))
	default:
		err = program.ErrInvalidArgument
	}
	if err != nil {
		return err
	}
	if err := s.DbAdapter.SaveAccounts(withdrawalAcc, settingsAcc, tokenAcc, recipientAcc); err != nil {
		return err
	}
	s.indexWithdrawal(withdrawalAcc)
	return nil
}

// CancelWithdrawal aborts a Pending withdrawal, crediting the amount back
// as a fresh deposit.
func (s *Service) CancelWithdrawal(withdrawal types.Address, params tokenproxy.CancelParams, signers []types.Address) (types.Address, error) {
	withdrawalAcc, record, err := s.loadWithdrawalAccount(withdrawal)
	if err != nil {
		return types.ZeroAddress, err
	}
	settingsAcc, err := s.DbAdapter.GetAccount(record.Settings)
	if err != nil {
		return types.ZeroAddress, err
	}
	depositAcc, err := s.proxyDerivedAccount(
		tokenproxy.DepositSeeds(settingsAcc.Address, params.SeedLo, params.SeedHi),
		s.TokenProxy.ID, tokenproxy.PackedDepositLen)
	if err != nil {
		return types.ZeroAddress, err
	}
	err = s.TokenProxy.CancelWithdraw(withdrawalAcc, settingsAcc, depositAcc, params, program.NewSigners(signers...))
	if err != nil {
		return types.ZeroAddress, err
	}
	if err := s.DbAdapter.SaveAccounts(withdrawalAcc, depositAcc); err != nil {
		return types.ZeroAddress, err
	}
	s.indexWithdrawal(withdrawalAcc)
	s.indexDeposit(depositAcc, settingsAcc.Address)
	return depositAcc.Address, nil
}

// FillWithdrawal pays a Pending withdrawal from the filler's balance in
// exchange for the bounty and a deposit credit.
func (s *Service) FillWithdrawal(withdrawal, filler types.Address, params tokenproxy.FillParams, signers []types.Address) (types.Address, error) {
	withdrawalAcc, record, err := s.loadWithdrawalAccount(withdrawal)
	if err != nil {
		return types.ZeroAddress, err
	}
	settingsAcc, err := s.DbAdapter.GetAccount(record.Settings)
	if err != nil {
		return types.ZeroAddress, err
	}
	fillerAcc, err := s.DbAdapter.GetAccount(filler)
	if err != nil {
		return types.ZeroAddress, err
	}
	recipientAcc, err := s.DbAdapter.GetAccount(record.Event.Recipient)
	if err != nil {
		return types.ZeroAddress, err
	}
	depositAcc, err := s.proxyDerivedAccount(
		tokenproxy.DepositSeeds(settingsAcc.Address, params.SeedLo, params.SeedHi),
		s.TokenProxy.ID, tokenproxy.PackedDepositLen)
	if err != nil {
		return types.ZeroAddress, err
	}
	err = s.TokenProxy.FillWithdraw(withdrawalAcc, settingsAcc, fillerAcc, recipientAcc, depositAcc, params, program.NewSigners(signers...))
	if err != nil {
		return types.ZeroAddress, err
	}
	if err := s.DbAdapter.SaveAccounts(withdrawalAcc, fillerAcc, recipientAcc, depositAcc); err != nil {
		return types.ZeroAddress, err
	}
	s.indexWithdrawal(withdrawalAcc)
	s.indexDeposit(depositAcc, settingsAcc.Address)
	return depositAcc.Address, nil
}

// SetBounty updates the fill bounty of a Pending withdrawal.
func (s *Service) SetBounty(withdrawal types.Address, bounty uint64, signers []types.Address) error {
	withdrawalAcc, _, err := s.loadWithdrawalAccount(withdrawal)
	if err != nil {
		return err
	}
	if err := s.TokenProxy.ChangeBounty(withdrawalAcc, bounty, program.NewSigners(signers...)); err != nil {
		return err
	}
	if err := s.DbAdapter.SaveAccounts(withdrawalAcc); err != nil {
		return err
	}
	s.indexWithdrawal(withdrawalAcc)
	return nil
}

// ChangeAssetSettings swaps the emergency flag and limits of an asset.
func (s *Service) ChangeAssetSettings(asset string, params tokenproxy.LimitsParams, signers []types.Address) error {
	settingsAcc, _, err := s.loadAsset(asset)
	if err != nil {
		return err
	}
	if err := s.TokenProxy.ChangeSettings(settingsAcc, params, program.NewSigners(signers...)); err != nil {
		return err
	}
	return s.DbAdapter.SaveAccounts(settingsAcc)
}

// ChangeAssetAdmin hands the asset admin role to a new address.
func (s *Service) ChangeAssetAdmin(asset string, newAdmin types.Address, signers []types.Address) error {
	settingsAcc, _, err := s.loadAsset(asset)
	if err != nil {
		return err
	}
	if err := s.TokenProxy.ChangeAdmin(settingsAcc, newAdmin, program.NewSigners(signers...)); err != nil {
		return err
	}
	return s.DbAdapter.SaveAccounts(settingsAcc)
}

// TransferFromVault moves vault funds to an arbitrary token account. Admin
// only.
func (s *Service) TransferFromVault(asset string, dest types.Address, amount uint64, signers []types.Address) error {
	settingsAcc, settings, err := s.loadAsset(asset)
	if err != nil {
		return err
	}
	vaultAcc, err := s.DbAdapter.GetAccount(settings.Vault)
	if err != nil {
		return err
	}
	destAcc, err := s.DbAdapter.GetAccount(dest)
	if err != nil {
		return err
	}
	if err := s.TokenProxy.TransferFromVault(settingsAcc, vaultAcc, destAcc, amount, program.NewSigners(signers...)); err != nil {
		return err
	}
	return s.DbAdapter.SaveAccounts(vaultAcc, destAcc)
}

func (s *Service) assetSettings(name string) (*program.Account, error) {
	return s.proxyDerivedAccount(tokenproxy.SettingsSeeds(name), s.TokenProxy.ID, tokenproxy.PackedSettingsLen)
}

func (s *Service) loadAsset(name string) (*program.Account, *tokenproxy.Settings, error) {
	settingsAcc, err := s.assetSettings(name)
	if err != nil {
		return nil, nil, err
	}
	settings, err := tokenproxy.UnpackSettings(settingsAcc.Data)
	if err != nil {
		return nil, nil, err
	}
	return settingsAcc, settings, nil
}

func (s *Service) proxyDerivedAccount(seeds [][]byte, owner types.Address, size int) (*program.Account, error) {
	address, _, err := pda.Derive(seeds, s.TokenProxy.ID)
	if err != nil {
		return nil, err
	}
	return s.loadAccount(address, owner, size)
}

func (s *Service) currentRelayRound() (*program.Account, error) {
	settingsAcc, err := s.roundLoaderSettings()
	if err != nil {
		return nil, err
	}
	settings, err := roundloader.UnpackSettings(settingsAcc.Data)
	if err != nil {
		return nil, err
	}
	return s.relayRoundAccount(settings.CurrentRoundNumber)
}

func (s *Service) loadWithdrawalAccount(address types.Address) (*program.Account, *tokenproxy.Withdrawal, error) {
	withdrawalAcc, err := s.DbAdapter.GetAccount(address)
	if err != nil {
		return nil, nil, err
	}
	record, err := tokenproxy.UnpackWithdrawal(withdrawalAcc.Data)
	if err != nil {
		return nil, nil, err
	}
	return withdrawalAcc, record, nil
}

// settlementAccounts loads the settings, recipient and mint-or-vault
// accounts a settlement touches.
func (s *Service) settlementAccounts(record *tokenproxy.Withdrawal) (*program.Account, *tokenproxy.Settings, *program.Account, *program.Account, error) {
	settingsAcc, err := s.DbAdapter.GetAccount(record.Settings)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	settings, err := tokenproxy.UnpackSettings(settingsAcc.Data)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	recipientAcc, err := s.DbAdapter.GetAccount(record.Event.Recipient)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	var tokenAcc *program.Account
	switch settings.TokenKind {
	case types.TokenKindMint:
		tokenAcc, err = s.DbAdapter.GetAccount(settings.Mint)
	case types.TokenKindVault:
		tokenAcc, err = s.DbAdapter.GetAccount(settings.Vault)
	default:
		err = program.ErrInvalidArgument
	}
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return settingsAcc, settings, recipientAcc, tokenAcc, nil
}

func (s *Service) indexDeposit(depositAcc *program.Account, asset types.Address) {
	record, err := tokenproxy.UnpackDeposit(depositAcc.Data)
	if err != nil {
		logIndexError("deposit", depositAcc.Address, err)
		return
	}
	s.EventBus.Publish(events.EVENT_DEPOSIT_CREATED, &events.DepositCreated{
		Account:   depositAcc.Address,
		Asset:     asset,
		Sender:    record.Event.Sender,
		Amount:    record.Event.Amount,
		Recipient: record.Event.Recipient,
	})
	err = s.DbAdapter.IndexDeposit(&models.Deposit{
		Address:   depositAcc.Address.String(),
		Asset:     asset.String(),
		Sender:    record.Event.Sender.String(),
		Amount:    record.Event.Amount,
		Recipient: record.Event.Recipient.String(),
		SeedLo:    record.SeedLo,
		SeedHi:    record.SeedHi,
		CreatedAt: time.Now(),
	})
	if err != nil {
		logIndexError("deposit", depositAcc.Address, err)
	}
}

func (s *Service) indexWithdrawal(withdrawalAcc *program.Account) {
	record, err := tokenproxy.UnpackWithdrawal(withdrawalAcc.Data)
	if err != nil {
		logIndexError("withdrawal", withdrawalAcc.Address, err)
		return
	}
	s.EventBus.Publish(events.EVENT_WITHDRAWAL_STATUS_CHANGED, &events.WithdrawalStatusChanged{
		Account: withdrawalAcc.Address,
		Asset:   record.Settings,
		Status:  record.Status,
		Amount:  record.Event.Amount,
	})
	err = s.DbAdapter.IndexWithdrawal(&models.Withdrawal{
		Address:       withdrawalAcc.Address.String(),
		Asset:         record.Settings.String(),
		Author:        record.Author.String(),
		Recipient:     record.Event.Recipient.String(),
		Amount:        record.Event.Amount,
		Bounty:        record.Bounty,
		Status:        uint8(record.Status),
		RoundNumber:   record.RoundNumber,
		RequiredVotes: record.RequiredVotes,
		Confirmations: voting.Confirmations(record.Signers),
		UpdatedAt:     time.Now(),
	})
	if err != nil {
		logIndexError("withdrawal", withdrawalAcc.Address, err)
	}
}
