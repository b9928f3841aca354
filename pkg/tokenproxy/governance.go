package tokenproxy

import (
	"github.com/rs/zerolog/log"
	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/types"
)

// LimitsParams replaces the asset's limit configuration wholesale.
type LimitsParams struct {
	Emergency            bool
	DepositLimit         uint64
	WithdrawalLimit      uint64
	WithdrawalDailyLimit uint64
}

// ChangeSettings swaps the emergency flag and the three limits. The daily
// counter and epoch carry over; a lowered daily limit takes effect against
// the amount already spent today.
func (p *Program) ChangeSettings(settingsAcc *program.Account, params LimitsParams, signers program.Signers) error {
	settings, err := p.loadSettings(settingsAcc)
	if err != nil {
		return err
	}
	if err := signers.RequireSigner(settings.Admin); err != nil {
		return err
	}
	settings.Emergency = params.Emergency
	settings.DepositLimit = params.DepositLimit
	settings.WithdrawalLimit = params.WithdrawalLimit
	settings.WithdrawalDailyLimit = params.WithdrawalDailyLimit
	if err := settings.Pack(settingsAcc.Data); err != nil {
		return err
	}
	log.Info().
		Str("name", settings.Name).
		Bool("emergency", params.Emergency).
		Msg("[TokenProxy] settings changed")
	return nil
}

// ChangeAdmin hands the asset's admin role to a new address. Gated on the
// current admin's signature.
func (p *Program) ChangeAdmin(settingsAcc *program.Account, newAdmin types.Address, signers program.Signers) error {
	settings, err := p.loadSettings(settingsAcc)
	if err != nil {
		return err
	}
	if err := signers.RequireSigner(settings.Admin); err != nil {
		return err
	}
	settings.Admin = newAdmin
	if err := settings.Pack(settingsAcc.Data); err != nil {
		return err
	}
	log.Info().
		Str("name", settings.Name).
		Str("admin", newAdmin.String()).
		Msg("[TokenProxy] admin changed")
	return nil
}

// TransferFromVault moves vault funds to an arbitrary token account. Admin
// escape hatch for migrations and incident response.
func (p *Program) TransferFromVault(settingsAcc, vaultAcc, destAcc *program.Account, amount uint64, signers program.Signers) error {
	settings, err := p.loadSettings(settingsAcc)
	if err != nil {
		return err
	}
	if err := signers.RequireSigner(settings.Admin); err != nil {
		return err
	}
	if settings.TokenKind != types.TokenKindVault || vaultAcc.Address != settings.Vault {
		return program.ErrInvalidArgument
	}
	if err := p.Token.Transfer(vaultAcc, destAcc, amount, program.NewSigners(p.authority)); err != nil {
		return err
	}
	log.Info().
		Str("name", settings.Name).
		Uint64("amount", amount).
		Str("dest", destAcc.Address.String()).
		Msg("[TokenProxy] vault transfer")
	return nil
}
