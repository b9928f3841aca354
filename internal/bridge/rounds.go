package bridge

import (
	"github.com/scalarorg/bridge-core/pkg/db"
	"github.com/scalarorg/bridge-core/pkg/db/models"
	"github.com/scalarorg/bridge-core/pkg/events"
	"github.com/scalarorg/bridge-core/pkg/pda"
	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/roundloader"
	"github.com/scalarorg/bridge-core/pkg/types"
)

// InitializeGenesis seeds the round-loader settings and round 0.
func (s *Service) InitializeGenesis(params roundloader.GenesisParams, signers []types.Address) (types.Address, error) {
	settingsAcc, err := s.roundLoaderSettings()
	if err != nil {
		return types.ZeroAddress, err
	}
	roundAcc, err := s.relayRoundAccount(params.RoundNumber)
	if err != nil {
		return types.ZeroAddress, err
	}
	err = s.RoundLoader.InitializeGenesis(settingsAcc, roundAcc, params, program.NewSigners(signers...))
	if err != nil {
		return types.ZeroAddress, err
	}
	if err := s.DbAdapter.SaveAccounts(settingsAcc, roundAcc); err != nil {
		return types.ZeroAddress, err
	}
	s.indexRound(roundAcc)
	return roundAcc.Address, nil
}

// UpdateRoundSettings applies a sparse governance patch.
func (s *Service) UpdateRoundSettings(patch roundloader.SettingsPatch, signers []types.Address) error {
	settingsAcc, err := s.roundLoaderSettings()
	if err != nil {
		return err
	}
	if err := s.RoundLoader.UpdateSettings(settingsAcc, patch, program.NewSigners(signers...)); err != nil {
		return err
	}
	return s.DbAdapter.SaveAccounts(settingsAcc)
}

// CreateRelayRound submits a round manually through the designated
// submitter.
func (s *Service) CreateRelayRound(params roundloader.RelayRoundParams, signers []types.Address) (types.Address, error) {
	settingsAcc, err := s.roundLoaderSettings()
	if err != nil {
		return types.ZeroAddress, err
	}
	roundAcc, err := s.relayRoundAccount(params.RoundNumber)
	if err != nil {
		return types.ZeroAddress, err
	}
	err = s.RoundLoader.CreateRelayRound(settingsAcc, roundAcc, params, program.NewSigners(signers...))
	if err != nil {
		return types.ZeroAddress, err
	}
	if err := s.DbAdapter.SaveAccounts(settingsAcc, roundAcc); err != nil {
		return types.ZeroAddress, err
	}
	s.indexRound(roundAcc)
	return roundAcc.Address, nil
}

// CreateProposal allocates a rotation proposal record.
func (s *Service) CreateProposal(params roundloader.ProposalParams, signers []types.Address) (types.Address, error) {
	proposalAcc, err := s.proposalAccount(params)
	if err != nil {
		return types.ZeroAddress, err
	}
	err = s.RoundLoader.CreateProposal(proposalAcc, params, program.NewSigners(signers...))
	if err != nil {
		return types.ZeroAddress, err
	}
	if err := s.DbAdapter.SaveAccounts(proposalAcc); err != nil {
		return types.ZeroAddress, err
	}
	return proposalAcc.Address, nil
}

// WriteProposal appends payload bytes to an unfinalized proposal.
func (s *Service) WriteProposal(proposal types.Address, offset uint32, data []byte, signers []types.Address) error {
	proposalAcc, err := s.DbAdapter.GetAccount(proposal)
	if err != nil {
		return err
	}
	if err := s.RoundLoader.WriteProposal(proposalAcc, offset, data, program.NewSigners(signers...)); err != nil {
		return err
	}
	return s.DbAdapter.SaveAccounts(proposalAcc)
}

// FinalizeProposal closes the payload window and escrows the reparation
// bond from the funder.
func (s *Service) FinalizeProposal(proposal, funder types.Address, signers []types.Address) error {
	proposalAcc, err := s.DbAdapter.GetAccount(proposal)
	if err != nil {
		return err
	}
	settingsAcc, err := s.roundLoaderSettings()
	if err != nil {
		return err
	}
	settings, err := roundloader.UnpackSettings(settingsAcc.Data)
	if err != nil {
		return err
	}
	roundAcc, err := s.relayRoundAccount(settings.CurrentRoundNumber)
	if err != nil {
		return err
	}
	funderAcc, err := s.loadFunder(funder)
	if err != nil {
		return err
	}
	err = s.RoundLoader.FinalizeProposal(proposalAcc, settingsAcc, roundAcc, funderAcc, program.NewSigners(signers...))
	if err != nil {
		return err
	}
	return s.DbAdapter.SaveAccounts(proposalAcc, settingsAcc, funderAcc)
}

// VoteProposal casts one relay's vote on a rotation proposal.
func (s *Service) VoteProposal(proposal, relay types.Address, vote types.Vote, signers []types.Address) error {
	proposalAcc, err := s.DbAdapter.GetAccount(proposal)
	if err != nil {
		return err
	}
	record, err := roundloader.UnpackProposal(proposalAcc.Data)
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
	err = s.RoundLoader.Vote(proposalAcc, roundAcc, relayAcc, vote, program.NewSigners(signers...))
	if err != nil {
		return err
	}
	return s.DbAdapter.SaveAccounts(proposalAcc, relayAcc)
}

// ExecuteProposal rotates the quorum once the proposal has enough votes.
func (s *Service) ExecuteProposal(proposal types.Address) error {
	proposalAcc, err := s.DbAdapter.GetAccount(proposal)
	if err != nil {
		return err
	}
	record, err := roundloader.UnpackProposal(proposalAcc.Data)
	if err != nil {
		return err
	}
	event, err := roundloader.UnpackRoundRotationEvent(record.Payload)
	if err != nil {
		return err
	}
	settingsAcc, err := s.roundLoaderSettings()
	if err != nil {
		return err
	}
	newRoundAcc, err := s.relayRoundAccount(event.RoundNumber)
	if err != nil {
		return err
	}
	if err := s.RoundLoader.ExecuteProposal(proposalAcc, settingsAcc, newRoundAcc); err != nil {
		return err
	}
	if err := s.DbAdapter.SaveAccounts(proposalAcc, settingsAcc, newRoundAcc); err != nil {
		return err
	}

	record, err = roundloader.UnpackProposal(proposalAcc.Data)
	if err != nil {
		return err
	}
	if record.IsExecuted {
		s.indexRound(newRoundAcc)
		s.EventBus.Publish(events.EVENT_PROPOSAL_EXECUTED, &events.ProposalExecuted{
			Account:     proposalAcc.Address,
			RoundNumber: event.RoundNumber,
		})
	}
	return nil
}

func (s *Service) roundLoaderSettings() (*program.Account, error) {
	address, _, err := pda.Derive(roundloader.SettingsSeeds(), s.RoundLoader.ID)
	if err != nil {
		return nil, err
	}
	return s.loadAccount(address, s.RoundLoader.ID, roundloader.PackedSettingsLen)
}

func (s *Service) relayRoundAccount(roundNumber uint32) (*program.Account, error) {
	address, _, err := pda.Derive(roundloader.RelayRoundSeeds(roundNumber), s.RoundLoader.ID)
	if err != nil {
		return nil, err
	}
	return s.loadAccount(address, s.RoundLoader.ID, roundloader.PackedRelayRoundLen)
}

func (s *Service) proposalAccount(params roundloader.ProposalParams) (*program.Account, error) {
	seeds := roundloader.ProposalSeeds(params.Author, params.Settings, params.EventTimestamp, params.EventTransactionLt, params.EventConfiguration)
	address, _, err := pda.Derive(seeds, s.RoundLoader.ID)
	if err != nil {
		return nil, err
	}
	return s.loadAccount(address, s.RoundLoader.ID, roundloader.PackedProposalLen)
}

// indexRound projects the stored round record; the program may have bounded
// the requested round end, so the account is the authority.
func (s *Service) indexRound(roundAcc *program.Account) {
	round, err := roundloader.UnpackRelayRound(roundAcc.Data)
	if err != nil {
		logIndexError("relay round", roundAcc.Address, err)
		return
	}
	s.EventBus.Publish(events.EVENT_RELAY_ROUND_CREATED, &events.RelayRoundCreated{
		Account:     roundAcc.Address,
		RoundNumber: round.RoundNumber,
		RoundEnd:    round.RoundEnd,
		Relays:      round.Relays,
	})
	err = s.DbAdapter.IndexRelayRound(&models.RelayRound{
		Address:     roundAcc.Address.String(),
		RoundNumber: round.RoundNumber,
		RoundEnd:    round.RoundEnd,
		Relays:      db.JoinRelays(round.Relays),
	})
	if err != nil {
		// The account itself is saved; the projection catches up on replay.
		logIndexError("relay round", roundAcc.Address, err)
	}
}
