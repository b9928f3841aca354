package api

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/scalarorg/bridge-core/pkg/roundloader"
	"github.com/scalarorg/bridge-core/pkg/tokenproxy"
	"github.com/scalarorg/bridge-core/pkg/types"
)

type signedRequest struct {
	Signers []types.Address `json:"signers"`
}

type addressResponse struct {
	Address types.Address `json:"address"`
}

func parseAddressParam(c echo.Context) (types.Address, error) {
	return types.AddressFromBase58(c.Param("address"))
}

func parseVote(s string) (types.Vote, error) {
	switch s {
	case "confirm":
		return types.VoteConfirm, nil
	case "reject":
		return types.VoteReject, nil
	default:
		return types.VoteNone, fmt.Errorf("invalid vote %q", s)
	}
}

type genesisRequest struct {
	signedRequest
	RoundNumber      uint32          `json:"round_number"`
	RoundEnd         int64           `json:"round_end"`
	RoundSubmitter   types.Address   `json:"round_submitter"`
	MinRequiredVotes uint32          `json:"min_required_votes"`
	RoundTTL         int64           `json:"round_ttl"`
	Relays           []types.Address `json:"relays"`
}

func (s *Server) handleGenesis(c echo.Context) error {
	var req genesisRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	address, err := s.service.InitializeGenesis(roundloader.GenesisParams{
		RoundNumber:      req.RoundNumber,
		RoundEnd:         req.RoundEnd,
		RoundSubmitter:   req.RoundSubmitter,
		MinRequiredVotes: req.MinRequiredVotes,
		RoundTTL:         req.RoundTTL,
		Relays:           req.Relays,
	}, req.Signers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, addressResponse{Address: address})
}

type roundSettingsRequest struct {
	signedRequest
	RoundSubmitter   *types.Address `json:"round_submitter,omitempty"`
	MinRequiredVotes *uint32        `json:"min_required_votes,omitempty"`
	RoundTTL         *int64         `json:"round_ttl,omitempty"`
}

func (s *Server) handleUpdateRoundSettings(c echo.Context) error {
	var req roundSettingsRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	err := s.service.UpdateRoundSettings(roundloader.SettingsPatch{
		RoundSubmitter:   req.RoundSubmitter,
		MinRequiredVotes: req.MinRequiredVotes,
		RoundTTL:         req.RoundTTL,
	}, req.Signers)
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type relayRoundRequest struct {
	signedRequest
	RoundNumber uint32          `json:"round_number"`
	RoundEnd    int64           `json:"round_end"`
	Relays      []types.Address `json:"relays"`
}

func (s *Server) handleCreateRelayRound(c echo.Context) error {
	var req relayRoundRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	address, err := s.service.CreateRelayRound(roundloader.RelayRoundParams{
		RoundNumber: req.RoundNumber,
		RoundEnd:    req.RoundEnd,
		Relays:      req.Relays,
	}, req.Signers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, addressResponse{Address: address})
}

type proposalRequest struct {
	signedRequest
	Author             types.Address `json:"author"`
	Settings           types.Address `json:"settings"`
	EventTimestamp     int64         `json:"event_timestamp"`
	EventTransactionLt uint64        `json:"event_transaction_lt"`
	EventConfiguration types.Address `json:"event_configuration"`
}

func (s *Server) handleCreateProposal(c echo.Context) error {
	var req proposalRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	address, err := s.service.CreateProposal(roundloader.ProposalParams{
		Author:             req.Author,
		Settings:           req.Settings,
		EventTimestamp:     req.EventTimestamp,
		EventTransactionLt: req.EventTransactionLt,
		EventConfiguration: req.EventConfiguration,
	}, req.Signers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, addressResponse{Address: address})
}

type writeProposalRequest struct {
	signedRequest
	Offset  uint32 `json:"offset"`
	Payload string `json:"payload"` // hex
}

func (s *Server) handleWriteProposal(c echo.Context) error {
	address, err := parseAddressParam(c)
	if err != nil {
		return fail(c, err)
	}
	var req writeProposalRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	payload, err := hex.DecodeString(req.Payload)
	if err != nil {
		return fail(c, fmt.Errorf("invalid payload hex: %w", err))
	}
	if err := s.service.WriteProposal(address, req.Offset, payload, req.Signers); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type finalizeProposalRequest struct {
	signedRequest
	Funder types.Address `json:"funder"`
}

func (s *Server) handleFinalizeProposal(c echo.Context) error {
	address, err := parseAddressParam(c)
	if err != nil {
		return fail(c, err)
	}
	var req finalizeProposalRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	if err := s.service.FinalizeProposal(address, req.Funder, req.Signers); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type voteRequest struct {
	signedRequest
	Relay types.Address `json:"relay"`
	Vote  string        `json:"vote"`
}

func (s *Server) handleVoteProposal(c echo.Context) error {
	address, err := parseAddressParam(c)
	if err != nil {
		return fail(c, err)
	}
	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	vote, err := parseVote(req.Vote)
	if err != nil {
		return fail(c, err)
	}
	if err := s.service.VoteProposal(address, req.Relay, vote, req.Signers); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleExecuteProposal(c echo.Context) error {
	address, err := parseAddressParam(c)
	if err != nil {
		return fail(c, err)
	}
	if err := s.service.ExecuteProposal(address); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type assetRequest struct {
	signedRequest
	Name                 string        `json:"name"`
	ForeignDecimals      uint8         `json:"foreign_decimals"`
	HostDecimals         uint8         `json:"host_decimals"`
	DepositLimit         uint64        `json:"deposit_limit"`
	WithdrawalLimit      uint64        `json:"withdrawal_limit"`
	WithdrawalDailyLimit uint64        `json:"withdrawal_daily_limit"`
	Admin                types.Address `json:"admin"`
	Mint                 types.Address `json:"mint,omitempty"` // vault assets only
}

func (r *assetRequest) params() tokenproxy.AssetParams {
	return tokenproxy.AssetParams{
		Name:                 r.Name,
		ForeignDecimals:      r.ForeignDecimals,
		HostDecimals:         r.HostDecimals,
		DepositLimit:         r.DepositLimit,
		WithdrawalLimit:      r.WithdrawalLimit,
		WithdrawalDailyLimit: r.WithdrawalDailyLimit,
		Admin:                r.Admin,
	}
}

func (s *Server) handleRegisterMintAsset(c echo.Context) error {
	var req assetRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	address, err := s.service.RegisterMintAsset(req.params(), req.Signers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, addressResponse{Address: address})
}

func (s *Server) handleRegisterVaultAsset(c echo.Context) error {
	var req assetRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	address, err := s.service.RegisterVaultAsset(tokenproxy.VaultAssetParams{
		AssetParams: req.params(),
		Mint:        req.Mint,
	}, req.Signers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, addressResponse{Address: address})
}

type limitsRequest struct {
	signedRequest
	Emergency            bool   `json:"emergency"`
	DepositLimit         uint64 `json:"deposit_limit"`
	WithdrawalLimit      uint64 `json:"withdrawal_limit"`
	WithdrawalDailyLimit uint64 `json:"withdrawal_daily_limit"`
}

func (s *Server) handleChangeAssetSettings(c echo.Context) error {
	var req limitsRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	err := s.service.ChangeAssetSettings(c.Param("name"), tokenproxy.LimitsParams{
		Emergency:            req.Emergency,
		DepositLimit:         req.DepositLimit,
		WithdrawalLimit:      req.WithdrawalLimit,
		WithdrawalDailyLimit: req.WithdrawalDailyLimit,
	}, req.Signers)
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type adminRequest struct {
	signedRequest
	Admin types.Address `json:"admin"`
}

func (s *Server) handleChangeAssetAdmin(c echo.Context) error {
	var req adminRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	if err := s.service.ChangeAssetAdmin(c.Param("name"), req.Admin, req.Signers); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type vaultTransferRequest struct {
	signedRequest
	Destination types.Address `json:"destination"`
	Amount      uint64        `json:"amount"`
}

func (s *Server) handleTransferFromVault(c echo.Context) error {
	var req vaultTransferRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	if err := s.service.TransferFromVault(c.Param("name"), req.Destination, req.Amount, req.Signers); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type depositRequest struct {
	signedRequest
	Sender    types.Address        `json:"sender"`
	SeedLo    uint64               `json:"seed_lo"`
	SeedHi    uint64               `json:"seed_hi"`
	Amount    uint64               `json:"amount"`
	Recipient types.ForeignAddress `json:"recipient"`
}

func (s *Server) handleDeposit(c echo.Context) error {
	var req depositRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	address, err := s.service.Deposit(c.Param("name"), req.Sender, tokenproxy.DepositParams{
		SeedLo:    req.SeedLo,
		SeedHi:    req.SeedHi,
		Amount:    req.Amount,
		Recipient: req.Recipient,
	}, req.Signers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, addressResponse{Address: address})
}

type withdrawRequest struct {
	signedRequest
	Author             types.Address        `json:"author"`
	EventTimestamp     int64                `json:"event_timestamp"`
	EventTransactionLt uint64               `json:"event_transaction_lt"`
	EventConfiguration types.Address        `json:"event_configuration"`
	Sender             types.ForeignAddress `json:"sender"`
	Amount             uint64               `json:"amount"`
	Recipient          types.Address        `json:"recipient"`
	Funder             types.Address        `json:"funder"`
}

func (s *Server) handleRequestWithdrawal(c echo.Context) error {
	var req withdrawRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	address, err := s.service.RequestWithdrawal(c.Param("name"), tokenproxy.WithdrawRequestParams{
		Author:             req.Author,
		EventTimestamp:     req.EventTimestamp,
		EventTransactionLt: req.EventTransactionLt,
		EventConfiguration: req.EventConfiguration,
		Sender:             req.Sender,
		Amount:             req.Amount,
		Recipient:          req.Recipient,
	}, req.Funder, req.Signers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, addressResponse{Address: address})
}

func (s *Server) handleVoteWithdrawal(c echo.Context) error {
	address, err := parseAddressParam(c)
	if err != nil {
		return fail(c, err)
	}
	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	vote, err := parseVote(req.Vote)
	if err != nil {
		return fail(c, err)
	}
	if err := s.service.VoteWithdrawal(address, req.Relay, vote, req.Signers); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSettleWithdrawal(c echo.Context) error {
	address, err := parseAddressParam(c)
	if err != nil {
		return fail(c, err)
	}
	if err := s.service.SettleWithdrawal(address); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleApproveWithdrawal(c echo.Context) error {
	address, err := parseAddressParam(c)
	if err != nil {
		return fail(c, err)
	}
	var req signedRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	if err := s.service.ApproveWithdrawal(address, req.Signers); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type cancelRequest struct {
	signedRequest
	SeedLo    uint64                `json:"seed_lo"`
	SeedHi    uint64                `json:"seed_hi"`
	Recipient *types.ForeignAddress `json:"recipient,omitempty"`
}

func (s *Server) handleCancelWithdrawal(c echo.Context) error {
	address, err := parseAddressParam(c)
	if err != nil {
		return fail(c, err)
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	deposit, err := s.service.CancelWithdrawal(address, tokenproxy.CancelParams{
		SeedLo:    req.SeedLo,
		SeedHi:    req.SeedHi,
		Recipient: req.Recipient,
	}, req.Signers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, addressResponse{Address: deposit})
}

type fillRequest struct {
	signedRequest
	Filler    types.Address        `json:"filler"`
	SeedLo    uint64               `json:"seed_lo"`
	SeedHi    uint64               `json:"seed_hi"`
	Recipient types.ForeignAddress `json:"recipient"`
}

func (s *Server) handleFillWithdrawal(c echo.Context) error {
	address, err := parseAddressParam(c)
	if err != nil {
		return fail(c, err)
	}
	var req fillRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	deposit, err := s.service.FillWithdrawal(address, req.Filler, tokenproxy.FillParams{
		SeedLo:    req.SeedLo,
		SeedHi:    req.SeedHi,
		Recipient: req.Recipient,
	}, req.Signers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, addressResponse{Address: deposit})
}

type bountyRequest struct {
	signedRequest
	Bounty uint64 `json:"bounty"`
}

func (s *Server) handleSetBounty(c echo.Context) error {
	address, err := parseAddressParam(c)
	if err != nil {
		return fail(c, err)
	}
	var req bountyRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, err)
	}
	if err := s.service.SetBounty(address, req.Bounty, req.Signers); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListWithdrawals(c echo.Context) error {
	status, err := strconv.ParseUint(c.QueryParam("status"), 10, 8)
	if err != nil {
		return fail(c, fmt.Errorf("invalid status: %w", err))
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	rows, err := s.service.DbAdapter.FindWithdrawalsByStatus(types.WithdrawalStatus(status), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) handleListDeposits(c echo.Context) error {
	sender, err := types.AddressFromBase58(c.QueryParam("sender"))
	if err != nil {
		return fail(c, err)
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	rows, err := s.service.DbAdapter.FindDepositsBySender(sender, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}
