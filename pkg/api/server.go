// Package api exposes the bridge operations over HTTP. Every mutating
// operation maps to one POST endpoint; reads come from the indexed
// projections.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/scalarorg/bridge-core/config"
	"github.com/scalarorg/bridge-core/internal/bridge"
	"github.com/scalarorg/bridge-core/pkg/db"
	"github.com/scalarorg/bridge-core/pkg/pda"
	"github.com/scalarorg/bridge-core/pkg/program"
)

type Server struct {
	echo    *echo.Echo
	service *bridge.Service
	addr    string
}

func NewServer(cfg *config.APIConfig, service *bridge.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		service: service,
		addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.echo.Group("/v1")

	v1.POST("/rounds/genesis", s.handleGenesis)
	v1.POST("/rounds/settings", s.handleUpdateRoundSettings)
	v1.POST("/rounds", s.handleCreateRelayRound)

	v1.POST("/proposals", s.handleCreateProposal)
	v1.POST("/proposals/:address/write", s.handleWriteProposal)
	v1.POST("/proposals/:address/finalize", s.handleFinalizeProposal)
	v1.POST("/proposals/:address/vote", s.handleVoteProposal)
	v1.POST("/proposals/:address/execute", s.handleExecuteProposal)

	v1.POST("/assets/mint", s.handleRegisterMintAsset)
	v1.POST("/assets/vault", s.handleRegisterVaultAsset)
	v1.POST("/assets/:name/settings", s.handleChangeAssetSettings)
	v1.POST("/assets/:name/admin", s.handleChangeAssetAdmin)
	v1.POST("/assets/:name/vault-transfer", s.handleTransferFromVault)
	v1.POST("/assets/:name/deposits", s.handleDeposit)
	v1.POST("/assets/:name/withdrawals", s.handleRequestWithdrawal)

	v1.POST("/withdrawals/:address/vote", s.handleVoteWithdrawal)
	v1.POST("/withdrawals/:address/settle", s.handleSettleWithdrawal)
	v1.POST("/withdrawals/:address/approve", s.handleApproveWithdrawal)
	v1.POST("/withdrawals/:address/cancel", s.handleCancelWithdrawal)
	v1.POST("/withdrawals/:address/fill", s.handleFillWithdrawal)
	v1.POST("/withdrawals/:address/bounty", s.handleSetBounty)

	v1.GET("/withdrawals", s.handleListWithdrawals)
	v1.GET("/deposits", s.handleListDeposits)
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("[API] server listening")
	err := s.echo.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// httpStatus maps program and storage errors onto HTTP codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, program.ErrMissingSignature):
		return http.StatusUnauthorized
	case errors.Is(err, db.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, program.ErrInvalidArgument),
		errors.Is(err, program.ErrInvalidRelay),
		errors.Is(err, program.ErrInvalidRelayRound),
		errors.Is(err, program.ErrInvalidWithdrawalStatus),
		errors.Is(err, pda.ErrInvalidSeeds):
		return http.StatusBadRequest
	case errors.Is(err, program.ErrAlreadyInitialized),
		errors.Is(err, program.ErrProposalAlreadyFinalized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c echo.Context, err error) error {
	return c.JSON(httpStatus(err), map[string]string{"error": err.Error()})
}
