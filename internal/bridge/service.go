// Package bridge coordinates the on-ledger programs against persistent
// storage: it loads accounts, runs round-loader and token-proxy operations,
// persists the results and publishes the resulting events.
package bridge

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/scalarorg/bridge-core/config"
	"github.com/scalarorg/bridge-core/pkg/db"
	"github.com/scalarorg/bridge-core/pkg/events"
	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/roundloader"
	"github.com/scalarorg/bridge-core/pkg/services/rabbitmq"
	"github.com/scalarorg/bridge-core/pkg/token"
	"github.com/scalarorg/bridge-core/pkg/tokenproxy"
	"github.com/scalarorg/bridge-core/pkg/types"
)

type Service struct {
	DbAdapter *db.DatabaseAdapter
	EventBus  *events.Bus

	RoundLoader *roundloader.Program
	TokenProxy  *tokenproxy.Program
	Token       *token.Program

	rabbit *rabbitmq.Client
	cancel context.CancelFunc
}

func NewService(cfg *config.Config, dbAdapter *db.DatabaseAdapter, eventBus *events.Bus) (*Service, error) {
	roundLoaderID, err := types.AddressFromBase58(cfg.Programs.RoundLoader)
	if err != nil {
		return nil, fmt.Errorf("invalid round loader address: %w", err)
	}
	tokenProxyID, err := types.AddressFromBase58(cfg.Programs.TokenProxy)
	if err != nil {
		return nil, fmt.Errorf("invalid token proxy address: %w", err)
	}
	tokenID, err := types.AddressFromBase58(cfg.Programs.Token)
	if err != nil {
		return nil, fmt.Errorf("invalid token program address: %w", err)
	}
	upgradeAuthority, err := types.AddressFromBase58(cfg.Programs.UpgradeAuthority)
	if err != nil {
		return nil, fmt.Errorf("invalid upgrade authority address: %w", err)
	}

	clock := program.SystemClock{}
	tokenProgram := token.New(tokenID)
	tokenProxy, err := tokenproxy.New(tokenProxyID, roundLoaderID, tokenProgram, clock)
	if err != nil {
		return nil, fmt.Errorf("failed to create token proxy program: %w", err)
	}

	service := &Service{
		DbAdapter:   dbAdapter,
		EventBus:    eventBus,
		RoundLoader: roundloader.New(roundLoaderID, upgradeAuthority, clock),
		TokenProxy:  tokenProxy,
		Token:       tokenProgram,
	}

	if cfg.RabbitMQ.Enabled {
		service.rabbit, err = rabbitmq.NewClient(&cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("failed to create rabbitmq client: %w", err)
		}
	}
	return service, nil
}

// Start begins forwarding bus events to the broker when one is configured.
func (s *Service) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	if s.rabbit != nil {
		for _, topic := range []string{
			events.EVENT_DEPOSIT_CREATED,
			events.EVENT_WITHDRAWAL_STATUS_CHANGED,
			events.EVENT_PROPOSAL_EXECUTED,
			events.EVENT_RELAY_ROUND_CREATED,
		} {
			go s.rabbit.Pump(ctx, s.EventBus.Subscribe(topic))
		}
	}
	log.Info().Msg("[Bridge] service started")
	return nil
}

func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.rabbit != nil {
		s.rabbit.Close()
	}
	s.EventBus.Close()
	log.Info().Msg("[Bridge] service stopped")
}

// loadAccount fetches an existing account or creates a zeroed one of the
// given size owned by owner.
func (s *Service) loadAccount(address, owner types.Address, size int) (*program.Account, error) {
	return s.DbAdapter.GetOrCreateAccount(address, owner, size)
}

// loadFunder fetches an account expected to carry a lamport balance.
func (s *Service) loadFunder(address types.Address) (*program.Account, error) {
	return s.DbAdapter.GetAccount(address)
}

func logIndexError(kind string, address types.Address, err error) {
	log.Error().Err(err).Str("address", address.String()).Msgf("[Bridge] failed to index %s", kind)
}
