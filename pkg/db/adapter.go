// Package db persists ledger accounts and indexed bridge records in
// PostgreSQL. Accounts are the source of truth for replaying program
// operations; deposits, withdrawals and relay rounds are query projections
// maintained alongside them.
package db

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/scalarorg/bridge-core/config"
	"github.com/scalarorg/bridge-core/pkg/db/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type DatabaseAdapter struct {
	PostgresClient *gorm.DB
}

func NewDatabaseAdapter(cfg *config.Config) (*DatabaseAdapter, error) {
	client, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	err = client.AutoMigrate(
		&models.Account{},
		&models.Deposit{},
		&models.Withdrawal{},
		&models.RelayRound{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info().Msg("[DatabaseAdapter] connected to postgres")
	return &DatabaseAdapter{PostgresClient: client}, nil
}

func (da *DatabaseAdapter) Close() error {
	sqlDB, err := da.PostgresClient.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
