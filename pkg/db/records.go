package db

import (
	"fmt"
	"strings"

	"github.com/scalarorg/bridge-core/pkg/db/models"
	"github.com/scalarorg/bridge-core/pkg/types"
	"gorm.io/gorm/clause"
)

// IndexDeposit upserts the query projection of a deposit record.
func (da *DatabaseAdapter) IndexDeposit(row *models.Deposit) error {
	result := da.PostgresClient.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(row)
	if result.Error != nil {
		return fmt.Errorf("failed to index deposit: %w", result.Error)
	}
	return nil
}

// IndexWithdrawal upserts the query projection of a withdrawal, refreshing
// the mutable consensus and settlement fields.
func (da *DatabaseAdapter) IndexWithdrawal(row *models.Withdrawal) error {
	result := da.PostgresClient.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "bounty", "confirmations", "updated_at"}),
	}).Create(row)
	if result.Error != nil {
		return fmt.Errorf("failed to index withdrawal: %w", result.Error)
	}
	return nil
}

// IndexRelayRound records one relay round; rounds are immutable so replays
// are ignored.
func (da *DatabaseAdapter) IndexRelayRound(row *models.RelayRound) error {
	result := da.PostgresClient.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(row)
	if result.Error != nil {
		return fmt.Errorf("failed to index relay round: %w", result.Error)
	}
	return nil
}

// FindWithdrawalsByStatus lists withdrawals in one settlement state, oldest
// first.
func (da *DatabaseAdapter) FindWithdrawalsByStatus(status types.WithdrawalStatus, limit int) ([]models.Withdrawal, error) {
	var rows []models.Withdrawal
	query := da.PostgresClient.Where("status = ?", uint8(status)).Order("created_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find withdrawals: %w", err)
	}
	return rows, nil
}

// FindDepositsBySender lists a sender's deposits, newest first.
func (da *DatabaseAdapter) FindDepositsBySender(sender types.Address, limit int) ([]models.Deposit, error) {
	var rows []models.Deposit
	query := da.PostgresClient.Where("sender = ?", sender.String()).Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find deposits: %w", err)
	}
	return rows, nil
}

// LatestRelayRound returns the highest-numbered indexed round.
func (da *DatabaseAdapter) LatestRelayRound() (*models.RelayRound, error) {
	var row models.RelayRound
	if err := da.PostgresClient.Order("round_number desc").First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// JoinRelays flattens a relay set for storage.
func JoinRelays(relays []types.Address) string {
	parts := make([]string, 0, len(relays))
	for _, r := range relays {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ",")
}
