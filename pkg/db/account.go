package db

import (
	"errors"
	"fmt"

	"github.com/scalarorg/bridge-core/pkg/db/models"
	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAccountNotFound reports a missing ledger account.
var ErrAccountNotFound = errors.New("db: account not found")

// SaveAccounts upserts the raw state of the given accounts in one
// transaction, so a program operation's writes land atomically.
func (da *DatabaseAdapter) SaveAccounts(accounts ...*program.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	rows := make([]models.Account, 0, len(accounts))
	for _, acc := range accounts {
		rows = append(rows, models.Account{
			Address:  acc.Address.String(),
			Owner:    acc.Owner.String(),
			Lamports: acc.Lamports,
			Data:     append([]byte(nil), acc.Data...),
		})
	}
	err := da.PostgresClient.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner", "lamports", "data", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}
	return nil
}

// GetAccount loads one account by address.
func (da *DatabaseAdapter) GetAccount(address types.Address) (*program.Account, error) {
	var row models.Account
	result := da.PostgresClient.Where("address = ?", address.String()).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, result.Error
	}
	return accountFromModel(&row)
}

// GetOrCreateAccount loads an account, creating a zeroed one of the given
// size and owner when none exists yet.
func (da *DatabaseAdapter) GetOrCreateAccount(address, owner types.Address, size int) (*program.Account, error) {
	acc, err := da.GetAccount(address)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}
	acc = &program.Account{
		Address: address,
		Owner:   owner,
		Data:    make([]byte, size),
	}
	if err := da.SaveAccounts(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func accountFromModel(row *models.Account) (*program.Account, error) {
	address, err := types.AddressFromBase58(row.Address)
	if err != nil {
		return nil, err
	}
	owner, err := types.AddressFromBase58(row.Owner)
	if err != nil {
		return nil, err
	}
	return &program.Account{
		Address:  address,
		Owner:    owner,
		Lamports: row.Lamports,
		Data:     append([]byte(nil), row.Data...),
	}, nil
}
