// Package models holds the relational projections of on-ledger state: raw
// accounts for replaying program operations, plus indexed views of deposits,
// withdrawals and relay rounds for queries.
package models

import "time"

// Account mirrors one ledger storage account byte for byte. Address and
// Owner are base58.
type Account struct {
	Address   string `gorm:"primaryKey;size:64"`
	Owner     string `gorm:"size:64;index"`
	Lamports  uint64
	Data      []byte `gorm:"type:bytea"`
	UpdatedAt time.Time
}

// Deposit is the indexed view of a deposit record.
type Deposit struct {
	ID        uint   `gorm:"primaryKey"`
	Address   string `gorm:"size:64;uniqueIndex"`
	Asset     string `gorm:"size:64;index"`
	Sender    string `gorm:"size:64;index"`
	Amount    uint64
	Recipient string `gorm:"size:80"`
	SeedLo    uint64
	SeedHi    uint64
	CreatedAt time.Time
}

// Withdrawal is the indexed view of a withdrawal request and its settlement
// status.
type Withdrawal struct {
	ID            uint   `gorm:"primaryKey"`
	Address       string `gorm:"size:64;uniqueIndex"`
	Asset         string `gorm:"size:64;index"`
	Author        string `gorm:"size:64;index"`
	Recipient     string `gorm:"size:64"`
	Amount        uint64
	Bounty        uint64
	Status        uint8 `gorm:"index"`
	RoundNumber   uint32
	RequiredVotes uint32
	Confirmations uint32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RelayRound is the indexed view of one relay round.
type RelayRound struct {
	ID          uint   `gorm:"primaryKey"`
	Address     string `gorm:"size:64;uniqueIndex"`
	RoundNumber uint32 `gorm:"uniqueIndex"`
	RoundEnd    int64
	Relays      string `gorm:"type:text"` // comma-joined base58 addresses
	CreatedAt   time.Time
}
