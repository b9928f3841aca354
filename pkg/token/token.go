// Package token is the fungible-token primitive the bridge consumes:
// initialize-mint, initialize-account, transfer, burn and mint-to over packed
// ledger accounts. The bridge treats it as an external collaborator and only
// depends on the operations below.
package token

import (
	"github.com/scalarorg/bridge-core/pkg/codec"
	"github.com/scalarorg/bridge-core/pkg/program"
	"github.com/scalarorg/bridge-core/pkg/types"
)

const (
	// PackedMintLen is the exact packed size of a Mint record.
	PackedMintLen = 1 + 1 + types.AddressLen + 8
	// PackedAccountLen is the exact packed size of a token Account record.
	PackedAccountLen = 1 + types.AddressLen + types.AddressLen + 8
)

// Mint describes one fungible asset.
type Mint struct {
	IsInitialized bool
	Decimals      uint8
	Authority     types.Address
	Supply        uint64
}

func (m *Mint) Pack(buf []byte) error {
	w := codec.NewWriter(buf)
	w.WriteBool(m.IsInitialized)
	w.WriteUint8(m.Decimals)
	w.WriteAddress(m.Authority)
	w.WriteUint64(m.Supply)
	return w.Err()
}

func UnpackMint(buf []byte) (*Mint, error) {
	r := codec.NewReader(buf)
	m := &Mint{
		IsInitialized: r.ReadBool(),
		Decimals:      r.ReadUint8(),
		Authority:     r.ReadAddress(),
		Supply:        r.ReadUint64(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Account holds a balance of one mint for one owner.
type Account struct {
	IsInitialized bool
	Mint          types.Address
	Owner         types.Address
	Amount        uint64
}

func (a *Account) Pack(buf []byte) error {
	w := codec.NewWriter(buf)
	w.WriteBool(a.IsInitialized)
	w.WriteAddress(a.Mint)
	w.WriteAddress(a.Owner)
	w.WriteUint64(a.Amount)
	return w.Err()
}

func UnpackAccount(buf []byte) (*Account, error) {
	r := codec.NewReader(buf)
	a := &Account{
		IsInitialized: r.ReadBool(),
		Mint:          r.ReadAddress(),
		Owner:         r.ReadAddress(),
		Amount:        r.ReadUint64(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

// Program executes token operations. ID is the token program identity that
// must own every mint and token account it touches.
type Program struct {
	ID types.Address
}

func New(id types.Address) *Program {
	return &Program{ID: id}
}

func (p *Program) InitializeMint(acc *program.Account, decimals uint8, authority types.Address) error {
	if err := program.RequireOwner(acc, p.ID); err != nil {
		return err
	}
	if len(acc.Data) < PackedMintLen {
		return program.ErrAccountDataTooSmall
	}
	if m, err := UnpackMint(acc.Data); err == nil && m.IsInitialized {
		return program.ErrAlreadyInitialized
	}
	m := &Mint{IsInitialized: true, Decimals: decimals, Authority: authority}
	return m.Pack(acc.Data)
}

func (p *Program) InitializeAccount(acc *program.Account, mint, owner types.Address) error {
	if err := program.RequireOwner(acc, p.ID); err != nil {
		return err
	}
	if len(acc.Data) < PackedAccountLen {
		return program.ErrAccountDataTooSmall
	}
	if a, err := UnpackAccount(acc.Data); err == nil && a.IsInitialized {
		return program.ErrAlreadyInitialized
	}
	a := &Account{IsInitialized: true, Mint: mint, Owner: owner}
	return a.Pack(acc.Data)
}

// MintTo issues amount new tokens to dest. Requires the mint authority's
// signature.
func (p *Program) MintTo(mintAcc, dest *program.Account, amount uint64, signers program.Signers) error {
	if err := program.RequireOwner(mintAcc, p.ID); err != nil {
		return err
	}
	if err := program.RequireOwner(dest, p.ID); err != nil {
		return err
	}
	m, err := UnpackMint(mintAcc.Data)
	if err != nil {
		return err
	}
	d, err := UnpackAccount(dest.Data)
	if err != nil {
		return err
	}
	if !m.IsInitialized || !d.IsInitialized {
		return program.ErrNotInitialized
	}
	if d.Mint != mintAcc.Address {
		return program.ErrInvalidArgument
	}
	if err := signers.RequireSigner(m.Authority); err != nil {
		return err
	}
	if m.Supply+amount < m.Supply || d.Amount+amount < d.Amount {
		return program.ErrOverflow
	}
	m.Supply += amount
	d.Amount += amount
	if err := m.Pack(mintAcc.Data); err != nil {
		return err
	}
	return d.Pack(dest.Data)
}

// Burn destroys amount tokens held by source. Requires the source owner's
// signature.
func (p *Program) Burn(mintAcc, source *program.Account, amount uint64, signers program.Signers) error {
	if err := program.RequireOwner(mintAcc, p.ID); err != nil {
		return err
	}
	if err := program.RequireOwner(source, p.ID); err != nil {
		return err
	}
	m, err := UnpackMint(mintAcc.Data)
	if err != nil {
		return err
	}
	s, err := UnpackAccount(source.Data)
	if err != nil {
		return err
	}
	if !m.IsInitialized || !s.IsInitialized {
		return program.ErrNotInitialized
	}
	if s.Mint != mintAcc.Address {
		return program.ErrInvalidArgument
	}
	if err := signers.RequireSigner(s.Owner); err != nil {
		return err
	}
	if s.Amount < amount || m.Supply < amount {
		return program.ErrInsufficientFunds
	}
	m.Supply -= amount
	s.Amount -= amount
	if err := m.Pack(mintAcc.Data); err != nil {
		return err
	}
	return s.Pack(source.Data)
}

// Transfer moves amount between two accounts of the same mint. Requires the
// source owner's signature.
func (p *Program) Transfer(source, dest *program.Account, amount uint64, signers program.Signers) error {
	if err := program.RequireOwner(source, p.ID); err != nil {
		return err
	}
	if err := program.RequireOwner(dest, p.ID); err != nil {
		return err
	}
	s, err := UnpackAccount(source.Data)
	if err != nil {
		return err
	}
	d, err := UnpackAccount(dest.Data)
	if err != nil {
		return err
	}
	if !s.IsInitialized || !d.IsInitialized {
		return program.ErrNotInitialized
	}
	if s.Mint != d.Mint {
		return program.ErrInvalidArgument
	}
	if err := signers.RequireSigner(s.Owner); err != nil {
		return err
	}
	if s.Amount < amount {
		return program.ErrInsufficientFunds
	}
	if d.Amount+amount < d.Amount {
		return program.ErrOverflow
	}
	s.Amount -= amount
	d.Amount += amount
	if err := s.Pack(source.Data); err != nil {
		return err
	}
	return d.Pack(dest.Data)
}
