// Package token implements the fungible-token collaborator consumed by the
// sale engine: per-token balances and spending allowances persisted in the
// shared key-value state. It mirrors the transfer/transferFrom surface the
// engine depends on; it is not a general token standard.
package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
)

// Storage abstracts the subset of state manager functionality the ledger
// needs.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	balancePrefix   = []byte("token/bal/")
	allowancePrefix = []byte("token/allow/")
)

type amountRecord struct {
	Amount *big.Int
}

// Ledger persists fungible balances in the underlying key-value store.
type Ledger struct {
	store Storage
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store}
}

func balanceKey(token, holder common.Address) []byte {
	buf := make([]byte, 0, len(balancePrefix)+40)
	buf = append(buf, balancePrefix...)
	buf = append(buf, token.Bytes()...)
	buf = append(buf, holder.Bytes()...)
	return buf
}

func allowanceKey(token, owner, spender common.Address) []byte {
	buf := make([]byte, 0, len(allowancePrefix)+60)
	buf = append(buf, allowancePrefix...)
	buf = append(buf, token.Bytes()...)
	buf = append(buf, owner.Bytes()...)
	buf = append(buf, spender.Bytes()...)
	return buf
}

func sanitizeAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return nil, fmt.Errorf("token: amount required")
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("token: amount must not be negative")
	}
	return new(big.Int).Set(amount), nil
}

func (l *Ledger) loadAmount(key []byte) (*big.Int, error) {
	var stored amountRecord
	ok, err := l.store.KVGet(key, &stored)
	if err != nil {
		return nil, err
	}
	if !ok || stored.Amount == nil {
		return big.NewInt(0), nil
	}
	return stored.Amount, nil
}

func (l *Ledger) storeAmount(key []byte, amount *big.Int) error {
	return l.store.KVPut(key, amountRecord{Amount: amount})
}

// BalanceOf returns the holder's balance for the given token, zero if none.
func (l *Ledger) BalanceOf(token, holder common.Address) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, fmt.Errorf("token: ledger not initialised")
	}
	return l.loadAmount(balanceKey(token, holder))
}

// Mint credits the recipient. It exists for host bootstrap and tests, the
// same role the mock tokens play in the original deployment.
func (l *Ledger) Mint(token, to common.Address, amount *big.Int) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("token: ledger not initialised")
	}
	amt, err := sanitizeAmount(amount)
	if err != nil {
		return err
	}
	balance, err := l.loadAmount(balanceKey(token, to))
	if err != nil {
		return err
	}
	return l.storeAmount(balanceKey(token, to), new(big.Int).Add(balance, amt))
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("token: ledger not initialised")
	}
	amt, err := sanitizeAmount(amount)
	if err != nil {
		return err
	}
	fromBalance, err := l.loadAmount(balanceKey(token, from))
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amt) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromBalance, amt)
	}
	if from == to {
		return nil
	}
	toBalance, err := l.loadAmount(balanceKey(token, to))
	if err != nil {
		return err
	}
	if err := l.storeAmount(balanceKey(token, from), new(big.Int).Sub(fromBalance, amt)); err != nil {
		return err
	}
	return l.storeAmount(balanceKey(token, to), new(big.Int).Add(toBalance, amt))
}

// Approve sets the spender's allowance over the owner's balance.
func (l *Ledger) Approve(token, owner, spender common.Address, amount *big.Int) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("token: ledger not initialised")
	}
	amt, err := sanitizeAmount(amount)
	if err != nil {
		return err
	}
	return l.storeAmount(allowanceKey(token, owner, spender), amt)
}

// Allowance returns the remaining amount the spender may draw from the owner.
func (l *Ledger) Allowance(token, owner, spender common.Address) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, fmt.Errorf("token: ledger not initialised")
	}
	return l.loadAmount(allowanceKey(token, owner, spender))
}

// TransferFrom moves amount from the owner to the recipient on the spender's
// authority, consuming allowance.
func (l *Ledger) TransferFrom(token, spender, owner, to common.Address, amount *big.Int) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("token: ledger not initialised")
	}
	amt, err := sanitizeAmount(amount)
	if err != nil {
		return err
	}
	allowance, err := l.loadAmount(allowanceKey(token, owner, spender))
	if err != nil {
		return err
	}
	if allowance.Cmp(amt) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientAllowance, allowance, amt)
	}
	if err := l.Transfer(token, owner, to, amt); err != nil {
		return err
	}
	return l.storeAmount(allowanceKey(token, owner, spender), new(big.Int).Sub(allowance, amt))
}
