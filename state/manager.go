// Package state persists the sale ledger in a key-value database and gives
// every engine operation an all-or-nothing transactional scope: writes and
// events buffer in a journal and reach the database and the emitter only when
// the operation returns nil.
package state

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"minerledger/core/events"
	"minerledger/receipt"
	"minerledger/sale"
	"minerledger/storage"
)

// Manager owns the database handle and serializes all state-mutating calls,
// which is the execution model the engines assume: one logical thread, no
// mutation observed mid-operation.
type Manager struct {
	mu      sync.Mutex
	db      storage.Database
	emitter events.Emitter
}

// NewManager constructs a manager over the provided database with a no-op
// emitter. Callers can override the emitter via SetEmitter.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, emitter: events.NoopEmitter{}}
}

// SetEmitter configures where committed events are delivered. Passing nil
// resets to a no-op implementation.
func (m *Manager) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		m.emitter = events.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

var _ sale.Backend = (*Manager)(nil)

// InTransaction implements sale.Backend.
func (m *Manager) InTransaction(fn func(sale.State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := newTx(m.db)
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.commit(); err != nil {
		return err
	}
	for _, evt := range tx.events {
		m.emitter.Emit(evt)
	}
	return nil
}

// GrantRole records a role membership. This is the host's bootstrap surface;
// runtime authorization flows through sale.State.HasRole.
func (m *Manager) GrantRole(role string, addr common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := newTx(m.db)
	if err := tx.setRole(role, addr, true); err != nil {
		return err
	}
	return tx.commit()
}

// RevokeRole removes a role membership.
func (m *Manager) RevokeRole(role string, addr common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := newTx(m.db)
	if err := tx.setRole(role, addr, false); err != nil {
		return err
	}
	return tx.commit()
}

// HasRole reports a role membership outside any transaction.
func (m *Manager) HasRole(role string, addr common.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newTx(m.db).HasRole(role, addr)
}

// MintToken credits a holder directly, mirroring the faucet role the mock
// tokens play in test and local deployments.
func (m *Manager) MintToken(token, to common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := newTx(m.db)
	if err := tx.tokens.Mint(token, to, amount); err != nil {
		return err
	}
	return tx.commit()
}

// ApproveToken sets the spender's allowance over the owner's balance.
func (m *Manager) ApproveToken(token, owner, spender common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := newTx(m.db)
	if err := tx.tokens.Approve(token, owner, spender, amount); err != nil {
		return err
	}
	return tx.commit()
}

// TokenBalance returns a holder's balance for a token.
func (m *Manager) TokenBalance(token, holder common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newTx(m.db).tokens.BalanceOf(token, holder)
}

// TokenAllowance returns the remaining allowance a spender holds.
func (m *Manager) TokenAllowance(token, owner, spender common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newTx(m.db).tokens.Allowance(token, owner, spender)
}

// Receipt returns the owner and metadata of a minted receipt.
func (m *Manager) Receipt(id uint64) (common.Address, *receipt.Meta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newTx(m.db).receipts.Get(id)
}

// ReceiptCount reports how many receipts have been minted.
func (m *Manager) ReceiptCount() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newTx(m.db).receipts.Count()
}
