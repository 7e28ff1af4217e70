package sale

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Engine wires the sale and claim business logic with the transactional state
// backend. All funds taken in by purchases and paid out by claims move
// through the configured custody identity.
type Engine struct {
	backend Backend
	custody common.Address
}

// NewEngine creates an engine without a backend. Callers must configure one
// via SetBackend before invoking any operation.
func NewEngine() *Engine {
	return &Engine{}
}

// SetBackend configures the transactional state backend used by the engine.
func (e *Engine) SetBackend(backend Backend) { e.backend = backend }

// SetCustody configures the identity holding engine funds and the receipt
// minter capability.
func (e *Engine) SetCustody(addr common.Address) { e.custody = addr }

// Custody returns the engine's fund-holding identity.
func (e *Engine) Custody() common.Address { return e.custody }

func (e *Engine) inTx(fn func(State) error) error {
	if e == nil || e.backend == nil {
		return errNilBackend
	}
	return e.backend.InTransaction(fn)
}

func guardNotPaused(st State) error {
	paused, err := st.Paused()
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}

// SKU returns the stored record for an identifier.
func (e *Engine) SKU(id uint64) (*SKU, bool, error) {
	var (
		sku *SKU
		ok  bool
	)
	err := e.inTx(func(st State) error {
		var err error
		sku, ok, err = st.SKUGet(id)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return sku, ok, nil
}

// ClaimIndex returns the last accepted claim index for a buyer/SKU pair,
// zero if the pair has never claimed.
func (e *Engine) ClaimIndex(buyer common.Address, skuID uint64) (*big.Int, error) {
	var index *big.Int
	err := e.inTx(func(st State) error {
		var err error
		index, err = st.ClaimIndex(buyer, skuID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}

// Paused reports the current pause flag.
func (e *Engine) Paused() (bool, error) {
	var paused bool
	err := e.inTx(func(st State) error {
		var err error
		paused, err = st.Paused()
		return err
	})
	if err != nil {
		return false, err
	}
	return paused, nil
}

// Maintainer returns the identity whose signature authorizes claims.
func (e *Engine) Maintainer() (common.Address, error) {
	var maintainer common.Address
	err := e.inTx(func(st State) error {
		var err error
		maintainer, err = st.Maintainer()
		return err
	})
	if err != nil {
		return common.Address{}, err
	}
	return maintainer, nil
}
