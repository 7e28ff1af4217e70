// Package receipt implements the purchase-receipt collaborator: a registry of
// sequential, globally unique receipt identifiers carrying the SKU and size
// they were minted for. Ownership here is a plain record; transfer semantics
// live outside this core.
package receipt

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RoleMinter gates minting. The deployment host grants it to the sale
// engine's custody identity before the first purchase.
const RoleMinter = "ROLE_MINTER"

var (
	ErrUnauthorizedMinter = errors.New("receipt: unauthorized minter")
	ErrNotFound           = errors.New("receipt: not found")
)

// Meta is the purchase metadata attached to a receipt at mint time.
type Meta struct {
	SkuID    uint64
	Size     *big.Int
	LiftTime uint64
}

// Storage abstracts the state functionality the registry needs.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	HasRole(role string, addr common.Address) bool
}

var (
	counterKey   = []byte("receipt/counter")
	recordPrefix = []byte("receipt/record/")
)

type storedReceipt struct {
	Owner    common.Address
	SkuID    uint64
	Size     *big.Int
	LiftTime uint64
}

type counterRecord struct {
	Last uint64
}

// Registry persists receipts in the underlying key-value store.
type Registry struct {
	store Storage
}

// NewRegistry constructs a registry bound to the provided storage backend.
func NewRegistry(store Storage) *Registry {
	return &Registry{store: store}
}

func recordKey(id uint64) []byte {
	buf := make([]byte, len(recordPrefix)+8)
	copy(buf, recordPrefix)
	for i := 0; i < 8; i++ {
		buf[len(recordPrefix)+i] = byte(id >> (56 - 8*i))
	}
	return buf
}

// Mint issues the next receipt identifier to the recipient. Identifiers are
// sequential starting at 1 and never reused.
func (r *Registry) Mint(minter, to common.Address, meta Meta) (uint64, error) {
	if r == nil || r.store == nil {
		return 0, fmt.Errorf("receipt: registry not initialised")
	}
	if !r.store.HasRole(RoleMinter, minter) {
		return 0, ErrUnauthorizedMinter
	}
	size := meta.Size
	if size == nil {
		size = big.NewInt(0)
	}
	if size.Sign() < 0 {
		return 0, fmt.Errorf("receipt: size must not be negative")
	}
	var counter counterRecord
	if _, err := r.store.KVGet(counterKey, &counter); err != nil {
		return 0, err
	}
	id := counter.Last + 1
	stored := storedReceipt{
		Owner:    to,
		SkuID:    meta.SkuID,
		Size:     new(big.Int).Set(size),
		LiftTime: meta.LiftTime,
	}
	if err := r.store.KVPut(recordKey(id), stored); err != nil {
		return 0, err
	}
	if err := r.store.KVPut(counterKey, counterRecord{Last: id}); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns the owner and metadata recorded for a receipt.
func (r *Registry) Get(id uint64) (common.Address, *Meta, error) {
	if r == nil || r.store == nil {
		return common.Address{}, nil, fmt.Errorf("receipt: registry not initialised")
	}
	var stored storedReceipt
	ok, err := r.store.KVGet(recordKey(id), &stored)
	if err != nil {
		return common.Address{}, nil, err
	}
	if !ok {
		return common.Address{}, nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	size := stored.Size
	if size == nil {
		size = big.NewInt(0)
	}
	meta := &Meta{
		SkuID:    stored.SkuID,
		Size:     new(big.Int).Set(size),
		LiftTime: stored.LiftTime,
	}
	return stored.Owner, meta, nil
}

// Count reports how many receipts have been minted.
func (r *Registry) Count() (uint64, error) {
	if r == nil || r.store == nil {
		return 0, fmt.Errorf("receipt: registry not initialised")
	}
	var counter counterRecord
	if _, err := r.store.KVGet(counterKey, &counter); err != nil {
		return 0, err
	}
	return counter.Last, nil
}
