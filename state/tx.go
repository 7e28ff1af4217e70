package state

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"minerledger/core/events"
	"minerledger/receipt"
	"minerledger/sale"
	"minerledger/storage"
	"minerledger/token"
)

var (
	skuPrefix     = []byte("sale/sku/")
	claimPrefix   = []byte("sale/claim/")
	pausedKey     = []byte("sale/paused")
	maintainerKey = []byte("sale/maintainer")
	rolePrefix    = []byte("auth/role/")
)

type kvWrite struct {
	key   []byte
	value []byte
}

// Tx is one transactional view over the database: reads fall through to
// committed state, writes land in an ordered journal applied on commit.
type Tx struct {
	db      storage.Database
	overlay map[string][]byte
	journal []kvWrite
	events  []events.Event

	tokens   *token.Ledger
	receipts *receipt.Registry
}

func newTx(db storage.Database) *Tx {
	tx := &Tx{db: db, overlay: make(map[string][]byte)}
	tx.tokens = token.NewLedger(tx)
	tx.receipts = receipt.NewRegistry(tx)
	return tx
}

func (tx *Tx) commit() error {
	for _, write := range tx.journal {
		if err := tx.db.Put(write.key, write.value); err != nil {
			return err
		}
	}
	return nil
}

// KVGet decodes the stored value for a key, reporting whether it exists.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	raw, ok := tx.overlay[string(key)]
	if !ok {
		var err error
		raw, err = tx.db.Get(key)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVPut encodes and journals a value for a key.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	keyCopy := append([]byte(nil), key...)
	tx.overlay[string(key)] = raw
	tx.journal = append(tx.journal, kvWrite{key: keyCopy, value: raw})
	return nil
}

var _ sale.State = (*Tx)(nil)

type storedSKU struct {
	ID                   uint64
	UnitPrice            *big.Int
	Stock                *big.Int
	PaymentToken         common.Address
	PrimaryRewardToken   common.Address
	SecondaryRewardToken common.Address
	LiftTime             uint64
}

type indexRecord struct {
	Index *big.Int
}

type boolRecord struct {
	Value bool
}

type addressRecord struct {
	Addr common.Address
}

func uint64Key(prefix []byte, id uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	for i := 0; i < 8; i++ {
		buf[len(prefix)+i] = byte(id >> (56 - 8*i))
	}
	return buf
}

func claimKey(buyer common.Address, skuID uint64) []byte {
	buf := make([]byte, 0, len(claimPrefix)+common.AddressLength+8)
	buf = append(buf, claimPrefix...)
	buf = append(buf, buyer.Bytes()...)
	return uint64Key(buf, skuID)
}

func roleKey(role string, addr common.Address) []byte {
	buf := make([]byte, 0, len(rolePrefix)+len(role)+1+common.AddressLength)
	buf = append(buf, rolePrefix...)
	buf = append(buf, role...)
	buf = append(buf, '/')
	buf = append(buf, addr.Bytes()...)
	return buf
}

// SKUGet implements sale.State.
func (tx *Tx) SKUGet(id uint64) (*sale.SKU, bool, error) {
	var stored storedSKU
	ok, err := tx.KVGet(uint64Key(skuPrefix, id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	sku := &sale.SKU{
		ID:                   stored.ID,
		UnitPrice:            stored.UnitPrice,
		Stock:                stored.Stock,
		PaymentToken:         stored.PaymentToken,
		PrimaryRewardToken:   stored.PrimaryRewardToken,
		SecondaryRewardToken: stored.SecondaryRewardToken,
		LiftTime:             stored.LiftTime,
	}
	if sku.UnitPrice == nil {
		sku.UnitPrice = big.NewInt(0)
	}
	if sku.Stock == nil {
		sku.Stock = big.NewInt(0)
	}
	return sku, true, nil
}

// SKUPut implements sale.State.
func (tx *Tx) SKUPut(sku *sale.SKU) error {
	if sku == nil {
		return errors.New("state: nil sku")
	}
	stored := storedSKU{
		ID:                   sku.ID,
		UnitPrice:            sku.UnitPrice,
		Stock:                sku.Stock,
		PaymentToken:         sku.PaymentToken,
		PrimaryRewardToken:   sku.PrimaryRewardToken,
		SecondaryRewardToken: sku.SecondaryRewardToken,
		LiftTime:             sku.LiftTime,
	}
	if stored.UnitPrice == nil {
		stored.UnitPrice = big.NewInt(0)
	}
	if stored.Stock == nil {
		stored.Stock = big.NewInt(0)
	}
	return tx.KVPut(uint64Key(skuPrefix, sku.ID), stored)
}

// ClaimIndex implements sale.State. Pairs with no prior claim read as zero.
func (tx *Tx) ClaimIndex(buyer common.Address, skuID uint64) (*big.Int, error) {
	var stored indexRecord
	ok, err := tx.KVGet(claimKey(buyer, skuID), &stored)
	if err != nil {
		return nil, err
	}
	if !ok || stored.Index == nil {
		return big.NewInt(0), nil
	}
	return stored.Index, nil
}

// SetClaimIndex implements sale.State.
func (tx *Tx) SetClaimIndex(buyer common.Address, skuID uint64, index *big.Int) error {
	if index == nil {
		index = big.NewInt(0)
	}
	return tx.KVPut(claimKey(buyer, skuID), indexRecord{Index: index})
}

// Paused implements sale.State.
func (tx *Tx) Paused() (bool, error) {
	var stored boolRecord
	ok, err := tx.KVGet(pausedKey, &stored)
	if err != nil || !ok {
		return false, err
	}
	return stored.Value, nil
}

// SetPaused implements sale.State.
func (tx *Tx) SetPaused(paused bool) error {
	return tx.KVPut(pausedKey, boolRecord{Value: paused})
}

// Maintainer implements sale.State. The zero address means unset.
func (tx *Tx) Maintainer() (common.Address, error) {
	var stored addressRecord
	ok, err := tx.KVGet(maintainerKey, &stored)
	if err != nil || !ok {
		return common.Address{}, err
	}
	return stored.Addr, nil
}

// SetMaintainer implements sale.State.
func (tx *Tx) SetMaintainer(addr common.Address) error {
	return tx.KVPut(maintainerKey, addressRecord{Addr: addr})
}

// HasRole implements sale.State and receipt.Storage.
func (tx *Tx) HasRole(role string, addr common.Address) bool {
	var stored boolRecord
	ok, err := tx.KVGet(roleKey(role, addr), &stored)
	if err != nil || !ok {
		return false
	}
	return stored.Value
}

func (tx *Tx) setRole(role string, addr common.Address, granted bool) error {
	return tx.KVPut(roleKey(role, addr), boolRecord{Value: granted})
}

// TokenTransfer implements sale.State.
func (tx *Tx) TokenTransfer(tok, from, to common.Address, amount *big.Int) error {
	return tx.tokens.Transfer(tok, from, to, amount)
}

// TokenTransferFrom implements sale.State.
func (tx *Tx) TokenTransferFrom(tok, spender, owner, to common.Address, amount *big.Int) error {
	return tx.tokens.TransferFrom(tok, spender, owner, to, amount)
}

// MintReceipt implements sale.State.
func (tx *Tx) MintReceipt(minter, to common.Address, meta receipt.Meta) (uint64, error) {
	return tx.receipts.Mint(minter, to, meta)
}

// AppendEvent implements sale.State. Events surface at the emitter only when
// the transaction commits.
func (tx *Tx) AppendEvent(evt events.Event) {
	if evt == nil {
		return
	}
	tx.events = append(tx.events, evt)
}
