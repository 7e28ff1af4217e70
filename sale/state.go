package sale

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"minerledger/core/events"
	"minerledger/receipt"
)

// State describes the functionality the sale and claim engines need from the
// surrounding state implementation. Every method observes and mutates the
// same transactional scope; nothing here is visible outside it until the
// enclosing operation commits.
type State interface {
	SKUGet(id uint64) (*SKU, bool, error)
	SKUPut(sku *SKU) error

	ClaimIndex(buyer common.Address, skuID uint64) (*big.Int, error)
	SetClaimIndex(buyer common.Address, skuID uint64, index *big.Int) error

	Paused() (bool, error)
	SetPaused(paused bool) error
	Maintainer() (common.Address, error)
	SetMaintainer(addr common.Address) error

	HasRole(role string, addr common.Address) bool

	TokenTransfer(token, from, to common.Address, amount *big.Int) error
	TokenTransferFrom(token, spender, owner, to common.Address, amount *big.Int) error
	MintReceipt(minter, to common.Address, meta receipt.Meta) (uint64, error)

	AppendEvent(evt events.Event)
}

// Backend runs a function against a transactional view of the ledger state.
// The host commits every write and buffered event when the function returns
// nil, and discards all of them when it returns an error. This is the whole
// atomicity story: no partial charge, no partial stock loss.
type Backend interface {
	InTransaction(fn func(State) error) error
}
