package sale

import (
	"fmt"
	"math/big"

	"minerledger/core/events"

	"github.com/ethereum/go-ethereum/common"
)

// AddSKU registers a new inventory line. Only admins may call it and an
// identifier can be registered once; zero stock is the terminal sold-out
// state, records are never deleted.
func (e *Engine) AddSKU(caller common.Address, sku *SKU) error {
	return e.inTx(func(st State) error {
		if !st.HasRole(RoleAdmin, caller) {
			return ErrUnauthorized
		}
		sanitized, err := sanitizeSKU(sku)
		if err != nil {
			return err
		}
		if _, ok, err := st.SKUGet(sanitized.ID); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("%w: %d", ErrSKUExists, sanitized.ID)
		}
		if err := st.SKUPut(sanitized); err != nil {
			return err
		}
		st.AppendEvent(events.SKUAdded{
			ID:                   sanitized.ID,
			UnitPrice:            cloneBigInt(sanitized.UnitPrice),
			Stock:                cloneBigInt(sanitized.Stock),
			PaymentToken:         sanitized.PaymentToken,
			PrimaryRewardToken:   sanitized.PrimaryRewardToken,
			SecondaryRewardToken: sanitized.SecondaryRewardToken,
			LiftTime:             sanitized.LiftTime,
		})
		return nil
	})
}

// UpdateSKU overwrites the unit price and stock of an existing record. Token
// addresses and lift time are immutable after creation. Authorization is
// checked before the arguments are touched.
func (e *Engine) UpdateSKU(caller common.Address, id uint64, unitPrice, stock *big.Int) error {
	return e.inTx(func(st State) error {
		if !st.HasRole(RoleAdmin, caller) {
			return ErrUnauthorized
		}
		if unitPrice != nil && unitPrice.Sign() < 0 {
			return fmt.Errorf("sale: unit price must not be negative")
		}
		if stock != nil && stock.Sign() < 0 {
			return fmt.Errorf("sale: stock must not be negative")
		}
		sku, ok, err := st.SKUGet(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %d", ErrSKUNotFound, id)
		}
		sku.UnitPrice = cloneBigInt(unitPrice)
		sku.Stock = cloneBigInt(stock)
		if err := st.SKUPut(sku); err != nil {
			return err
		}
		st.AppendEvent(events.SKUUpdated{
			ID:        id,
			UnitPrice: cloneBigInt(sku.UnitPrice),
			Stock:     cloneBigInt(sku.Stock),
		})
		return nil
	})
}

// decrementStock reduces a SKU's remaining stock within the caller's
// transactional scope. Invoked only by the purchase path.
func decrementStock(st State, sku *SKU, size *big.Int) error {
	if sku.Stock == nil || sku.Stock.Cmp(size) < 0 {
		return fmt.Errorf("%w: sku %d has %s, want %s", ErrInsufficientStock, sku.ID, cloneBigInt(sku.Stock), size)
	}
	sku.Stock = new(big.Int).Sub(sku.Stock, size)
	return st.SKUPut(sku)
}
