package sale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"minerledger/core/events"
	"minerledger/receipt"
)

func checkedPayment(unitPrice, size *big.Int) (*big.Int, error) {
	price, overflow := uint256.FromBig(unitPrice)
	if overflow {
		return nil, fmt.Errorf("%w: unit price exceeds 256 bits", ErrPriceOverflow)
	}
	qty, overflow := uint256.FromBig(size)
	if overflow {
		return nil, fmt.Errorf("%w: size exceeds 256 bits", ErrPriceOverflow)
	}
	total, overflow := new(uint256.Int).MulOverflow(price, qty)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrPriceOverflow, unitPrice, size)
	}
	return total.ToBig(), nil
}

// Purchase sells size units of a SKU to the buyer: stock is decremented,
// payment is pulled from the buyer into custody, and a receipt is minted. The
// three effects commit together or not at all.
func (e *Engine) Purchase(buyer common.Address, skuID uint64, size *big.Int) (uint64, error) {
	var receiptID uint64
	err := e.inTx(func(st State) error {
		if err := guardNotPaused(st); err != nil {
			return err
		}
		if size == nil || size.Sign() <= 0 {
			return fmt.Errorf("sale: size must be positive")
		}
		sku, ok, err := st.SKUGet(skuID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %d", ErrSKUNotFound, skuID)
		}
		payment, err := checkedPayment(sku.UnitPrice, size)
		if err != nil {
			return err
		}
		if err := decrementStock(st, sku, size); err != nil {
			return err
		}
		if err := st.TokenTransferFrom(sku.PaymentToken, e.custody, buyer, e.custody, payment); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		id, err := st.MintReceipt(e.custody, buyer, receipt.Meta{
			SkuID:    skuID,
			Size:     new(big.Int).Set(size),
			LiftTime: sku.LiftTime,
		})
		if err != nil {
			return err
		}
		receiptID = id
		st.AppendEvent(events.Purchased{
			Buyer:     buyer,
			SKUID:     skuID,
			Size:      new(big.Int).Set(size),
			ReceiptID: id,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return receiptID, nil
}
