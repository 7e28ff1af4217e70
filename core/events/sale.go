package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"minerledger/core/types"
)

const (
	TypeSKUAdded          = "sale.sku.added"
	TypeSKUUpdated        = "sale.sku.updated"
	TypePurchased         = "sale.purchased"
	TypeClaimed           = "sale.claimed"
	TypeSalePaused        = "sale.paused"
	TypeSaleUnpaused      = "sale.unpaused"
	TypeMaintainerRotated = "sale.maintainer.rotated"
	TypeFundWithdrawn     = "sale.fund.withdrawn"
)

type SKUAdded struct {
	ID                   uint64
	UnitPrice            *big.Int
	Stock                *big.Int
	PaymentToken         common.Address
	PrimaryRewardToken   common.Address
	SecondaryRewardToken common.Address
	LiftTime             uint64
}

func (SKUAdded) EventType() string { return TypeSKUAdded }

func (e SKUAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeSKUAdded,
		Attributes: map[string]string{
			"skuId":          formatUint(e.ID),
			"unitPrice":      formatAmount(e.UnitPrice),
			"stock":          formatAmount(e.Stock),
			"paymentToken":   formatAddress(e.PaymentToken),
			"primaryToken":   formatAddress(e.PrimaryRewardToken),
			"secondaryToken": formatAddress(e.SecondaryRewardToken),
			"liftTime":       formatUint(e.LiftTime),
		},
	}
}

type SKUUpdated struct {
	ID        uint64
	UnitPrice *big.Int
	Stock     *big.Int
}

func (SKUUpdated) EventType() string { return TypeSKUUpdated }

func (e SKUUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeSKUUpdated,
		Attributes: map[string]string{
			"skuId":     formatUint(e.ID),
			"unitPrice": formatAmount(e.UnitPrice),
			"stock":     formatAmount(e.Stock),
		},
	}
}

type Purchased struct {
	Buyer     common.Address
	SKUID     uint64
	Size      *big.Int
	ReceiptID uint64
}

func (Purchased) EventType() string { return TypePurchased }

func (e Purchased) Event() *types.Event {
	return &types.Event{
		Type: TypePurchased,
		Attributes: map[string]string{
			"buyer":     formatAddress(e.Buyer),
			"skuId":     formatUint(e.SKUID),
			"size":      formatAmount(e.Size),
			"receiptId": formatUint(e.ReceiptID),
		},
	}
}

type Claimed struct {
	Buyer           common.Address
	SKUID           uint64
	PrimaryToken    common.Address
	PrimaryAmount   *big.Int
	SecondaryToken  common.Address
	SecondaryAmount *big.Int
	PreviousIndex   *big.Int
	CurrentIndex    *big.Int
}

func (Claimed) EventType() string { return TypeClaimed }

func (e Claimed) Event() *types.Event {
	return &types.Event{
		Type: TypeClaimed,
		Attributes: map[string]string{
			"buyer":           formatAddress(e.Buyer),
			"skuId":           formatUint(e.SKUID),
			"primaryToken":    formatAddress(e.PrimaryToken),
			"primaryAmount":   formatAmount(e.PrimaryAmount),
			"secondaryToken":  formatAddress(e.SecondaryToken),
			"secondaryAmount": formatAmount(e.SecondaryAmount),
			"previousIndex":   formatAmount(e.PreviousIndex),
			"currentIndex":    formatAmount(e.CurrentIndex),
		},
	}
}

type SalePaused struct {
	Caller common.Address
}

func (SalePaused) EventType() string { return TypeSalePaused }

func (e SalePaused) Event() *types.Event {
	return &types.Event{
		Type:       TypeSalePaused,
		Attributes: map[string]string{"caller": formatAddress(e.Caller)},
	}
}

type SaleUnpaused struct {
	Caller common.Address
}

func (SaleUnpaused) EventType() string { return TypeSaleUnpaused }

func (e SaleUnpaused) Event() *types.Event {
	return &types.Event{
		Type:       TypeSaleUnpaused,
		Attributes: map[string]string{"caller": formatAddress(e.Caller)},
	}
}

type MaintainerRotated struct {
	Caller        common.Address
	OldMaintainer common.Address
	NewMaintainer common.Address
}

func (MaintainerRotated) EventType() string { return TypeMaintainerRotated }

func (e MaintainerRotated) Event() *types.Event {
	return &types.Event{
		Type: TypeMaintainerRotated,
		Attributes: map[string]string{
			"caller":        formatAddress(e.Caller),
			"oldMaintainer": formatAddress(e.OldMaintainer),
			"newMaintainer": formatAddress(e.NewMaintainer),
		},
	}
}

type FundWithdrawn struct {
	Caller common.Address
	Token  common.Address
	To     common.Address
	Amount *big.Int
}

func (FundWithdrawn) EventType() string { return TypeFundWithdrawn }

func (e FundWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeFundWithdrawn,
		Attributes: map[string]string{
			"caller": formatAddress(e.Caller),
			"token":  formatAddress(e.Token),
			"to":     formatAddress(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}
