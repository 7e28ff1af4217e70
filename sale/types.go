package sale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RoleAdmin gates inventory management, pausing, fund withdrawal and
// maintainer rotation. Role membership is answered by the state backend, so
// multi-admin policies stay pluggable.
const RoleAdmin = "ROLE_ADMIN"

// SKU describes one sellable inventory line. Token addresses are fixed at
// creation; only unit price and stock may change afterwards.
type SKU struct {
	ID                   uint64
	UnitPrice            *big.Int
	Stock                *big.Int
	PaymentToken         common.Address
	PrimaryRewardToken   common.Address
	SecondaryRewardToken common.Address
	LiftTime             uint64
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (s *SKU) Copy() *SKU {
	if s == nil {
		return nil
	}
	clone := *s
	clone.UnitPrice = cloneBigInt(s.UnitPrice)
	clone.Stock = cloneBigInt(s.Stock)
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func sanitizeSKU(s *SKU) (*SKU, error) {
	if s == nil {
		return nil, fmt.Errorf("sale: nil sku")
	}
	if s.ID == 0 {
		return nil, fmt.Errorf("sale: sku id must be positive")
	}
	if s.UnitPrice != nil && s.UnitPrice.Sign() < 0 {
		return nil, fmt.Errorf("sale: unit price must not be negative")
	}
	if s.Stock != nil && s.Stock.Sign() < 0 {
		return nil, fmt.Errorf("sale: stock must not be negative")
	}
	if s.PaymentToken == (common.Address{}) {
		return nil, fmt.Errorf("sale: payment token required")
	}
	sanitized := s.Copy()
	sanitized.UnitPrice = cloneBigInt(s.UnitPrice)
	sanitized.Stock = cloneBigInt(s.Stock)
	return sanitized, nil
}
