package sale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"minerledger/core/events"
)

// Pause stops purchases and claims until Unpause. Admin only.
func (e *Engine) Pause(caller common.Address) error {
	return e.inTx(func(st State) error {
		if !st.HasRole(RoleAdmin, caller) {
			return ErrUnauthorized
		}
		paused, err := st.Paused()
		if err != nil {
			return err
		}
		if paused {
			return ErrPaused
		}
		if err := st.SetPaused(true); err != nil {
			return err
		}
		st.AppendEvent(events.SalePaused{Caller: caller})
		return nil
	})
}

// Unpause restores purchases and claims. Stock and claim-index state
// accumulated before the pause is untouched. Admin only.
func (e *Engine) Unpause(caller common.Address) error {
	return e.inTx(func(st State) error {
		if !st.HasRole(RoleAdmin, caller) {
			return ErrUnauthorized
		}
		paused, err := st.Paused()
		if err != nil {
			return err
		}
		if !paused {
			return ErrNotPaused
		}
		if err := st.SetPaused(false); err != nil {
			return err
		}
		st.AppendEvent(events.SaleUnpaused{Caller: caller})
		return nil
	})
}

// WithdrawFund moves tokens out of engine custody. The only bound is the
// custody balance itself. Admin only.
func (e *Engine) WithdrawFund(caller, token, to common.Address, amount *big.Int) error {
	return e.inTx(func(st State) error {
		if !st.HasRole(RoleAdmin, caller) {
			return ErrUnauthorized
		}
		if amount == nil || amount.Sign() < 0 {
			return fmt.Errorf("sale: withdraw amount must not be negative")
		}
		if err := st.TokenTransfer(token, e.custody, to, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		st.AppendEvent(events.FundWithdrawn{
			Caller: caller,
			Token:  token,
			To:     to,
			Amount: new(big.Int).Set(amount),
		})
		return nil
	})
}

// SetMaintainer replaces the trusted claim signer, effective for every
// subsequent claim. Admin only.
func (e *Engine) SetMaintainer(caller, maintainer common.Address) error {
	return e.inTx(func(st State) error {
		if !st.HasRole(RoleAdmin, caller) {
			return ErrUnauthorized
		}
		old, err := st.Maintainer()
		if err != nil {
			return err
		}
		if err := st.SetMaintainer(maintainer); err != nil {
			return err
		}
		st.AppendEvent(events.MaintainerRotated{
			Caller:        caller,
			OldMaintainer: old,
			NewMaintainer: maintainer,
		})
		return nil
	})
}
