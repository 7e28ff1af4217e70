package sale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"minerledger/core/events"
)

// ClaimRequest carries the reward payout parameters and the maintainer
// signature authorizing them.
type ClaimRequest struct {
	SKUID           uint64
	PrimaryToken    common.Address
	PrimaryAmount   *big.Int
	SecondaryToken  common.Address
	SecondaryAmount *big.Int
	PreviousIndex   *big.Int
	CurrentIndex    *big.Int
	Signature       []byte
}

// Claim settles one signed reward step for the caller: the maintainer
// signature is verified over the full parameter tuple, the claim index
// advances, and both reward transfers leave custody. Everything commits
// together; an advanced index without delivered funds would permanently lock
// the buyer out of that step.
//
// The SKU identifier and reward token/amount fields are deliberately NOT
// cross-checked against the inventory ledger. The maintainer signature is the
// sole source of truth for what is owed: rewards are computed off-chain and
// settled here.
func (e *Engine) Claim(caller common.Address, req *ClaimRequest) error {
	if req == nil {
		return fmt.Errorf("sale: nil claim request")
	}
	return e.inTx(func(st State) error {
		if err := guardNotPaused(st); err != nil {
			return err
		}
		if req.PrimaryAmount == nil || req.PrimaryAmount.Sign() < 0 {
			return fmt.Errorf("sale: primary reward amount must not be negative")
		}
		if req.SecondaryAmount == nil || req.SecondaryAmount.Sign() < 0 {
			return fmt.Errorf("sale: secondary reward amount must not be negative")
		}
		maintainer, err := st.Maintainer()
		if err != nil {
			return err
		}
		if maintainer == (common.Address{}) {
			return ErrInvalidSigner
		}
		auth := &ClaimAuthorization{
			Buyer:           caller,
			SKUID:           req.SKUID,
			PrimaryToken:    req.PrimaryToken,
			PrimaryAmount:   req.PrimaryAmount,
			SecondaryToken:  req.SecondaryToken,
			SecondaryAmount: req.SecondaryAmount,
			PreviousIndex:   req.PreviousIndex,
			CurrentIndex:    req.CurrentIndex,
		}
		signer, err := auth.RecoverSigner(req.Signature)
		if err != nil {
			// A malformed signature is not distinguished from an
			// unauthorized one.
			return fmt.Errorf("%w: %v", ErrInvalidSigner, err)
		}
		if signer != maintainer {
			return ErrInvalidSigner
		}
		if err := advanceClaim(st, caller, req.SKUID, req.PreviousIndex, req.CurrentIndex); err != nil {
			return err
		}
		if err := st.TokenTransfer(req.PrimaryToken, e.custody, caller, req.PrimaryAmount); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		if err := st.TokenTransfer(req.SecondaryToken, e.custody, caller, req.SecondaryAmount); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		st.AppendEvent(events.Claimed{
			Buyer:           caller,
			SKUID:           req.SKUID,
			PrimaryToken:    req.PrimaryToken,
			PrimaryAmount:   new(big.Int).Set(req.PrimaryAmount),
			SecondaryToken:  req.SecondaryToken,
			SecondaryAmount: new(big.Int).Set(req.SecondaryAmount),
			PreviousIndex:   cloneBigInt(req.PreviousIndex),
			CurrentIndex:    cloneBigInt(req.CurrentIndex),
		})
		return nil
	})
}
