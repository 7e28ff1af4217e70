package sale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// advanceClaim is the replay/ordering guard for the claim ledger. The cited
// previous index must equal the pair's current state and the new index must
// be strictly greater, regardless of signature validity.
func advanceClaim(st State, buyer common.Address, skuID uint64, previousIndex, currentIndex *big.Int) error {
	if previousIndex == nil || currentIndex == nil {
		return fmt.Errorf("%w: index required", ErrInvalidPreviousIndex)
	}
	accepted, err := st.ClaimIndex(buyer, skuID)
	if err != nil {
		return err
	}
	if previousIndex.Cmp(accepted) != 0 {
		return fmt.Errorf("%w: state has %s, claim cites %s", ErrInvalidPreviousIndex, accepted, previousIndex)
	}
	if currentIndex.Cmp(previousIndex) <= 0 {
		return fmt.Errorf("%w: step %s -> %s is not increasing", ErrInvalidPreviousIndex, previousIndex, currentIndex)
	}
	return st.SetClaimIndex(buyer, skuID, new(big.Int).Set(currentIndex))
}
