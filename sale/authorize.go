package sale

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const signedMessagePrefix = "\x19Ethereum Signed Message:\n"

// ClaimAuthorization is the ordered field tuple the maintainer signs to
// authorize one reward step. Addresses pack as 20 bytes, integers as 256-bit
// big-endian words; the packed blob is hashed, then hashed again under the
// signed-message prefix so standard wallet tooling produces a verifiable
// digest.
type ClaimAuthorization struct {
	Buyer           common.Address
	SKUID           uint64
	PrimaryToken    common.Address
	PrimaryAmount   *big.Int
	SecondaryToken  common.Address
	SecondaryAmount *big.Int
	PreviousIndex   *big.Int
	CurrentIndex    *big.Int
}

func word(v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

func (a *ClaimAuthorization) packed() []byte {
	buf := make([]byte, 0, 3*common.AddressLength+5*32)
	buf = append(buf, a.Buyer.Bytes()...)
	buf = append(buf, word(new(big.Int).SetUint64(a.SKUID))...)
	buf = append(buf, a.PrimaryToken.Bytes()...)
	buf = append(buf, word(a.PrimaryAmount)...)
	buf = append(buf, a.SecondaryToken.Bytes()...)
	buf = append(buf, word(a.SecondaryAmount)...)
	buf = append(buf, word(a.PreviousIndex)...)
	buf = append(buf, word(a.CurrentIndex)...)
	return buf
}

// Digest returns the canonical message digest verified on claim.
func (a *ClaimAuthorization) Digest() []byte {
	inner := ethcrypto.Keccak256(a.packed())
	prefix := fmt.Sprintf("%s%d", signedMessagePrefix, len(inner))
	return ethcrypto.Keccak256(append([]byte(prefix), inner...))
}

// RecoverSigner recovers the identity that produced the signature over the
// authorization digest. Recovery ids 27/28 are normalized so wallet-style
// signatures verify alongside raw ones.
func (a *ClaimAuthorization) RecoverSigner(signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("sale: signature must be 65 bytes, got %d", len(signature))
	}
	sig := append([]byte(nil), signature...)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pubKey, err := ethcrypto.SigToPub(a.Digest(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("sale: recover signer: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}

// SignClaim produces a maintainer signature over the authorization. It is the
// off-chain half of the claim protocol, used by the CLI signer and tests.
func SignClaim(key *ecdsa.PrivateKey, a *ClaimAuthorization) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("sale: signing key required")
	}
	if a == nil {
		return nil, fmt.Errorf("sale: nil authorization")
	}
	return ethcrypto.Sign(a.Digest(), key)
}
