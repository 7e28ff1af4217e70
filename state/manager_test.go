package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"minerledger/core/events"
	"minerledger/receipt"
	"minerledger/sale"
	"minerledger/storage"
)

var (
	testCustody = common.HexToAddress("0x0000000000000000000000000000000000000100")
	testAdmin   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testBuyer   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	payToken    = common.HexToAddress("0x0000000000000000000000000000000000000011")
	primaryTok  = common.HexToAddress("0x0000000000000000000000000000000000000022")
	secondary   = common.HexToAddress("0x0000000000000000000000000000000000000033")
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestSKURoundTrip(t *testing.T) {
	mgr := newManager(t)
	sku := &sale.SKU{
		ID:                   4,
		UnitPrice:            big.NewInt(125),
		Stock:                big.NewInt(30),
		PaymentToken:         payToken,
		PrimaryRewardToken:   primaryTok,
		SecondaryRewardToken: secondary,
		LiftTime:             86400,
	}
	require.NoError(t, mgr.InTransaction(func(st sale.State) error {
		return st.SKUPut(sku)
	}))

	require.NoError(t, mgr.InTransaction(func(st sale.State) error {
		got, ok, err := st.SKUGet(4)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, sku.ID, got.ID)
		require.Zero(t, sku.UnitPrice.Cmp(got.UnitPrice))
		require.Zero(t, sku.Stock.Cmp(got.Stock))
		require.Equal(t, sku.PaymentToken, got.PaymentToken)
		require.Equal(t, sku.PrimaryRewardToken, got.PrimaryRewardToken)
		require.Equal(t, sku.SecondaryRewardToken, got.SecondaryRewardToken)
		require.Equal(t, sku.LiftTime, got.LiftTime)

		_, ok, err = st.SKUGet(5)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}

func TestClaimIndexDefaultsToZero(t *testing.T) {
	mgr := newManager(t)
	require.NoError(t, mgr.InTransaction(func(st sale.State) error {
		index, err := st.ClaimIndex(testBuyer, 9)
		require.NoError(t, err)
		require.Zero(t, index.Sign())

		require.NoError(t, st.SetClaimIndex(testBuyer, 9, big.NewInt(42)))
		index, err = st.ClaimIndex(testBuyer, 9)
		require.NoError(t, err)
		require.Zero(t, index.Cmp(big.NewInt(42)))

		// Pairs are independent per buyer and per listing.
		index, err = st.ClaimIndex(testBuyer, 10)
		require.NoError(t, err)
		require.Zero(t, index.Sign())
		index, err = st.ClaimIndex(testAdmin, 9)
		require.NoError(t, err)
		require.Zero(t, index.Sign())
		return nil
	}))
}

func TestPausedAndMaintainerRoundTrip(t *testing.T) {
	mgr := newManager(t)
	require.NoError(t, mgr.InTransaction(func(st sale.State) error {
		paused, err := st.Paused()
		require.NoError(t, err)
		require.False(t, paused)

		require.NoError(t, st.SetPaused(true))
		paused, err = st.Paused()
		require.NoError(t, err)
		require.True(t, paused)

		addr, err := st.Maintainer()
		require.NoError(t, err)
		require.Equal(t, common.Address{}, addr)

		require.NoError(t, st.SetMaintainer(testAdmin))
		addr, err = st.Maintainer()
		require.NoError(t, err)
		require.Equal(t, testAdmin, addr)
		return nil
	}))
}

func TestRolePersistence(t *testing.T) {
	mgr := newManager(t)
	require.False(t, mgr.HasRole(sale.RoleAdmin, testAdmin))
	require.NoError(t, mgr.GrantRole(sale.RoleAdmin, testAdmin))
	require.True(t, mgr.HasRole(sale.RoleAdmin, testAdmin))
	require.False(t, mgr.HasRole(receipt.RoleMinter, testAdmin))
	require.NoError(t, mgr.RevokeRole(sale.RoleAdmin, testAdmin))
	require.False(t, mgr.HasRole(sale.RoleAdmin, testAdmin))
}

func TestTransactionRollbackLeavesStateUntouched(t *testing.T) {
	mgr := newManager(t)
	recorder := &events.Recorder{}
	mgr.SetEmitter(recorder)

	boom := errors.New("boom")
	err := mgr.InTransaction(func(st sale.State) error {
		require.NoError(t, st.SetPaused(true))
		require.NoError(t, st.SetClaimIndex(testBuyer, 1, big.NewInt(5)))
		st.AppendEvent(events.SalePaused{Caller: testAdmin})
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.Empty(t, recorder.Events)
	require.NoError(t, mgr.InTransaction(func(st sale.State) error {
		paused, err := st.Paused()
		require.NoError(t, err)
		require.False(t, paused)
		index, err := st.ClaimIndex(testBuyer, 1)
		require.NoError(t, err)
		require.Zero(t, index.Sign())
		return nil
	}))
}

func TestEventsDeliveredOnCommit(t *testing.T) {
	mgr := newManager(t)
	recorder := &events.Recorder{}
	mgr.SetEmitter(recorder)

	require.NoError(t, mgr.InTransaction(func(st sale.State) error {
		st.AppendEvent(events.SalePaused{Caller: testAdmin})
		st.AppendEvent(events.SaleUnpaused{Caller: testAdmin})
		return nil
	}))
	require.Len(t, recorder.Events, 2)
	require.Equal(t, "sale.paused", recorder.Events[0].EventType())
	require.Equal(t, "sale.unpaused", recorder.Events[1].EventType())
}

func TestTransactionReadsOwnWrites(t *testing.T) {
	mgr := newManager(t)
	require.NoError(t, mgr.InTransaction(func(st sale.State) error {
		require.NoError(t, st.SetClaimIndex(testBuyer, 3, big.NewInt(7)))
		index, err := st.ClaimIndex(testBuyer, 3)
		require.NoError(t, err)
		require.Zero(t, index.Cmp(big.NewInt(7)))
		return nil
	}))
}

func TestTokenAndReceiptHostSurface(t *testing.T) {
	mgr := newManager(t)
	require.NoError(t, mgr.MintToken(payToken, testBuyer, big.NewInt(900)))
	balance, err := mgr.TokenBalance(payToken, testBuyer)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(900)))

	require.NoError(t, mgr.ApproveToken(payToken, testBuyer, testCustody, big.NewInt(400)))
	allowance, err := mgr.TokenAllowance(payToken, testBuyer, testCustody)
	require.NoError(t, err)
	require.Zero(t, allowance.Cmp(big.NewInt(400)))

	require.NoError(t, mgr.GrantRole(receipt.RoleMinter, testCustody))
	var id uint64
	require.NoError(t, mgr.InTransaction(func(st sale.State) error {
		var mintErr error
		id, mintErr = st.MintReceipt(testCustody, testBuyer, receipt.Meta{SkuID: 2, Size: big.NewInt(3), LiftTime: 60})
		return mintErr
	}))
	require.Equal(t, uint64(1), id)

	owner, meta, err := mgr.Receipt(id)
	require.NoError(t, err)
	require.Equal(t, testBuyer, owner)
	require.Equal(t, uint64(2), meta.SkuID)
	require.Zero(t, meta.Size.Cmp(big.NewInt(3)))
	require.Equal(t, uint64(60), meta.LiftTime)

	count, err := mgr.ReceiptCount()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

// TestEngineOverManager drives the full purchase-then-claim flow through the
// persistent backend with a real maintainer signature.
func TestEngineOverManager(t *testing.T) {
	mgr := newManager(t)
	recorder := &events.Recorder{}
	mgr.SetEmitter(recorder)

	engine := sale.NewEngine()
	engine.SetBackend(mgr)
	engine.SetCustody(testCustody)
	require.NoError(t, mgr.GrantRole(sale.RoleAdmin, testAdmin))
	require.NoError(t, mgr.GrantRole(receipt.RoleMinter, testCustody))

	maintainerKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, engine.SetMaintainer(testAdmin, ethcrypto.PubkeyToAddress(maintainerKey.PublicKey)))

	require.NoError(t, engine.AddSKU(testAdmin, &sale.SKU{
		ID:                   1,
		UnitPrice:            big.NewInt(100),
		Stock:                big.NewInt(10),
		PaymentToken:         payToken,
		PrimaryRewardToken:   primaryTok,
		SecondaryRewardToken: secondary,
		LiftTime:             3600,
	}))

	require.NoError(t, mgr.MintToken(payToken, testBuyer, big.NewInt(10_000)))
	require.NoError(t, mgr.ApproveToken(payToken, testBuyer, testCustody, big.NewInt(10_000)))

	receiptID, err := engine.Purchase(testBuyer, 1, big.NewInt(8))
	require.NoError(t, err)
	require.Equal(t, uint64(1), receiptID)

	sku, ok, err := engine.SKU(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, sku.Stock.Cmp(big.NewInt(2)))

	balance, err := mgr.TokenBalance(payToken, testBuyer)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(9_200)))
	balance, err = mgr.TokenBalance(payToken, testCustody)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(800)))

	owner, meta, err := mgr.Receipt(receiptID)
	require.NoError(t, err)
	require.Equal(t, testBuyer, owner)
	require.Equal(t, uint64(1), meta.SkuID)
	require.Zero(t, meta.Size.Cmp(big.NewInt(8)))

	// Oversized order fails and leaves the remaining stock intact.
	_, err = engine.Purchase(testBuyer, 1, big.NewInt(3))
	require.ErrorIs(t, err, sale.ErrInsufficientStock)
	sku, _, err = engine.SKU(1)
	require.NoError(t, err)
	require.Zero(t, sku.Stock.Cmp(big.NewInt(2)))

	require.NoError(t, mgr.MintToken(primaryTok, testCustody, big.NewInt(1_000)))
	require.NoError(t, mgr.MintToken(secondary, testCustody, big.NewInt(1_000)))

	req := &sale.ClaimRequest{
		SKUID:           1,
		PrimaryToken:    primaryTok,
		PrimaryAmount:   big.NewInt(500),
		SecondaryToken:  secondary,
		SecondaryAmount: big.NewInt(200),
		PreviousIndex:   big.NewInt(0),
		CurrentIndex:    big.NewInt(1),
	}
	req.Signature, err = sale.SignClaim(maintainerKey, &sale.ClaimAuthorization{
		Buyer:           testBuyer,
		SKUID:           req.SKUID,
		PrimaryToken:    req.PrimaryToken,
		PrimaryAmount:   req.PrimaryAmount,
		SecondaryToken:  req.SecondaryToken,
		SecondaryAmount: req.SecondaryAmount,
		PreviousIndex:   req.PreviousIndex,
		CurrentIndex:    req.CurrentIndex,
	})
	require.NoError(t, err)

	require.NoError(t, engine.Claim(testBuyer, req))
	require.ErrorIs(t, engine.Claim(testBuyer, req), sale.ErrInvalidPreviousIndex)

	balance, err = mgr.TokenBalance(primaryTok, testBuyer)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(500)))
	balance, err = mgr.TokenBalance(secondary, testBuyer)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(200)))

	index, err := engine.ClaimIndex(testBuyer, 1)
	require.NoError(t, err)
	require.Zero(t, index.Cmp(big.NewInt(1)))

	var seen []string
	for _, evt := range recorder.Events {
		seen = append(seen, evt.EventType())
	}
	require.Contains(t, seen, "sale.sku.added")
	require.Contains(t, seen, "sale.purchased")
	require.Contains(t, seen, "sale.claimed")
}
