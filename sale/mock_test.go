package sale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"minerledger/core/events"
	"minerledger/receipt"
)

// mockLedger implements State and Backend over plain maps. InTransaction
// snapshots the maps and restores them when the operation errors, mirroring
// the commit/discard behaviour of the real state manager.
type mockLedger struct {
	skus       map[uint64]*SKU
	claims     map[string]*big.Int
	paused     bool
	maintainer common.Address
	roles      map[string]bool
	balances   map[string]*big.Int
	allowances map[string]*big.Int
	receipts   []mockReceipt
	events     []events.Event
}

type mockReceipt struct {
	owner common.Address
	meta  receipt.Meta
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		skus:       make(map[uint64]*SKU),
		claims:     make(map[string]*big.Int),
		roles:      make(map[string]bool),
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]*big.Int),
	}
}

func claimPairKey(buyer common.Address, skuID uint64) string {
	return fmt.Sprintf("%x/%d", buyer.Bytes(), skuID)
}

func holdingKey(token, holder common.Address) string {
	return fmt.Sprintf("%x/%x", token.Bytes(), holder.Bytes())
}

func allowancePairKey(token, owner, spender common.Address) string {
	return fmt.Sprintf("%x/%x/%x", token.Bytes(), owner.Bytes(), spender.Bytes())
}

func cloneAmountMap(src map[string]*big.Int) map[string]*big.Int {
	dst := make(map[string]*big.Int, len(src))
	for k, v := range src {
		dst[k] = new(big.Int).Set(v)
	}
	return dst
}

func (m *mockLedger) snapshot() *mockLedger {
	snap := &mockLedger{
		paused:     m.paused,
		maintainer: m.maintainer,
		skus:       make(map[uint64]*SKU, len(m.skus)),
		claims:     cloneAmountMap(m.claims),
		roles:      make(map[string]bool, len(m.roles)),
		balances:   cloneAmountMap(m.balances),
		allowances: cloneAmountMap(m.allowances),
		receipts:   append([]mockReceipt(nil), m.receipts...),
		events:     append([]events.Event(nil), m.events...),
	}
	for id, sku := range m.skus {
		snap.skus[id] = sku.Copy()
	}
	for k, v := range m.roles {
		snap.roles[k] = v
	}
	return snap
}

func (m *mockLedger) restore(snap *mockLedger) {
	m.skus = snap.skus
	m.claims = snap.claims
	m.paused = snap.paused
	m.maintainer = snap.maintainer
	m.roles = snap.roles
	m.balances = snap.balances
	m.allowances = snap.allowances
	m.receipts = snap.receipts
	m.events = snap.events
}

// InTransaction implements Backend.
func (m *mockLedger) InTransaction(fn func(State) error) error {
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *mockLedger) SKUGet(id uint64) (*SKU, bool, error) {
	sku, ok := m.skus[id]
	if !ok {
		return nil, false, nil
	}
	return sku.Copy(), true, nil
}

func (m *mockLedger) SKUPut(sku *SKU) error {
	m.skus[sku.ID] = sku.Copy()
	return nil
}

func (m *mockLedger) ClaimIndex(buyer common.Address, skuID uint64) (*big.Int, error) {
	if index, ok := m.claims[claimPairKey(buyer, skuID)]; ok {
		return new(big.Int).Set(index), nil
	}
	return big.NewInt(0), nil
}

func (m *mockLedger) SetClaimIndex(buyer common.Address, skuID uint64, index *big.Int) error {
	m.claims[claimPairKey(buyer, skuID)] = new(big.Int).Set(index)
	return nil
}

func (m *mockLedger) Paused() (bool, error) { return m.paused, nil }

func (m *mockLedger) SetPaused(paused bool) error {
	m.paused = paused
	return nil
}

func (m *mockLedger) Maintainer() (common.Address, error) { return m.maintainer, nil }

func (m *mockLedger) SetMaintainer(addr common.Address) error {
	m.maintainer = addr
	return nil
}

func (m *mockLedger) HasRole(role string, addr common.Address) bool {
	return m.roles[role+"/"+addr.Hex()]
}

func (m *mockLedger) grantRole(role string, addr common.Address) {
	m.roles[role+"/"+addr.Hex()] = true
}

func (m *mockLedger) balance(token, holder common.Address) *big.Int {
	if v, ok := m.balances[holdingKey(token, holder)]; ok {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

func (m *mockLedger) mint(token, to common.Address, amount *big.Int) {
	m.balances[holdingKey(token, to)] = new(big.Int).Add(m.balance(token, to), amount)
}

func (m *mockLedger) approve(token, owner, spender common.Address, amount *big.Int) {
	m.allowances[allowancePairKey(token, owner, spender)] = new(big.Int).Set(amount)
}

func (m *mockLedger) TokenTransfer(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("mock: bad amount")
	}
	fromBalance := m.balance(token, from)
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("mock: insufficient balance")
	}
	if from == to {
		return nil
	}
	m.balances[holdingKey(token, from)] = new(big.Int).Sub(fromBalance, amount)
	m.balances[holdingKey(token, to)] = new(big.Int).Add(m.balance(token, to), amount)
	return nil
}

func (m *mockLedger) TokenTransferFrom(token, spender, owner, to common.Address, amount *big.Int) error {
	key := allowancePairKey(token, owner, spender)
	allowance, ok := m.allowances[key]
	if !ok || allowance.Cmp(amount) < 0 {
		return fmt.Errorf("mock: insufficient allowance")
	}
	if err := m.TokenTransfer(token, owner, to, amount); err != nil {
		return err
	}
	m.allowances[key] = new(big.Int).Sub(allowance, amount)
	return nil
}

func (m *mockLedger) MintReceipt(minter, to common.Address, meta receipt.Meta) (uint64, error) {
	if !m.HasRole(receipt.RoleMinter, minter) {
		return 0, receipt.ErrUnauthorizedMinter
	}
	m.receipts = append(m.receipts, mockReceipt{owner: to, meta: meta})
	return uint64(len(m.receipts)), nil
}

func (m *mockLedger) AppendEvent(evt events.Event) {
	m.events = append(m.events, evt)
}

func (m *mockLedger) lastEvent() events.Event {
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}
