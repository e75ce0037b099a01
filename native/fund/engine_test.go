package fund

import (
	"fmt"
	"math/big"

	"ingotfund/core/events"
	"ingotfund/core/types"
	"ingotfund/native/common"
)

// mockState is an in-memory engineState that clones on every read and write,
// mirroring the aliasing behaviour of the JSON-backed manager.
type mockState struct {
	users      map[types.Address]*User
	pools      map[uint64]*Pool
	pending    map[types.Address]*big.Int
	treasury   *Treasury
	lastPool   uint64
	activePool uint64
}

func newMockState() *mockState {
	return &mockState{
		users:   make(map[types.Address]*User),
		pools:   make(map[uint64]*Pool),
		pending: make(map[types.Address]*big.Int),
	}
}

func (m *mockState) User(addr types.Address) (*User, bool, error) {
	user, ok := m.users[addr]
	if !ok {
		return nil, false, nil
	}
	return user.Clone(), true, nil
}

func (m *mockState) PutUser(addr types.Address, user *User) error {
	m.users[addr] = user.Clone()
	return nil
}

func (m *mockState) Pool(id uint64) (*Pool, bool, error) {
	pool, ok := m.pools[id]
	if !ok {
		return nil, false, nil
	}
	return pool.Clone(), true, nil
}

func (m *mockState) PutPool(pool *Pool) error {
	m.pools[pool.ID] = pool.Clone()
	return nil
}

func (m *mockState) LastPoolID() (uint64, error)     { return m.lastPool, nil }
func (m *mockState) SetLastPoolID(id uint64) error   { m.lastPool = id; return nil }
func (m *mockState) ActivePoolID() (uint64, error)   { return m.activePool, nil }
func (m *mockState) SetActivePoolID(id uint64) error { m.activePool = id; return nil }

func (m *mockState) Treasury() (*Treasury, error) {
	if m.treasury == nil {
		return (&Treasury{}).Normalize(), nil
	}
	return m.treasury.Clone(), nil
}

func (m *mockState) PutTreasury(treasury *Treasury) error {
	m.treasury = treasury.Clone()
	return nil
}

func (m *mockState) PendingPayout(addr types.Address) (*big.Int, error) {
	if pending, ok := m.pending[addr]; ok {
		return new(big.Int).Set(pending), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetPendingPayout(addr types.Address, amount *big.Int) error {
	m.pending[addr] = new(big.Int).Set(amount)
	return nil
}

// mockLedger tracks only the engine account's balances. Inbound transfers
// always succeed unless failIn is set; outbound transfers fail once the
// holder balance is exhausted.
type mockLedger struct {
	balances map[string]*big.Int
	failIn   bool
	failOut  bool
	inCalls  int
	outCalls int
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[string]*big.Int)}
}

func (m *mockLedger) holderBalance(token string) *big.Int {
	if balance, ok := m.balances[token]; ok {
		return balance
	}
	zero := big.NewInt(0)
	m.balances[token] = zero
	return zero
}

func (m *mockLedger) TransferIn(token string, from types.Address, amount *big.Int) error {
	if m.failIn {
		return fmt.Errorf("payer balance too low")
	}
	m.inCalls++
	m.balances[token] = new(big.Int).Add(m.holderBalance(token), amount)
	return nil
}

func (m *mockLedger) TransferOut(token string, to types.Address, amount *big.Int) error {
	if m.failOut {
		return fmt.Errorf("transfer rejected")
	}
	balance := m.holderBalance(token)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("holder balance too low")
	}
	m.outCalls++
	m.balances[token] = new(big.Int).Sub(balance, amount)
	return nil
}

func (m *mockLedger) BalanceOf(token string) (*big.Int, error) {
	return new(big.Int).Set(m.holderBalance(token)), nil
}

func (m *mockLedger) Decimals(token string) (uint8, error) { return 18, nil }

var adminAddr = types.Address{0xad}

func testAddr(b byte) types.Address {
	return types.Address{b}
}

// newTestEngine builds an engine on mock collaborators with genesis applied:
// pool 1 active, zeroed treasury, adminAddr holding every capability.
func newTestEngine() (*Engine, *mockState, *mockLedger, *events.Collector) {
	state := newMockState()
	ledger := newMockLedger()
	collector := &events.Collector{}
	auth := common.NewStaticAuthorizer()
	auth.GrantAll(adminAddr)

	engine := NewEngine(DefaultParams())
	engine.SetState(state)
	engine.SetLedger(ledger)
	engine.SetAuthorizer(auth)
	engine.SetPauses(common.NewSwitchSet())
	engine.SetEmitter(collector)
	if err := engine.InitGenesis(); err != nil {
		panic(err)
	}
	collector.Reset()
	return engine, state, ledger, collector
}

func mustRegister(engine *Engine, user types.Address, referrer *types.Address) {
	if err := engine.Register(user, referrer); err != nil {
		panic(err)
	}
}

func mustJoin(engine *Engine, user types.Address, poolID uint64, amount int64, token string) {
	if err := engine.JoinPool(user, poolID, big.NewInt(amount), token); err != nil {
		panic(err)
	}
}
