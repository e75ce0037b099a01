package fund

import (
	"fmt"
	"math/big"
	"sync"

	"ingotfund/core/events"
	"ingotfund/core/types"
	"ingotfund/native/common"
)

// engineState describes the functionality the fund engine needs from the
// surrounding state implementation.
type engineState interface {
	User(addr types.Address) (*User, bool, error)
	PutUser(addr types.Address, user *User) error
	Pool(id uint64) (*Pool, bool, error)
	PutPool(pool *Pool) error
	LastPoolID() (uint64, error)
	SetLastPoolID(id uint64) error
	ActivePoolID() (uint64, error)
	SetActivePoolID(id uint64) error
	Treasury() (*Treasury, error)
	PutTreasury(treasury *Treasury) error
	PendingPayout(addr types.Address) (*big.Int, error)
	SetPendingPayout(addr types.Address, amount *big.Int) error
}

// AssetLedger is the external fungible-asset collaborator. Transfers are
// synchronous and either fully succeed or fully fail.
type AssetLedger interface {
	TransferIn(token string, from types.Address, amount *big.Int) error
	TransferOut(token string, to types.Address, amount *big.Int) error
	BalanceOf(token string) (*big.Int, error)
	Decimals(token string) (uint8, error)
}

// Engine is the pooled-investment accounting engine. It is a single-writer
// sequential state machine: every exported operation runs to completion under
// one mutex, and all external asset transfers happen only after (or, on
// deposit paths, immediately before) internal mutation is finalized, so no
// call into the asset ledger can observe or re-enter a half-applied
// operation.
type Engine struct {
	mu      sync.Mutex
	state   engineState
	ledger  AssetLedger
	emitter events.Emitter
	auth    common.Authorizer
	pauses  common.PauseView
	params  Params
}

// NewEngine constructs an engine with the given parameters and a no-op
// emitter.
func NewEngine(params Params) *Engine {
	return &Engine{
		params:  params.Normalize(),
		emitter: events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the engine to the fungible-asset ledger collaborator.
func (e *Engine) SetLedger(ledger AssetLedger) { e.ledger = ledger }

// SetAuthorizer configures the capability authorizer consulted by
// administrative operations.
func (e *Engine) SetAuthorizer(auth common.Authorizer) { e.auth = auth }

// SetPauses configures the pause view guarding new deposits.
func (e *Engine) SetPauses(pauses common.PauseView) { e.pauses = pauses }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Params returns a copy of the current engine parameters.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Clone()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) requireState() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) requireLedger() error {
	if e == nil || e.ledger == nil {
		return errNilLedger
	}
	return nil
}

func (e *Engine) requireCapability(caller types.Address, capability common.Capability) error {
	if err := common.RequireCapability(e.auth, caller, capability); err != nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, capability)
	}
	return nil
}

func (e *Engine) loadUser(addr types.Address) (*User, error) {
	user, ok, err := e.state.User(addr)
	if err != nil {
		return nil, err
	}
	if !ok || user == nil || !user.Registered {
		return nil, ErrNotRegistered
	}
	return user.Normalize(), nil
}

func (e *Engine) loadPool(id uint64) (*Pool, error) {
	pool, ok, err := e.state.Pool(id)
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, ErrPoolNotFound
	}
	return pool.Normalize(), nil
}

func (e *Engine) loadTreasury() (*Treasury, error) {
	treasury, err := e.state.Treasury()
	if err != nil {
		return nil, err
	}
	if treasury == nil {
		treasury = &Treasury{}
	}
	return treasury.Normalize(), nil
}

// InitGenesis provisions pool 1 as the active standard pool on a fresh
// ledger. Calling it on an initialized state is a no-op.
func (e *Engine) InitGenesis() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return err
	}
	last, err := e.state.LastPoolID()
	if err != nil {
		return err
	}
	if last != 0 {
		return nil
	}
	genesis := (&Pool{ID: 1, Kind: PoolStandard, Active: true}).Normalize()
	if err := e.state.PutPool(genesis); err != nil {
		return err
	}
	if err := e.state.SetLastPoolID(1); err != nil {
		return err
	}
	if err := e.state.SetActivePoolID(1); err != nil {
		return err
	}
	if err := e.state.PutTreasury((&Treasury{}).Normalize()); err != nil {
		return err
	}
	e.emit(PoolCreated{ID: 1, Kind: PoolStandard, Reason: PoolCreateGenesis})
	return nil
}

// SetParityBps updates the global parity rate pegging the secondary-token
// ingot price to the primary token.
func (e *Engine) SetParityBps(caller types.Address, parityBps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireCapability(caller, common.CapManageParams); err != nil {
		return err
	}
	if parityBps == 0 {
		return validationError("parity bps must be positive")
	}
	e.params.ParityBps = parityBps
	e.emit(ParityUpdated{ParityBps: parityBps})
	return nil
}

// SetTokenDecimals records the decimal precision of a deposit token.
func (e *Engine) SetTokenDecimals(caller types.Address, token string, decimals uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireCapability(caller, common.CapManageParams); err != nil {
		return err
	}
	normalized, err := e.params.NormalizeToken(token)
	if err != nil {
		return err
	}
	if e.params.TokenDecimals == nil {
		e.params.TokenDecimals = make(map[string]uint8)
	}
	e.params.TokenDecimals[normalized] = decimals
	return nil
}

// GetUser returns a copy of the user record, or ErrNotRegistered when the
// account has never registered.
func (e *Engine) GetUser(addr types.Address) (*User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	user, err := e.loadUser(addr)
	if err != nil {
		return nil, err
	}
	return user.Clone(), nil
}
