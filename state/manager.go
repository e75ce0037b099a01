package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"ingotfund/core/types"
	"ingotfund/native/fund"
	"ingotfund/storage"
)

const (
	userPrefix    = "fund/user/"
	poolPrefix    = "fund/pool/"
	pendingPrefix = "fund/pending/"
	treasuryKey   = "fund/treasury"
	lastPoolKey   = "fund/meta/lastPool"
	activePoolKey = "fund/meta/activePool"
)

// Manager persists the fund ledger as JSON records in a key-value store. It
// implements the engine's state interface.
type Manager struct {
	mu sync.RWMutex
	db storage.Database
}

// NewManager wraps a key-value store into a fund state manager.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) getJSON(key string, out interface{}) (bool, error) {
	raw, err := m.db.Get([]byte(key))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.db.Put([]byte(key), raw)
}

// User loads a user record by address.
func (m *Manager) User(addr types.Address) (*fund.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user := &fund.User{}
	ok, err := m.getJSON(userPrefix+addr.Hex(), user)
	if err != nil || !ok {
		return nil, false, err
	}
	return user.Normalize(), true, nil
}

// PutUser stores a user record.
func (m *Manager) PutUser(addr types.Address, user *fund.User) error {
	if user == nil {
		return fmt.Errorf("state: nil user")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(userPrefix+addr.Hex(), user)
}

// Pool loads a pool record by ID.
func (m *Manager) Pool(id uint64) (*fund.Pool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pool := &fund.Pool{}
	ok, err := m.getJSON(poolPrefix+strconv.FormatUint(id, 10), pool)
	if err != nil || !ok {
		return nil, false, err
	}
	return pool.Normalize(), true, nil
}

// PutPool stores a pool record under its own ID.
func (m *Manager) PutPool(pool *fund.Pool) error {
	if pool == nil {
		return fmt.Errorf("state: nil pool")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(poolPrefix+strconv.FormatUint(pool.ID, 10), pool)
}

// LastPoolID returns the high-water mark of created pool IDs, zero on a fresh
// ledger.
func (m *Manager) LastPoolID() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var id uint64
	ok, err := m.getJSON(lastPoolKey, &id)
	if err != nil || !ok {
		return 0, err
	}
	return id, nil
}

// SetLastPoolID advances the high-water mark of created pool IDs.
func (m *Manager) SetLastPoolID(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(lastPoolKey, id)
}

// ActivePoolID returns the rollover-chain active pool pointer.
func (m *Manager) ActivePoolID() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var id uint64
	ok, err := m.getJSON(activePoolKey, &id)
	if err != nil || !ok {
		return 0, err
	}
	return id, nil
}

// SetActivePoolID updates the rollover-chain active pool pointer.
func (m *Manager) SetActivePoolID(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(activePoolKey, id)
}

// Treasury loads the treasury counters, zeroed on a fresh ledger.
func (m *Manager) Treasury() (*fund.Treasury, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	treasury := &fund.Treasury{}
	ok, err := m.getJSON(treasuryKey, treasury)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (&fund.Treasury{}).Normalize(), nil
	}
	return treasury.Normalize(), nil
}

// PutTreasury stores the treasury counters.
func (m *Manager) PutTreasury(treasury *fund.Treasury) error {
	if treasury == nil {
		return fmt.Errorf("state: nil treasury")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(treasuryKey, treasury)
}

// PendingPayout returns the settled, unclaimed payout balance for an address.
func (m *Manager) PendingPayout(addr types.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	amount := new(big.Int)
	ok, err := m.getJSON(pendingPrefix+addr.Hex(), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// SetPendingPayout stores the pending payout balance for an address.
func (m *Manager) SetPendingPayout(addr types.Address, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(pendingPrefix+addr.Hex(), amount)
}
