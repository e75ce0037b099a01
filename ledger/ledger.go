package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"ingotfund/core/types"
	"ingotfund/storage"
)

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the payer's
	// balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	// ErrInvalidAmount is returned for nil, zero or negative amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
)

const defaultDecimals = 18

// Ledger is a state-backed fungible-asset ledger. The fund engine consumes it
// through the AssetLedger interface: the engine's own account (the holder)
// receives deposits and funds withdrawals.
type Ledger struct {
	mu       sync.Mutex
	db       storage.Database
	holder   types.Address
	decimals map[string]uint8
}

// NewLedger creates a ledger whose holder account backs the fund engine.
func NewLedger(db storage.Database, holder types.Address) *Ledger {
	return &Ledger{
		db:       db,
		holder:   holder,
		decimals: make(map[string]uint8),
	}
}

func balanceKey(addr types.Address, token string) []byte {
	return []byte("ledger/" + addr.Hex() + "/" + strings.ToUpper(strings.TrimSpace(token)))
}

func (l *Ledger) balance(addr types.Address, token string) (*big.Int, error) {
	raw, err := l.db.Get(balanceKey(addr, token))
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	amount := new(big.Int)
	if err := json.Unmarshal(raw, amount); err != nil {
		return nil, fmt.Errorf("ledger: decode balance: %w", err)
	}
	return amount, nil
}

func (l *Ledger) setBalance(addr types.Address, token string, amount *big.Int) error {
	raw, err := json.Marshal(amount)
	if err != nil {
		return fmt.Errorf("ledger: encode balance: %w", err)
	}
	return l.db.Put(balanceKey(addr, token), raw)
}

func (l *Ledger) transfer(from, to types.Address, token string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromBalance, err := l.balance(from, token)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := l.balance(to, token)
	if err != nil {
		return err
	}
	if err := l.setBalance(from, token, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.setBalance(to, token, new(big.Int).Add(toBalance, amount))
}

// TransferIn moves amount of token from the payer into the holder account.
func (l *Ledger) TransferIn(token string, from types.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(from, l.holder, token, amount)
}

// TransferOut moves amount of token from the holder account to the recipient.
func (l *Ledger) TransferOut(token string, to types.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(l.holder, to, token, amount)
}

// BalanceOf returns the holder account's balance of the token.
func (l *Ledger) BalanceOf(token string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(l.holder, token)
}

// Balance returns an arbitrary account's balance of the token.
func (l *Ledger) Balance(addr types.Address, token string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(addr, token)
}

// Decimals returns the token's decimal precision, defaulting to 18.
func (l *Ledger) Decimals(token string) (uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	normalized := strings.ToUpper(strings.TrimSpace(token))
	if d, ok := l.decimals[normalized]; ok {
		return d, nil
	}
	return defaultDecimals, nil
}

// SetDecimals records the token's decimal precision.
func (l *Ledger) SetDecimals(token string, decimals uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decimals[strings.ToUpper(strings.TrimSpace(token))] = decimals
}

// Credit mints amount of token to an account. Used to seed genesis
// allocations.
func (l *Ledger) Credit(addr types.Address, token string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.balance(addr, token)
	if err != nil {
		return err
	}
	return l.setBalance(addr, token, new(big.Int).Add(balance, amount))
}
