package common

import (
	"errors"
	"sync"
)

// ErrModulePaused is returned when a guarded module is suspended.
var ErrModulePaused = errors.New("module paused")

// ModuleDeposits guards new deposits into the pool ledger. The emergency halt
// suspends only this module; withdrawals and payouts stay operable.
const ModuleDeposits = "deposits"

// PauseView reports whether a named module is currently suspended.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard returns ErrModulePaused when the view reports the module as paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// SwitchSet is a concurrency-safe PauseView with mutable switches.
type SwitchSet struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewSwitchSet returns an empty switch set with every module running.
func NewSwitchSet() *SwitchSet {
	return &SwitchSet{paused: make(map[string]bool)}
}

// Pause suspends the named module.
func (s *SwitchSet) Pause(module string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused[module] = true
}

// Resume lifts the suspension of the named module.
func (s *SwitchSet) Resume(module string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.paused, module)
}

// IsPaused implements the PauseView interface.
func (s *SwitchSet) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused[module]
}
