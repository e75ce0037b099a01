package common

import (
	"errors"
	"sync"

	"ingotfund/core/types"
)

// Capability names an administrative permission checked at operation entry.
type Capability string

const (
	// CapManagePools covers out-of-band pool provisioning.
	CapManagePools Capability = "pools.manage"
	// CapManageRegistry covers referrer overrides and blacklist flags.
	CapManageRegistry Capability = "registry.manage"
	// CapManageTreasury covers reserve/operational draws and sweeps.
	CapManageTreasury Capability = "treasury.manage"
	// CapTriggerPayout covers batch pool settlement.
	CapTriggerPayout Capability = "payout.trigger"
	// CapManageParams covers parity rate and token decimal updates.
	CapManageParams Capability = "params.manage"
)

// AllCapabilities lists every capability known to the engine.
var AllCapabilities = []Capability{
	CapManagePools,
	CapManageRegistry,
	CapManageTreasury,
	CapTriggerPayout,
	CapManageParams,
}

// ErrCapabilityRequired is returned when a caller lacks the capability an
// operation demands.
var ErrCapabilityRequired = errors.New("capability required")

// Authorizer answers capability checks for administrative callers.
type Authorizer interface {
	HasCapability(caller types.Address, capability Capability) bool
}

// RequireCapability is the single authorization check invoked at each
// privileged operation's entry.
func RequireCapability(auth Authorizer, caller types.Address, capability Capability) error {
	if auth == nil {
		return ErrCapabilityRequired
	}
	if !auth.HasCapability(caller, capability) {
		return ErrCapabilityRequired
	}
	return nil
}

// StaticAuthorizer grants capabilities from an in-memory table. The daemon
// seeds it from the configured admin addresses.
type StaticAuthorizer struct {
	mu     sync.RWMutex
	grants map[types.Address]map[Capability]bool
}

// NewStaticAuthorizer returns an authorizer with no grants.
func NewStaticAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{grants: make(map[types.Address]map[Capability]bool)}
}

// Grant assigns the listed capabilities to an address.
func (a *StaticAuthorizer) Grant(addr types.Address, caps ...Capability) {
	a.mu.Lock()
	defer a.mu.Unlock()
	set, ok := a.grants[addr]
	if !ok {
		set = make(map[Capability]bool)
		a.grants[addr] = set
	}
	for _, c := range caps {
		set[c] = true
	}
}

// GrantAll assigns every known capability to an address.
func (a *StaticAuthorizer) GrantAll(addr types.Address) {
	a.Grant(addr, AllCapabilities...)
}

// HasCapability implements the Authorizer interface.
func (a *StaticAuthorizer) HasCapability(caller types.Address, capability Capability) bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	set, ok := a.grants[caller]
	if !ok {
		return false
	}
	return set[capability]
}
