package fund

import (
	"ingotfund/core/types"
	"ingotfund/native/common"
)

// Register adds the caller to the referral registry. The referrer is
// optional; when present it must already be registered, must not be the
// caller, and must have headroom in its direct-referral fan-out. The caller's
// 7-level upline chain is materialized once, here.
func (e *Engine) Register(caller types.Address, referrer *types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return err
	}
	existing, ok, err := e.state.User(caller)
	if err != nil {
		return err
	}
	if ok && existing != nil && existing.Registered {
		return ErrAlreadyRegistered
	}
	user := existing
	if user == nil {
		user = &User{}
	}
	user.Normalize()

	if referrer != nil {
		if *referrer == caller {
			return ErrSelfReferral
		}
		refUser, refOK, err := e.state.User(*referrer)
		if err != nil {
			return err
		}
		if !refOK || refUser == nil || !refUser.Registered {
			return ErrReferrerNotRegistered
		}
		refUser.Normalize()
		if len(refUser.Downlines) >= MaxDirectReferrals {
			return ErrDownlineLimit
		}
		refUser.Downlines = append(refUser.Downlines, caller)
		if err := e.state.PutUser(*referrer, refUser); err != nil {
			return err
		}
		ref := *referrer
		user.Referrer = &ref
	} else {
		user.Referrer = nil
	}

	uplines, err := e.computeUplines(user.Referrer)
	if err != nil {
		return err
	}
	user.Uplines = uplines
	user.Registered = true
	if err := e.state.PutUser(caller, user); err != nil {
		return err
	}
	e.emit(UserRegistered{User: caller, Referrer: cloneAddrPtr(user.Referrer)})
	return nil
}

// ChangeReferrer administratively re-parents a registered user and
// recomputes that user's upline chain. Already-distributed rewards are not
// altered, and the stored uplines of the user's own downlines are left as
// materialized at their registration time.
func (e *Engine) ChangeReferrer(caller, user types.Address, newReferrer *types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return err
	}
	if err := e.requireCapability(caller, common.CapManageRegistry); err != nil {
		return err
	}
	if newReferrer != nil && *newReferrer == user {
		return ErrSelfReferral
	}
	record, err := e.loadUser(user)
	if err != nil {
		return err
	}
	if newReferrer != nil {
		refUser, ok, err := e.state.User(*newReferrer)
		if err != nil {
			return err
		}
		if !ok || refUser == nil || !refUser.Registered {
			return ErrReferrerNotRegistered
		}
	}
	old := cloneAddrPtr(record.Referrer)
	record.Referrer = cloneAddrPtr(newReferrer)
	uplines, err := e.computeUplines(record.Referrer)
	if err != nil {
		return err
	}
	record.Uplines = uplines
	if err := e.state.PutUser(user, record); err != nil {
		return err
	}
	e.emit(ReferrerChanged{User: user, OldReferrer: old, NewReferrer: cloneAddrPtr(newReferrer)})
	return nil
}

// SetBlacklisted administratively flips a registered user's blacklist flag.
// Blacklisted users cannot deposit; withdrawals stay operable.
func (e *Engine) SetBlacklisted(caller, user types.Address, blacklisted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return err
	}
	if err := e.requireCapability(caller, common.CapManageRegistry); err != nil {
		return err
	}
	record, err := e.loadUser(user)
	if err != nil {
		return err
	}
	if record.Blacklisted == blacklisted {
		return nil
	}
	record.Blacklisted = blacklisted
	if err := e.state.PutUser(user, record); err != nil {
		return err
	}
	e.emit(UserBlacklisted{User: user, Blacklisted: blacklisted})
	return nil
}

// computeUplines walks the referrer chain upward for exactly UplineLevels
// iterations, stopping early once an ancestor has no referrer. Referrer
// assignment is acyclic by construction (a user can only reference an
// already-registered referrer and self-reference is forbidden), so the walk
// always terminates.
func (e *Engine) computeUplines(referrer *types.Address) ([UplineLevels]*types.Address, error) {
	var uplines [UplineLevels]*types.Address
	current := referrer
	for i := 0; i < UplineLevels; i++ {
		if current == nil {
			break
		}
		addr := *current
		uplines[i] = &addr
		ancestor, ok, err := e.state.User(addr)
		if err != nil {
			return uplines, err
		}
		if !ok || ancestor == nil {
			break
		}
		current = ancestor.Referrer
	}
	return uplines, nil
}

func cloneAddrPtr(addr *types.Address) *types.Address {
	if addr == nil {
		return nil
	}
	clone := *addr
	return &clone
}
