package fund

import (
	"errors"
	"math/big"
	"testing"

	"ingotfund/native/common"
)

func TestJoinPoolSingleDeposit(t *testing.T) {
	engine, state, ledger, collector := newTestEngine()
	alice := testAddr(1)
	bob := testAddr(2)
	mustRegister(engine, alice, nil)
	mustRegister(engine, bob, &alice)

	// 1000 GLD at the default price of 1000 buys exactly one ingot.
	if err := engine.JoinPool(bob, 1, big.NewInt(1000), "GLD"); err != nil {
		t.Fatalf("join: %v", err)
	}

	pool := state.pools[1]
	if pool.Fill != 1 {
		t.Fatalf("expected fill 1, got %d", pool.Fill)
	}
	if pool.TotalInvested.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected pool total 1000, got %s", pool.TotalInvested)
	}
	if len(pool.Orders) != 1 {
		t.Fatalf("expected one order, got %d", len(pool.Orders))
	}
	order := pool.Orders[0]
	if order.Sequence != 1 || order.User != bob || order.Paid {
		t.Fatalf("unexpected order %+v", order)
	}
	if order.RatePercent != DefaultParams().InterestRatePercent {
		t.Fatalf("expected order stamped with the configured rate")
	}

	// 5% reserve, remainder operational, no leakage.
	treasury := state.treasury
	if treasury.Reserve.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected reserve 50, got %s", treasury.Reserve)
	}
	if treasury.Operational.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("expected operational 950, got %s", treasury.Operational)
	}
	if treasury.TotalInvested.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected total invested 1000, got %s", treasury.TotalInvested)
	}

	// Level-1 commission of 3% accrues to the direct sponsor.
	sponsor := state.users[alice]
	if sponsor.ReferralRewardTotal.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("expected sponsor reward 30, got %s", sponsor.ReferralRewardTotal)
	}

	if state.users[bob].Invested.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected bob invested 1000")
	}
	if ledger.holderBalance("GLD").Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected holder credited with the full deposit")
	}

	var joined *PoolJoined
	for _, evt := range collector.Events() {
		if pj, ok := evt.(PoolJoined); ok {
			joined = &pj
		}
	}
	if joined == nil || joined.Ingots != 1 || joined.Pool != 1 {
		t.Fatalf("expected PoolJoined event for one ingot in pool 1, got %+v", joined)
	}
}

func TestJoinPoolRequiresRegistration(t *testing.T) {
	engine, _, _, _ := newTestEngine()
	if err := engine.JoinPool(testAddr(1), 1, big.NewInt(1000), "GLD"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestJoinPoolValidation(t *testing.T) {
	engine, _, _, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)

	if err := engine.JoinPool(alice, 1, big.NewInt(0), "GLD"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := engine.JoinPool(alice, 1, big.NewInt(999), "GLD"); !errors.Is(err, ErrBelowIngotPrice) {
		t.Fatalf("expected ErrBelowIngotPrice, got %v", err)
	}
	if err := engine.JoinPool(alice, 1, big.NewInt(1000), "USD"); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
	if err := engine.JoinPool(alice, 7, big.NewInt(1000), "GLD"); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
	// A single deposit larger than the whole pool can never fit.
	if err := engine.JoinPool(alice, 1, big.NewInt(101_000), "GLD"); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("expected ErrPoolFull, got %v", err)
	}
}

func TestJoinPoolPartialIngotsTruncate(t *testing.T) {
	engine, state, _, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)

	// 2500 GLD buys two ingots; the remainder still counts as invested.
	if err := engine.JoinPool(alice, 1, big.NewInt(2500), "GLD"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if state.pools[1].Fill != 2 {
		t.Fatalf("expected fill 2, got %d", state.pools[1].Fill)
	}
	if state.pools[1].TotalInvested.Cmp(big.NewInt(2500)) != 0 {
		t.Fatalf("expected full amount recorded, got %s", state.pools[1].TotalInvested)
	}
}

func TestJoinPoolSecondaryTokenParity(t *testing.T) {
	engine, state, _, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)

	// Halve the secondary-token parity: one ingot now costs 500 ZGLD.
	if err := engine.SetParityBps(adminAddr, 5000); err != nil {
		t.Fatalf("set parity: %v", err)
	}
	if err := engine.JoinPool(alice, 1, big.NewInt(499), "ZGLD"); !errors.Is(err, ErrBelowIngotPrice) {
		t.Fatalf("expected ErrBelowIngotPrice, got %v", err)
	}
	if err := engine.JoinPool(alice, 1, big.NewInt(1500), "zgld"); err != nil {
		t.Fatalf("join with secondary token: %v", err)
	}
	if state.pools[1].Fill != 3 {
		t.Fatalf("expected fill 3, got %d", state.pools[1].Fill)
	}
	if state.pools[1].Orders[0].Token != "ZGLD" {
		t.Fatalf("expected canonical token symbol on order")
	}
}

func TestJoinPoolBlacklisted(t *testing.T) {
	engine, _, _, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)
	if err := engine.SetBlacklisted(adminAddr, alice, true); err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	if err := engine.JoinPool(alice, 1, big.NewInt(1000), "GLD"); !errors.Is(err, ErrBlacklisted) {
		t.Fatalf("expected ErrBlacklisted, got %v", err)
	}
}

func TestJoinPoolSuspended(t *testing.T) {
	engine, _, _, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)

	switches := common.NewSwitchSet()
	switches.Pause(common.ModuleDeposits)
	engine.SetPauses(switches)

	if err := engine.JoinPool(alice, 1, big.NewInt(1000), "GLD"); !errors.Is(err, ErrDepositsSuspended) {
		t.Fatalf("expected ErrDepositsSuspended, got %v", err)
	}

	switches.Resume(common.ModuleDeposits)
	if err := engine.JoinPool(alice, 1, big.NewInt(1000), "GLD"); err != nil {
		t.Fatalf("expected deposits to resume, got %v", err)
	}
}

func TestJoinPoolTransferFailureLeavesNoState(t *testing.T) {
	engine, state, ledger, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)
	ledger.failIn = true

	err := engine.JoinPool(alice, 1, big.NewInt(1000), "GLD")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if state.pools[1].Fill != 0 || len(state.pools[1].Orders) != 0 {
		t.Fatalf("failed transfer must not mutate the pool")
	}
	if state.users[alice].Invested.Sign() != 0 {
		t.Fatalf("failed transfer must not mutate the user")
	}
	if state.treasury != nil && state.treasury.TotalInvested.Sign() != 0 {
		t.Fatalf("failed transfer must not mutate the treasury")
	}
}

func TestJoinPoolRollover(t *testing.T) {
	engine, state, _, collector := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)

	// Fill the pool to 99 ingots, then add the 100th.
	mustJoin(engine, alice, 1, 99_000, "GLD")
	collector.Reset()
	mustJoin(engine, alice, 1, 1000, "GLD")

	closed := state.pools[1]
	if closed.Fill != PoolCapacityIngots || closed.Active {
		t.Fatalf("expected pool 1 full and closed, got fill=%d active=%v", closed.Fill, closed.Active)
	}
	opened := state.pools[2]
	if opened == nil || !opened.Active || opened.Fill != 0 || opened.Kind != PoolStandard {
		t.Fatalf("expected fresh active standard pool 2, got %+v", opened)
	}
	if state.lastPool != 2 || state.activePool != 2 {
		t.Fatalf("expected counters advanced to 2, got last=%d active=%d", state.lastPool, state.activePool)
	}

	var created *PoolCreated
	var rolled *PoolRolledOver
	for _, evt := range collector.Events() {
		switch ev := evt.(type) {
		case PoolCreated:
			created = &ev
		case PoolRolledOver:
			rolled = &ev
		}
	}
	if created == nil || created.Reason != PoolCreateRollover || created.ID != 2 {
		t.Fatalf("expected rollover PoolCreated for pool 2, got %+v", created)
	}
	if rolled == nil || rolled.Closed != 1 || rolled.Opened != 2 {
		t.Fatalf("expected rollover 1 -> 2, got %+v", rolled)
	}

	// The closed pool never accepts further deposits.
	if err := engine.JoinPool(alice, 1, big.NewInt(1000), "GLD"); !errors.Is(err, ErrPoolInactive) {
		t.Fatalf("expected ErrPoolInactive, got %v", err)
	}
}

func TestJoinPoolOverfillRejected(t *testing.T) {
	engine, state, _, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)
	mustJoin(engine, alice, 1, 99_000, "GLD")

	// Two ingots into one remaining slot must fail without touching state.
	if err := engine.JoinPool(alice, 1, big.NewInt(2000), "GLD"); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("expected ErrPoolFull, got %v", err)
	}
	if state.pools[1].Fill != 99 {
		t.Fatalf("expected fill unchanged at 99, got %d", state.pools[1].Fill)
	}
}

func TestJoinPoolRolloverSkipsForcedPool(t *testing.T) {
	engine, state, _, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)
	mustJoin(engine, alice, 1, 99_000, "GLD")

	// An administratively provisioned pool advances the high-water mark, so
	// the rollover mints the ID after it instead of reusing it.
	if err := engine.ForceCreatePool(adminAddr, 2, PoolStandard); err != nil {
		t.Fatalf("force create: %v", err)
	}
	mustJoin(engine, alice, 1, 1000, "GLD")

	if state.pools[1].Active {
		t.Fatalf("filled pool must close")
	}
	successor, ok := state.pools[3]
	if !ok || !successor.Active {
		t.Fatalf("expected rollover successor pool 3, got %+v", successor)
	}
	if forced := state.pools[2]; !forced.Active || forced.Fill != 0 || len(forced.Orders) != 0 {
		t.Fatalf("forced pool must be untouched by the rollover, got %+v", forced)
	}
	if state.lastPool != 3 || state.activePool != 3 {
		t.Fatalf("expected counters at 3, got last=%d active=%d", state.lastPool, state.activePool)
	}
}

func TestJoinPoolRolloverCollisionGuard(t *testing.T) {
	engine, state, ledger, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)
	mustJoin(engine, alice, 1, 99_000, "GLD")

	// A pool record sitting at last+1 while the high-water mark still points
	// below it is a store inconsistency; the filling deposit must abort
	// before the asset transfer rather than overwrite the record.
	state.pools[2] = (&Pool{ID: 2, Kind: PoolStandard, Active: true}).Normalize()

	inBefore := ledger.inCalls
	if err := engine.JoinPool(alice, 1, big.NewInt(1000), "GLD"); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}
	if ledger.inCalls != inBefore {
		t.Fatalf("collision must abort before the asset transfer")
	}
	if state.pools[1].Fill != 99 {
		t.Fatalf("collision must not mutate the pool")
	}
}

func TestJoinPoolNoRolloverAtMaxID(t *testing.T) {
	engine, state, _, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)
	if err := engine.ForceCreatePool(adminAddr, MaxPoolID, PoolLottery); err != nil {
		t.Fatalf("force create: %v", err)
	}

	// Filling the terminal pool mints no successor: the ID space is bounded
	// and the pool simply sits full until settlement.
	mustJoin(engine, alice, MaxPoolID, 100_000, "GLD")
	terminal := state.pools[MaxPoolID]
	if terminal.Fill != PoolCapacityIngots {
		t.Fatalf("expected terminal pool full")
	}
	if !terminal.Active {
		t.Fatalf("terminal pool must stay active until paid out")
	}
	if _, ok := state.pools[MaxPoolID+1]; ok {
		t.Fatalf("no pool may be minted beyond the ID bound")
	}
	if state.lastPool != MaxPoolID {
		t.Fatalf("expected high-water mark to stay at %d, got %d", uint64(MaxPoolID), state.lastPool)
	}
}

func TestJoinPoolNoRolloverWhenMarkAtBound(t *testing.T) {
	engine, state, _, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)
	if err := engine.ForceCreatePool(adminAddr, MaxPoolID, PoolLottery); err != nil {
		t.Fatalf("force create: %v", err)
	}

	// With the high-water mark at the bound no successor can be minted, so a
	// lower pool filling to capacity stays active; a full pool rejects
	// further deposits regardless.
	mustJoin(engine, alice, 1, 100_000, "GLD")
	filled := state.pools[1]
	if filled.Fill != PoolCapacityIngots || !filled.Active {
		t.Fatalf("expected pool 1 full and active, got fill=%d active=%v", filled.Fill, filled.Active)
	}
	if state.lastPool != MaxPoolID {
		t.Fatalf("expected high-water mark unchanged at %d, got %d", uint64(MaxPoolID), state.lastPool)
	}
	if err := engine.JoinPool(alice, 1, big.NewInt(1000), "GLD"); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("expected ErrPoolFull on the full pool, got %v", err)
	}
}

func TestForceCreatePool(t *testing.T) {
	engine, state, _, _ := newTestEngine()

	if err := engine.ForceCreatePool(testAddr(9), 5, PoolStandard); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.ForceCreatePool(adminAddr, 0, PoolStandard); !errors.Is(err, ErrPoolIDOutOfRange) {
		t.Fatalf("expected ErrPoolIDOutOfRange for 0, got %v", err)
	}
	if err := engine.ForceCreatePool(adminAddr, MaxPoolID+1, PoolLottery); !errors.Is(err, ErrPoolIDOutOfRange) {
		t.Fatalf("expected ErrPoolIDOutOfRange beyond bound, got %v", err)
	}
	if err := engine.ForceCreatePool(adminAddr, 5, PoolKind(9)); !errors.Is(err, ErrInvalidPoolKind) {
		t.Fatalf("expected ErrInvalidPoolKind, got %v", err)
	}
	if err := engine.ForceCreatePool(adminAddr, 1, PoolStandard); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists for genesis pool, got %v", err)
	}

	if err := engine.ForceCreatePool(adminAddr, 10, PoolLottery); err != nil {
		t.Fatalf("force create: %v", err)
	}
	if state.pools[10].Kind != PoolLottery || !state.pools[10].Active {
		t.Fatalf("expected active lottery pool 10")
	}
	if state.lastPool != 10 {
		t.Fatalf("expected high-water mark advanced to 10, got %d", state.lastPool)
	}

	// Creating below the mark does not rewind it.
	if err := engine.ForceCreatePool(adminAddr, 4, PoolStandard); err != nil {
		t.Fatalf("force create below mark: %v", err)
	}
	if state.lastPool != 10 {
		t.Fatalf("high-water mark must not rewind, got %d", state.lastPool)
	}
}

func TestSetPoolActive(t *testing.T) {
	engine, state, _, _ := newTestEngine()
	alice := testAddr(1)
	mustRegister(engine, alice, nil)

	if err := engine.SetPoolActive(testAddr(9), 1, false); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.SetPoolActive(adminAddr, 7, false); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}

	// Closing a half-filled pool blocks deposits; reopening restores them.
	mustJoin(engine, alice, 1, 1000, "GLD")
	if err := engine.SetPoolActive(adminAddr, 1, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := engine.JoinPool(alice, 1, big.NewInt(1000), "GLD"); !errors.Is(err, ErrPoolInactive) {
		t.Fatalf("expected ErrPoolInactive, got %v", err)
	}
	if err := engine.SetPoolActive(adminAddr, 1, true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	mustJoin(engine, alice, 1, 1000, "GLD")

	// A settled pool is terminal.
	if err := engine.TriggerPayout(adminAddr, 1); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := engine.SetPoolActive(adminAddr, 1, true); !errors.Is(err, ErrPoolAlreadyPaid) {
		t.Fatalf("expected ErrPoolAlreadyPaid, got %v", err)
	}
	if state.pools[1].Active {
		t.Fatalf("terminal pool must stay closed")
	}
}

func TestActiveAndNextPoolID(t *testing.T) {
	engine, state, _, _ := newTestEngine()

	active, err := engine.ActivePoolID()
	if err != nil || active != 1 {
		t.Fatalf("expected active pool 1, got %d (%v)", active, err)
	}
	next, err := engine.NextPoolID()
	if err != nil || next != 2 {
		t.Fatalf("expected next pool 2, got %d (%v)", next, err)
	}

	// Deactivating the pointer's pool without a successor yields zero.
	pool := state.pools[1]
	pool.Active = false
	state.pools[1] = pool
	active, err = engine.ActivePoolID()
	if err != nil || active != 0 {
		t.Fatalf("expected no active pool, got %d (%v)", active, err)
	}
}

func TestGetPoolReturnsCopy(t *testing.T) {
	engine, state, _, _ := newTestEngine()
	got, err := engine.GetPool(1)
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	got.Fill = 42
	if state.pools[1].Fill != 0 {
		t.Fatalf("mutating the returned pool must not touch stored state")
	}
}

func TestKindForPoolID(t *testing.T) {
	for id := uint64(1); id <= StandardPoolMaxID; id++ {
		if KindForPoolID(id) != PoolStandard {
			t.Fatalf("expected pool %d standard", id)
		}
	}
	for id := uint64(StandardPoolMaxID + 1); id <= MaxPoolID; id++ {
		if KindForPoolID(id) != PoolLottery {
			t.Fatalf("expected pool %d lottery", id)
		}
	}
}
