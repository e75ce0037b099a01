package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"ingotfund/core/types"
	"ingotfund/native/fund"
	"ingotfund/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestManagerUserRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	alice := types.Address{1}
	referrer := types.Address{2}

	_, ok, err := manager.User(alice)
	require.NoError(t, err)
	require.False(t, ok)

	stored := &fund.User{
		Referrer:            &referrer,
		Downlines:           []types.Address{{3}, {4}},
		Invested:            big.NewInt(12_345),
		ReferralRewardTotal: big.NewInt(678),
		Registered:          true,
	}
	stored.Uplines[0] = &referrer
	require.NoError(t, manager.PutUser(alice, stored))

	loaded, ok, err := manager.User(alice)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, loaded.Registered)
	require.NotNil(t, loaded.Referrer)
	require.Equal(t, referrer, *loaded.Referrer)
	require.Equal(t, stored.Downlines, loaded.Downlines)
	require.Zero(t, loaded.Invested.Cmp(big.NewInt(12_345)))
	require.NotNil(t, loaded.Uplines[0])
	require.Equal(t, referrer, *loaded.Uplines[0])
	require.Nil(t, loaded.Uplines[1])
	// Absent amounts come back zeroed, never nil.
	require.NotNil(t, loaded.ReferralWithdrawn)
	require.Zero(t, loaded.ReferralWithdrawn.Sign())
}

func TestManagerPoolRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	_, ok, err := manager.Pool(3)
	require.NoError(t, err)
	require.False(t, ok)

	stored := &fund.Pool{
		ID:            3,
		Kind:          fund.PoolLottery,
		Fill:          42,
		Active:        true,
		TotalInvested: big.NewInt(42_000),
		Orders: []fund.Order{{
			Sequence:    1,
			User:        types.Address{9},
			Invested:    big.NewInt(42_000),
			RatePercent: 30,
			Token:       "GLD",
		}},
	}
	require.NoError(t, manager.PutPool(stored))

	loaded, ok, err := manager.Pool(3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, stored.ID, loaded.ID)
	require.Equal(t, fund.PoolLottery, loaded.Kind)
	require.Equal(t, uint64(42), loaded.Fill)
	require.Len(t, loaded.Orders, 1)
	require.Equal(t, "GLD", loaded.Orders[0].Token)
	require.Zero(t, loaded.TotalInvested.Cmp(big.NewInt(42_000)))
}

func TestManagerCounters(t *testing.T) {
	manager := newTestManager(t)

	last, err := manager.LastPoolID()
	require.NoError(t, err)
	require.Zero(t, last)

	require.NoError(t, manager.SetLastPoolID(7))
	require.NoError(t, manager.SetActivePoolID(7))

	last, err = manager.LastPoolID()
	require.NoError(t, err)
	require.Equal(t, uint64(7), last)
	active, err := manager.ActivePoolID()
	require.NoError(t, err)
	require.Equal(t, uint64(7), active)
}

func TestManagerTreasuryDefaults(t *testing.T) {
	manager := newTestManager(t)

	treasury, err := manager.Treasury()
	require.NoError(t, err)
	require.Zero(t, treasury.Reserve.Sign())
	require.Zero(t, treasury.Operational.Sign())
	require.Zero(t, treasury.TotalInvested.Sign())

	treasury.Reserve = big.NewInt(500)
	treasury.Operational = big.NewInt(9_500)
	treasury.TotalInvested = big.NewInt(10_000)
	require.NoError(t, manager.PutTreasury(treasury))

	loaded, err := manager.Treasury()
	require.NoError(t, err)
	require.Zero(t, loaded.Reserve.Cmp(big.NewInt(500)))
	require.Zero(t, loaded.Operational.Cmp(big.NewInt(9_500)))
}

func TestManagerPendingPayout(t *testing.T) {
	manager := newTestManager(t)
	alice := types.Address{1}

	pending, err := manager.PendingPayout(alice)
	require.NoError(t, err)
	require.Zero(t, pending.Sign())

	require.NoError(t, manager.SetPendingPayout(alice, big.NewInt(12_740)))
	pending, err = manager.PendingPayout(alice)
	require.NoError(t, err)
	require.Zero(t, pending.Cmp(big.NewInt(12_740)))

	require.NoError(t, manager.SetPendingPayout(alice, big.NewInt(0)))
	pending, err = manager.PendingPayout(alice)
	require.NoError(t, err)
	require.Zero(t, pending.Sign())
}

func TestManagerBacksEngine(t *testing.T) {
	manager := newTestManager(t)
	engine := fund.NewEngine(fund.DefaultParams())
	engine.SetState(manager)

	require.NoError(t, engine.InitGenesis())
	pool, err := engine.GetPool(1)
	require.NoError(t, err)
	require.True(t, pool.Active)
	require.Equal(t, fund.PoolStandard, pool.Kind)

	alice := types.Address{1}
	require.NoError(t, engine.Register(alice, nil))
	user, err := engine.GetUser(alice)
	require.NoError(t, err)
	require.True(t, user.Registered)
}
