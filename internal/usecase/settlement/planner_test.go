package settlement

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/splitledger-backend/internal/domain"
)

func assertSettles(t *testing.T, snapshot domain.BalanceSnapshot, plan domain.TransferPlan) {
	t.Helper()
	for _, balance := range Apply(snapshot, plan) {
		require.Equal(t, domain.Money(0), balance)
	}
	if n := snapshot.NonZero(); n > 0 {
		require.LessOrEqual(t, len(plan), n-1)
	} else {
		require.Empty(t, plan)
	}
	for _, tr := range plan {
		require.Greater(t, tr.Amount, domain.Money(0))
		require.NotEqual(t, tr.From, tr.To)
	}
}

func TestPlan_OneCreditorTwoDebtors(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	snapshot := domain.BalanceSnapshot{a: 6000, b: -3000, c: -3000}

	plan, err := Plan(snapshot)

	require.NoError(t, err)
	require.Len(t, plan, 2)
	for _, tr := range plan {
		assert.Equal(t, a, tr.To)
		assert.Equal(t, domain.Money(3000), tr.Amount)
	}
	assert.ElementsMatch(t, []uuid.UUID{b, c}, []uuid.UUID{plan[0].From, plan[1].From})
	assertSettles(t, snapshot, plan)
}

func TestPlan_TiesBrokenByMemberID(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	creditor := uuid.MustParse("00000000-0000-0000-0000-000000000009")
	snapshot := domain.BalanceSnapshot{creditor: 200, high: -100, low: -100}

	plan, err := Plan(snapshot)

	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, low, plan[0].From)
	assert.Equal(t, high, plan[1].From)
}

func TestPlan_LargestFirst(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	snapshot := domain.BalanceSnapshot{a: 500, b: 100, c: -450, d: -150}

	plan, err := Plan(snapshot)

	require.NoError(t, err)
	// c (largest debtor) pays a (largest creditor) first
	assert.Equal(t, domain.Transfer{From: c, To: a, Amount: 450}, plan[0])
	assertSettles(t, snapshot, plan)
}

func TestPlan_EmptyAndSettled(t *testing.T) {
	plan, err := Plan(domain.BalanceSnapshot{})
	require.NoError(t, err)
	assert.Empty(t, plan)

	plan, err = Plan(domain.BalanceSnapshot{uuid.New(): 0, uuid.New(): 0})
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestPlan_RejectsNonZeroSum(t *testing.T) {
	snapshot := domain.BalanceSnapshot{uuid.New(): 100, uuid.New(): -99}

	_, err := Plan(snapshot)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestPlan_RejectsOverflowingSnapshot(t *testing.T) {
	snapshot := domain.BalanceSnapshot{uuid.New(): math.MaxInt64, uuid.New(): math.MinInt64 + 1, uuid.New(): math.MaxInt64, uuid.New(): math.MinInt64 + 1}

	_, err := Plan(snapshot)

	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestPlan_Deterministic(t *testing.T) {
	snapshot := domain.BalanceSnapshot{}
	ids := make([]uuid.UUID, 12)
	for i := range ids {
		ids[i] = uuid.New()
	}
	// Many equal magnitudes so tie-breaking matters
	for i, id := range ids {
		if i%2 == 0 {
			snapshot[id] = 250
		} else {
			snapshot[id] = -250
		}
	}

	first, err := Plan(snapshot)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Plan(snapshot.Clone())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPlan_DoesNotModifySnapshot(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	snapshot := domain.BalanceSnapshot{a: 10, b: -10}

	_, err := Plan(snapshot)

	require.NoError(t, err)
	assert.Equal(t, domain.BalanceSnapshot{a: 10, b: -10}, snapshot)
}

func TestPlan_RandomSnapshotsSettleWithinBound(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))

	for round := 0; round < 300; round++ {
		n := rng.IntN(15) + 1
		snapshot := domain.BalanceSnapshot{}
		var sum domain.Money
		for i := 0; i < n-1; i++ {
			v := domain.Money(rng.Int64N(20001) - 10000)
			snapshot[uuid.New()] = v
			sum += v
		}
		snapshot[uuid.New()] = -sum

		plan, err := Plan(snapshot)

		require.NoError(t, err)
		assertSettles(t, snapshot, plan)
	}
}
