package splitter

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/splitledger-backend/internal/domain"
)

func members(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func equalParticipants(ids []uuid.UUID) []domain.Participant {
	out := make([]domain.Participant, len(ids))
	for i, id := range ids {
		out[i] = domain.Participant{MemberID: id}
	}
	return out
}

func weighted(ids []uuid.UUID, weights ...string) []domain.Participant {
	out := make([]domain.Participant, len(ids))
	for i, id := range ids {
		out[i] = domain.Participant{MemberID: id, Weight: decimal.RequireFromString(weights[i])}
	}
	return out
}

func amounts(a domain.Allocation) []domain.Money {
	out := make([]domain.Money, len(a.Shares))
	for i, s := range a.Shares {
		out[i] = s.Amount
	}
	return out
}

func TestAllocate_EqualWithRemainder(t *testing.T) {
	// 100.00 split three ways: the extra cent goes to the first participant
	ids := members(3)

	allocation, err := Allocate(10000, domain.SplitPolicyEqual, equalParticipants(ids))

	require.NoError(t, err)
	assert.Equal(t, []domain.Money{3334, 3333, 3333}, amounts(allocation))
	assert.Equal(t, ids[0], allocation.Shares[0].MemberID)
	assert.Equal(t, domain.Money(10000), allocation.Sum())
}

func TestAllocate_EqualRemainderFollowsInputOrder(t *testing.T) {
	ids := members(4)

	allocation, err := Allocate(10, domain.SplitPolicyEqual, equalParticipants(ids))

	require.NoError(t, err)
	// 10 / 4 = 2 remainder 2
	assert.Equal(t, []domain.Money{3, 3, 2, 2}, amounts(allocation))
	for i, share := range allocation.Shares {
		assert.Equal(t, ids[i], share.MemberID)
	}
}

func TestAllocate_EqualSingleParticipant(t *testing.T) {
	ids := members(1)

	allocation, err := Allocate(999, domain.SplitPolicyEqual, equalParticipants(ids))

	require.NoError(t, err)
	assert.Equal(t, []domain.Money{999}, amounts(allocation))
}

func TestAllocate_Percentage(t *testing.T) {
	ids := members(2)

	allocation, err := Allocate(10000, domain.SplitPolicyPercentage, weighted(ids, "60", "40"))

	require.NoError(t, err)
	assert.Equal(t, []domain.Money{6000, 4000}, amounts(allocation))
}

func TestAllocate_PercentageLargestRemainder(t *testing.T) {
	ids := members(3)

	// 100 * 33.33% = 33.33, 100 * 33.34% = 33.34 -> the leftover unit goes to the largest fraction
	allocation, err := Allocate(100, domain.SplitPolicyPercentage, weighted(ids, "33.33", "33.33", "33.34"))

	require.NoError(t, err)
	assert.Equal(t, []domain.Money{33, 33, 34}, amounts(allocation))
}

func TestAllocate_PercentageTieBrokenByInputOrder(t *testing.T) {
	ids := members(2)

	allocation, err := Allocate(1, domain.SplitPolicyPercentage, weighted(ids, "50", "50"))

	require.NoError(t, err)
	assert.Equal(t, []domain.Money{1, 0}, amounts(allocation))
}

func TestAllocate_PercentageSeveralLeftoverUnits(t *testing.T) {
	ids := members(3)

	// 1000 * 33.3%/33.3%/33.4% = 333, 333, 334 exactly
	allocation, err := Allocate(1000, domain.SplitPolicyPercentage, weighted(ids, "33.3", "33.3", "33.4"))
	require.NoError(t, err)
	assert.Equal(t, []domain.Money{333, 333, 334}, amounts(allocation))

	// 7 * ~1/3 each: truncated to 2 each, the one unit left goes to the largest fraction (third)
	thirds := weighted(ids, "33.333333", "33.333333", "33.333334")
	allocation, err = Allocate(7, domain.SplitPolicyPercentage, thirds)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(7), allocation.Sum())
	assert.Equal(t, []domain.Money{2, 2, 3}, amounts(allocation))
}

func TestAllocate_Exact(t *testing.T) {
	ids := members(3)

	allocation, err := Allocate(10000, domain.SplitPolicyExact, weighted(ids, "5000", "2500", "2500"))

	require.NoError(t, err)
	assert.Equal(t, []domain.Money{5000, 2500, 2500}, amounts(allocation))
}

func TestAllocate_InvalidInput(t *testing.T) {
	ids := members(2)
	dup := []domain.Participant{{MemberID: ids[0]}, {MemberID: ids[0]}}

	tests := []struct {
		name         string
		total        domain.Money
		policy       domain.SplitPolicy
		participants []domain.Participant
		errMsg       string
	}{
		{"empty participants", 100, domain.SplitPolicyEqual, nil, "participants list cannot be empty"},
		{"zero total", 0, domain.SplitPolicyEqual, equalParticipants(ids), "total amount must be positive"},
		{"negative total", -5, domain.SplitPolicyEqual, equalParticipants(ids), "total amount must be positive"},
		{"duplicate member", 100, domain.SplitPolicyEqual, dup, "listed more than once"},
		{"nil member", 100, domain.SplitPolicyEqual, []domain.Participant{{}}, "must have a member ID"},
		{"unknown policy", 100, domain.SplitPolicy("SHARES"), equalParticipants(ids), "unsupported split policy"},
		{"percent under 100", 100, domain.SplitPolicyPercentage, weighted(ids, "60", "39.99"), "must sum to exactly 100"},
		{"percent over 100", 100, domain.SplitPolicyPercentage, weighted(ids, "60", "40.0001"), "must sum to exactly 100"},
		{"negative percent", 100, domain.SplitPolicyPercentage, weighted(ids, "110", "-10"), "cannot be negative"},
		{"exact mismatch", 100, domain.SplitPolicyExact, weighted(ids, "50", "49"), "exact amounts sum to 99"},
		{"exact fractional", 100, domain.SplitPolicyExact, weighted(ids, "50.5", "49.5"), "whole number"},
		{"exact negative", 100, domain.SplitPolicyExact, weighted(ids, "-50", "150"), "cannot be negative"},
		{"exact above total", 100, domain.SplitPolicyExact, weighted(ids, "200", "0"), "exceeds the total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Allocate(tt.total, tt.policy, tt.participants)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidPolicyInput)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	ids := members(5)
	inputs := []struct {
		policy       domain.SplitPolicy
		participants []domain.Participant
	}{
		{domain.SplitPolicyEqual, equalParticipants(ids)},
		{domain.SplitPolicyPercentage, weighted(ids, "12.5", "17.5", "20", "25", "25")},
		{domain.SplitPolicyExact, weighted(ids, "1", "2", "3", "4", "12335")},
	}

	for _, in := range inputs {
		first, err := Allocate(12345, in.policy, in.participants)
		require.NoError(t, err)
		second, err := Allocate(12345, in.policy, in.participants)
		require.NoError(t, err)

		assert.Equal(t, first, second, "policy %s", in.policy)
	}
}

func TestAllocate_Conservation(t *testing.T) {
	ids := members(7)
	weightSets := [][]string{
		{"100"},
		{"50", "50"},
		{"33.33", "33.33", "33.34"},
		{"10", "20", "30", "40"},
		{"1", "1", "1", "1", "96"},
		{"14.285714", "14.285714", "14.285714", "14.285714", "14.285714", "14.285714", "14.285716"},
	}

	for total := domain.Money(1); total <= 2500; total += 7 {
		for n := 1; n <= len(ids); n++ {
			allocation, err := Allocate(total, domain.SplitPolicyEqual, equalParticipants(ids[:n]))
			require.NoError(t, err)
			require.Equal(t, total, allocation.Sum(), "equal total=%d n=%d", total, n)

			// No share differs from another by more than one unit
			shares := amounts(allocation)
			for _, s := range shares {
				assert.LessOrEqual(t, shares[0]-s, domain.Money(1))
			}
		}

		for _, weights := range weightSets {
			allocation, err := Allocate(total, domain.SplitPolicyPercentage, weighted(ids[:len(weights)], weights...))
			require.NoError(t, err)
			require.Equal(t, total, allocation.Sum(), "percentage total=%d weights=%v", total, weights)
		}
	}
}
