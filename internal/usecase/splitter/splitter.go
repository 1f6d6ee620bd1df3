package splitter

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/splitledger-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Allocate splits a total amount among participants according to the policy.
// Returns one share per participant, in input order.
// Logic:
//   - EQUAL: integer division, the first (total mod n) participants get one extra unit
//   - PERCENTAGE: truncate total*weight/100, hand the leftover units out by largest
//     fractional remainder (ties keep input order)
//   - EXACT: weights are the shares; they must already add up to the total
//
// Safety: Ensures the shares sum to the total exactly (no unit created or lost).
// Allocate has no shared state and is safe for concurrent use.
func Allocate(total domain.Money, policy domain.SplitPolicy, participants []domain.Participant) (domain.Allocation, error) {
	if total <= 0 {
		return domain.Allocation{}, invalid("total amount must be positive")
	}
	if len(participants) == 0 {
		return domain.Allocation{}, invalid("participants list cannot be empty")
	}
	if err := checkDistinct(participants); err != nil {
		return domain.Allocation{}, err
	}

	var (
		amounts []domain.Money
		err     error
	)
	switch policy {
	case domain.SplitPolicyEqual:
		amounts = splitEqual(total, len(participants))
	case domain.SplitPolicyPercentage:
		amounts, err = splitPercentage(total, participants)
	case domain.SplitPolicyExact:
		amounts, err = splitExact(total, participants)
	default:
		return domain.Allocation{}, invalid(fmt.Sprintf("unsupported split policy %q", policy))
	}
	if err != nil {
		return domain.Allocation{}, err
	}

	allocation := domain.Allocation{
		Total:  total,
		Shares: make([]domain.Share, len(participants)),
	}
	for i, p := range participants {
		allocation.Shares[i] = domain.Share{MemberID: p.MemberID, Amount: amounts[i]}
	}

	// Safety check: Ensure shares equal the total exactly
	if err := allocation.Validate(); err != nil {
		return domain.Allocation{}, err
	}

	return allocation, nil
}

// splitEqual gives everyone the same base share and distributes the remainder
// one unit at a time in input order
func splitEqual(total domain.Money, n int) []domain.Money {
	count := domain.Money(n)
	base := total / count
	remainder := total % count

	amounts := make([]domain.Money, n)
	for i := range amounts {
		amounts[i] = base
		if domain.Money(i) < remainder {
			amounts[i]++
		}
	}
	return amounts
}

// splitPercentage applies the largest-remainder method to percentage weights
func splitPercentage(total domain.Money, participants []domain.Participant) ([]domain.Money, error) {
	sum := decimal.Zero
	for _, p := range participants {
		if p.Weight.IsNegative() {
			return nil, invalid(fmt.Sprintf("percentage for member %s cannot be negative", p.MemberID))
		}
		sum = sum.Add(p.Weight)
	}
	if !sum.Equal(hundred) {
		return nil, invalid(fmt.Sprintf("percentages must sum to exactly 100, got %s", sum.String()))
	}

	totalDec := decimal.NewFromInt(int64(total))
	amounts := make([]domain.Money, len(participants))
	remainders := make([]decimal.Decimal, len(participants))
	var allocated domain.Money

	for i, p := range participants {
		// q*100 + r == total*weight, with 0 <= r < 100
		q, r := totalDec.Mul(p.Weight).QuoRem(hundred, 0)
		amounts[i] = domain.Money(q.IntPart())
		remainders[i] = r
		allocated += amounts[i]
	}

	leftover := total - allocated
	if leftover < 0 || leftover >= domain.Money(len(participants)) {
		return nil, fmt.Errorf("%w: truncation left %d units for %d participants", domain.ErrUnbalancedAllocation, leftover, len(participants))
	}

	order := make([]int, len(participants))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})

	for k := domain.Money(0); k < leftover; k++ {
		amounts[order[k]]++
	}
	return amounts, nil
}

// splitExact takes the weights as shares after checking they are whole units summing to the total
func splitExact(total domain.Money, participants []domain.Participant) ([]domain.Money, error) {
	amounts := make([]domain.Money, len(participants))
	var sum domain.Money

	for i, p := range participants {
		if !p.Weight.IsInteger() {
			return nil, invalid(fmt.Sprintf("exact amount for member %s must be a whole number of minor units", p.MemberID))
		}
		if p.Weight.IsNegative() {
			return nil, invalid(fmt.Sprintf("exact amount for member %s cannot be negative", p.MemberID))
		}
		if p.Weight.GreaterThan(decimal.NewFromInt(int64(total))) {
			return nil, invalid(fmt.Sprintf("exact amount for member %s exceeds the total", p.MemberID))
		}
		amounts[i] = domain.Money(p.Weight.IntPart())
		sum += amounts[i]
	}

	if sum != total {
		return nil, invalid(fmt.Sprintf("exact amounts sum to %d, total is %d", sum, total))
	}
	return amounts, nil
}

func checkDistinct(participants []domain.Participant) error {
	seen := make(map[uuid.UUID]bool, len(participants))
	for _, p := range participants {
		if p.MemberID == uuid.Nil {
			return invalid("participant must have a member ID")
		}
		if seen[p.MemberID] {
			return invalid(fmt.Sprintf("member %s listed more than once", p.MemberID))
		}
		seen[p.MemberID] = true
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidPolicyInput, msg)
}
