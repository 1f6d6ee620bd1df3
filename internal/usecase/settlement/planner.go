package settlement

import (
	"container/heap"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/splitledger-backend/internal/domain"
)

// party is a member with an outstanding amount; amount is always positive
type party struct {
	memberID uuid.UUID
	amount   domain.Money
}

// partyHeap is a max-heap on amount, ties broken by ascending member ID
type partyHeap []party

func (h partyHeap) Len() int { return len(h) }

func (h partyHeap) Less(i, j int) bool {
	if h[i].amount != h[j].amount {
		return h[i].amount > h[j].amount
	}
	return domain.CompareMemberIDs(h[i].memberID, h[j].memberID) < 0
}

func (h partyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *partyHeap) Push(x any) { *h = append(*h, x.(party)) }

func (h *partyHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]
	return p
}

// Plan derives the transfers that zero every balance of a snapshot.
// Logic:
//  1. Split members into creditors (balance > 0) and debtors (balance < 0), skipping zeros
//  2. Match the largest debtor with the largest creditor for min(debt, credit)
//  3. Push back whichever side still has something outstanding
//  4. Repeat until one side is empty
//
// Every step settles at least one member, so the plan has at most n-1 transfers
// for n members with a non-zero balance. The result is deterministic for a given snapshot.
// Returns ErrInvariantViolation if the snapshot does not sum to zero.
func Plan(snapshot domain.BalanceSnapshot) (domain.TransferPlan, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	creditors := &partyHeap{}
	debtors := &partyHeap{}
	for memberID, balance := range snapshot {
		switch {
		case balance > 0:
			*creditors = append(*creditors, party{memberID: memberID, amount: balance})
		case balance < 0:
			*debtors = append(*debtors, party{memberID: memberID, amount: -balance})
		}
	}
	heap.Init(creditors)
	heap.Init(debtors)

	plan := make(domain.TransferPlan, 0, max(creditors.Len()+debtors.Len()-1, 0))
	for creditors.Len() > 0 && debtors.Len() > 0 {
		creditor := heap.Pop(creditors).(party)
		debtor := heap.Pop(debtors).(party)

		amount := min(creditor.amount, debtor.amount)
		plan = append(plan, domain.Transfer{
			From:   debtor.memberID,
			To:     creditor.memberID,
			Amount: amount,
		})

		if creditor.amount -= amount; creditor.amount > 0 {
			heap.Push(creditors, creditor)
		}
		if debtor.amount -= amount; debtor.amount > 0 {
			heap.Push(debtors, debtor)
		}
	}

	// With a zero-sum snapshot both sides run out together
	if creditors.Len() != 0 || debtors.Len() != 0 {
		return nil, fmt.Errorf("%w: unmatched balances left after settlement", domain.ErrInvariantViolation)
	}

	return plan, nil
}

// Apply returns the snapshot that results from executing every transfer of a plan.
// The input snapshot is not modified.
func Apply(snapshot domain.BalanceSnapshot, plan domain.TransferPlan) domain.BalanceSnapshot {
	out := snapshot.Clone()
	for _, t := range plan {
		out[t.From] += t.Amount
		out[t.To] -= t.Amount
	}
	return out
}
