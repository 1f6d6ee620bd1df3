package grpc

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/splitledger-backend/internal/domain"
)

// Request and response bodies travel as google.protobuf.Struct on the wire and
// are converted to these types by the service descriptor. Amounts are decimal
// strings in the group's currency ("12.50"); they become minor units here.

type GroupRequest struct {
	GroupID string `json:"group_id" validate:"required,uuid"`
}

type CreateGroupRequest struct {
	Name     string   `json:"name" validate:"required,max=120"`
	Currency string   `json:"currency" validate:"required,len=3,alpha"`
	Members  []string `json:"members" validate:"required,min=1,max=50,dive,required,max=80"`
}

type AddMemberRequest struct {
	GroupID string `json:"group_id" validate:"required,uuid"`
	Name    string `json:"name" validate:"required,max=80"`
}

type MemberDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type GroupResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Currency  string      `json:"currency"`
	Members   []MemberDTO `json:"members"`
	CreatedAt string      `json:"created_at"`
}

type ParticipantDTO struct {
	MemberID string `json:"member_id" validate:"required,uuid"`
	// Percentage for PERCENTAGE, amount for EXACT, ignored for EQUAL
	Weight string `json:"weight,omitempty" validate:"omitempty,numeric"`
}

type RecordExpenseRequest struct {
	GroupID      string           `json:"group_id" validate:"required,uuid"`
	Description  string           `json:"description" validate:"max=200"`
	Amount       string           `json:"amount" validate:"required,numeric"`
	PayerID      string           `json:"payer_id" validate:"required,uuid"`
	Policy       string           `json:"policy" validate:"required,oneof=EQUAL PERCENTAGE EXACT"`
	Participants []ParticipantDTO `json:"participants" validate:"max=50,dive"`
}

type PreviewSplitRequest struct {
	GroupID      string           `json:"group_id" validate:"required,uuid"`
	Amount       string           `json:"amount" validate:"required,numeric"`
	Policy       string           `json:"policy" validate:"required,oneof=EQUAL PERCENTAGE EXACT"`
	Participants []ParticipantDTO `json:"participants" validate:"max=50,dive"`
}

type ExpenseRequest struct {
	ExpenseID string `json:"expense_id" validate:"required,uuid"`
}

type CorrectExpenseRequest struct {
	ExpenseID string `json:"expense_id" validate:"required,uuid"`
	RecordExpenseRequest
}

type ListExpensesRequest struct {
	GroupID string `json:"group_id" validate:"required,uuid"`
	Limit   int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Offset  int    `json:"offset" validate:"min=0"`
}

type RecordPaymentRequest struct {
	GroupID string `json:"group_id" validate:"required,uuid"`
	From    string `json:"from" validate:"required,uuid"`
	To      string `json:"to" validate:"required,uuid,nefield=From"`
	Amount  string `json:"amount" validate:"required,numeric"`
	Note    string `json:"note" validate:"max=200"`
}

type ShareDTO struct {
	MemberID string `json:"member_id"`
	Amount   string `json:"amount"`
}

type BalanceDTO struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Amount   string `json:"amount"`
}

type TransferDTO struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type ExpenseDTO struct {
	ID          string     `json:"id"`
	GroupID     string     `json:"group_id"`
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	PayerID     string     `json:"payer_id"`
	Policy      string     `json:"policy"`
	Shares      []ShareDTO `json:"shares,omitempty"`
	ReversesID  string     `json:"reverses_id,omitempty"`
	CreatedAt   string     `json:"created_at"`
}

type SplitResponse struct {
	Shares []ShareDTO `json:"shares"`
}

type ExpenseResponse struct {
	Expense  ExpenseDTO   `json:"expense"`
	Balances []BalanceDTO `json:"balances"`
}

type CorrectExpenseResponse struct {
	Reversal  ExpenseResponse `json:"reversal"`
	Corrected ExpenseResponse `json:"corrected"`
}

type ListExpensesResponse struct {
	Expenses []ExpenseDTO `json:"expenses"`
	Total    int          `json:"total"`
}

type BalancesResponse struct {
	Balances []BalanceDTO `json:"balances"`
}

type SettlementResponse struct {
	Transfers []TransferDTO `json:"transfers"`
	Balances  []BalanceDTO  `json:"balances"`
}

type PaymentDTO struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"created_at"`
}

type PaymentResponse struct {
	Payment  PaymentDTO   `json:"payment"`
	Balances []BalanceDTO `json:"balances"`
}

type ListPaymentsResponse struct {
	Payments []PaymentDTO `json:"payments"`
}

// parseParticipants converts wire participants to domain weights.
// EXACT weights are amounts and are converted to minor units; PERCENTAGE
// weights are kept as decimals.
func parseParticipants(in []ParticipantDTO, policy domain.SplitPolicy, currency domain.Currency) ([]domain.Participant, error) {
	out := make([]domain.Participant, 0, len(in))
	for _, p := range in {
		id, err := uuid.Parse(p.MemberID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid member_id %q", domain.ErrValidation, p.MemberID)
		}

		participant := domain.Participant{MemberID: id}
		switch policy {
		case domain.SplitPolicyExact:
			amount, err := domain.ParseMoney(p.Weight, currency)
			if err != nil {
				return nil, err
			}
			participant.Weight = decimal.NewFromInt(int64(amount))
		case domain.SplitPolicyPercentage:
			if p.Weight == "" {
				return nil, fmt.Errorf("%w: percentage missing for member %s", domain.ErrInvalidPolicyInput, id)
			}
			participant.Weight, err = decimal.NewFromString(p.Weight)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid percentage %q", domain.ErrValidation, p.Weight)
			}
		}
		out = append(out, participant)
	}
	return out, nil
}

func toGroupResponse(g *domain.Group) *GroupResponse {
	resp := &GroupResponse{
		ID:        g.ID.String(),
		Name:      g.Name,
		Currency:  g.Currency,
		Members:   make([]MemberDTO, 0, len(g.Members)),
		CreatedAt: g.CreatedAt.Format(time.RFC3339),
	}
	for _, m := range g.Members {
		resp.Members = append(resp.Members, MemberDTO{ID: m.ID.String(), Name: m.Name})
	}
	return resp
}

func toShares(a domain.Allocation, currency domain.Currency) []ShareDTO {
	shares := make([]ShareDTO, 0, len(a.Shares))
	for _, s := range a.Shares {
		shares = append(shares, ShareDTO{MemberID: s.MemberID.String(), Amount: s.Amount.Format(currency)})
	}
	return shares
}

func toExpenseDTO(e *domain.Expense, shares []ShareDTO, currency domain.Currency) ExpenseDTO {
	dto := ExpenseDTO{
		ID:          e.ID.String(),
		GroupID:     e.GroupID.String(),
		Description: e.Description,
		Amount:      e.Total.Format(currency),
		PayerID:     e.PayerID.String(),
		Policy:      string(e.Policy),
		Shares:      shares,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339Nano),
	}
	if e.ReversesID != nil {
		dto.ReversesID = e.ReversesID.String()
	}
	return dto
}

// toBalances lists every group member in roster order, including settled ones
func toBalances(g *domain.Group, snapshot domain.BalanceSnapshot, currency domain.Currency) []BalanceDTO {
	balances := make([]BalanceDTO, 0, len(g.Members))
	for _, m := range g.Members {
		balances = append(balances, BalanceDTO{
			MemberID: m.ID.String(),
			Name:     m.Name,
			Amount:   snapshot[m.ID].Format(currency),
		})
	}
	return balances
}

func toTransfers(plan domain.TransferPlan, currency domain.Currency) []TransferDTO {
	transfers := make([]TransferDTO, 0, len(plan))
	for _, t := range plan {
		transfers = append(transfers, TransferDTO{From: t.From.String(), To: t.To.String(), Amount: t.Amount.Format(currency)})
	}
	return transfers
}

func toPaymentDTO(p *domain.Payment, currency domain.Currency) PaymentDTO {
	return PaymentDTO{
		ID:        p.ID.String(),
		From:      p.Transfer.From.String(),
		To:        p.Transfer.To.String(),
		Amount:    p.Transfer.Amount.Format(currency),
		Note:      p.Note,
		CreatedAt: p.CreatedAt.Format(time.RFC3339Nano),
	}
}
