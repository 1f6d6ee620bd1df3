package grpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/splitledger-backend/internal/domain"
	"github.com/simaogato/splitledger-backend/internal/usecase/expense"
	"github.com/simaogato/splitledger-backend/internal/usecase/group"
	"github.com/simaogato/splitledger-backend/internal/usecase/settlement"
)

const defaultPageSize = 20

// Server implements the SplitLedger gRPC service
type Server struct {
	GroupService      *group.GroupService
	ExpenseService    *expense.ExpenseService
	SettlementService *settlement.SettlementService
}

var _ SplitLedgerServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	groupService *group.GroupService,
	expenseService *expense.ExpenseService,
	settlementService *settlement.SettlementService,
) *Server {
	return &Server{
		GroupService:      groupService,
		ExpenseService:    expenseService,
		SettlementService: settlementService,
	}
}

// CreateGroup handles the CreateGroup RPC
func (s *Server) CreateGroup(ctx context.Context, req *CreateGroupRequest) (*GroupResponse, error) {
	g, err := s.GroupService.CreateGroup(ctx, group.CreateGroupInput{
		Name:        req.Name,
		Currency:    req.Currency,
		MemberNames: req.Members,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toGroupResponse(g), nil
}

// AddMember handles the AddMember RPC
func (s *Server) AddMember(ctx context.Context, req *AddMemberRequest) (*GroupResponse, error) {
	groupID, err := parseID("group_id", req.GroupID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GroupService.AddMember(ctx, groupID, req.Name); err != nil {
		return nil, mapError(err)
	}

	g, err := s.GroupService.GetGroup(ctx, groupID)
	if err != nil {
		return nil, mapError(err)
	}
	return toGroupResponse(g), nil
}

// GetGroup handles the GetGroup RPC
func (s *Server) GetGroup(ctx context.Context, req *GroupRequest) (*GroupResponse, error) {
	g, _, err := s.loadGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	return toGroupResponse(g), nil
}

// PreviewSplit handles the PreviewSplit RPC. Nothing is recorded.
func (s *Server) PreviewSplit(ctx context.Context, req *PreviewSplitRequest) (*SplitResponse, error) {
	g, currency, err := s.loadGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}

	total, err := domain.ParseMoney(req.Amount, currency)
	if err != nil {
		return nil, mapError(err)
	}
	policy := domain.SplitPolicy(req.Policy)
	participants, err := parseParticipants(req.Participants, policy, currency)
	if err != nil {
		return nil, mapError(err)
	}
	if len(participants) == 0 && policy == domain.SplitPolicyEqual {
		for _, id := range g.MemberIDs() {
			participants = append(participants, domain.Participant{MemberID: id})
		}
	}

	allocation, err := s.ExpenseService.PreviewSplit(total, policy, participants)
	if err != nil {
		return nil, mapError(err)
	}
	return &SplitResponse{Shares: toShares(allocation, currency)}, nil
}

// RecordExpense handles the RecordExpense RPC
func (s *Server) RecordExpense(ctx context.Context, req *RecordExpenseRequest) (*ExpenseResponse, error) {
	g, currency, err := s.loadGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	input, err := expenseInput(g, currency, req)
	if err != nil {
		return nil, err
	}

	result, err := s.ExpenseService.RecordExpense(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toExpenseResponse(g, currency, result), nil
}

// ReverseExpense handles the ReverseExpense RPC
func (s *Server) ReverseExpense(ctx context.Context, req *ExpenseRequest) (*ExpenseResponse, error) {
	expenseID, err := parseID("expense_id", req.ExpenseID)
	if err != nil {
		return nil, err
	}

	result, err := s.ExpenseService.ReverseExpense(ctx, expenseID)
	if err != nil {
		return nil, mapError(err)
	}

	g, currency, err := s.loadGroup(ctx, result.Expense.GroupID.String())
	if err != nil {
		return nil, err
	}
	return toExpenseResponse(g, currency, result), nil
}

// CorrectExpense handles the CorrectExpense RPC
func (s *Server) CorrectExpense(ctx context.Context, req *CorrectExpenseRequest) (*CorrectExpenseResponse, error) {
	expenseID, err := parseID("expense_id", req.ExpenseID)
	if err != nil {
		return nil, err
	}
	g, currency, err := s.loadGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	input, err := expenseInput(g, currency, &req.RecordExpenseRequest)
	if err != nil {
		return nil, err
	}

	reversal, corrected, err := s.ExpenseService.CorrectExpense(ctx, expenseID, input)
	if err != nil {
		return nil, mapError(err)
	}
	return &CorrectExpenseResponse{
		Reversal:  *toExpenseResponse(g, currency, reversal),
		Corrected: *toExpenseResponse(g, currency, corrected),
	}, nil
}

// ListExpenses handles the ListExpenses RPC
func (s *Server) ListExpenses(ctx context.Context, req *ListExpensesRequest) (*ListExpensesResponse, error) {
	g, currency, err := s.loadGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultPageSize
	}

	expenses, total, err := s.ExpenseService.ListExpenses(ctx, g.ID, limit, req.Offset)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListExpensesResponse{Expenses: make([]ExpenseDTO, 0, len(expenses)), Total: total}
	for _, e := range expenses {
		resp.Expenses = append(resp.Expenses, toExpenseDTO(e, nil, currency))
	}
	return resp, nil
}

// GetBalances handles the GetBalances RPC
func (s *Server) GetBalances(ctx context.Context, req *GroupRequest) (*BalancesResponse, error) {
	g, currency, err := s.loadGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.SettlementService.GetBalances(ctx, g.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return &BalancesResponse{Balances: toBalances(g, snapshot, currency)}, nil
}

// PlanSettlement handles the PlanSettlement RPC
func (s *Server) PlanSettlement(ctx context.Context, req *GroupRequest) (*SettlementResponse, error) {
	g, currency, err := s.loadGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}

	result, err := s.SettlementService.PlanSettlement(ctx, g.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return &SettlementResponse{
		Transfers: toTransfers(result.Plan, currency),
		Balances:  toBalances(g, result.Balances, currency),
	}, nil
}

// RecordPayment handles the RecordPayment RPC
func (s *Server) RecordPayment(ctx context.Context, req *RecordPaymentRequest) (*PaymentResponse, error) {
	g, currency, err := s.loadGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	from, err := parseID("from", req.From)
	if err != nil {
		return nil, err
	}
	to, err := parseID("to", req.To)
	if err != nil {
		return nil, err
	}
	amount, err := domain.ParseMoney(req.Amount, currency)
	if err != nil {
		return nil, mapError(err)
	}

	payment, balances, err := s.SettlementService.RecordPayment(ctx, settlement.RecordPaymentInput{
		GroupID: g.ID,
		From:    from,
		To:      to,
		Amount:  amount,
		Note:    req.Note,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &PaymentResponse{
		Payment:  toPaymentDTO(payment, currency),
		Balances: toBalances(g, balances, currency),
	}, nil
}

// ListPayments handles the ListPayments RPC
func (s *Server) ListPayments(ctx context.Context, req *GroupRequest) (*ListPaymentsResponse, error) {
	g, currency, err := s.loadGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}

	payments, err := s.SettlementService.ListPayments(ctx, g.ID)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &ListPaymentsResponse{Payments: make([]PaymentDTO, 0, len(payments))}
	for _, p := range payments {
		resp.Payments = append(resp.Payments, toPaymentDTO(p, currency))
	}
	return resp, nil
}

// loadGroup fetches the group and resolves its currency for amount conversion
func (s *Server) loadGroup(ctx context.Context, rawID string) (*domain.Group, domain.Currency, error) {
	groupID, err := parseID("group_id", rawID)
	if err != nil {
		return nil, domain.Currency{}, err
	}
	g, err := s.GroupService.GetGroup(ctx, groupID)
	if err != nil {
		return nil, domain.Currency{}, mapError(err)
	}
	currency, err := domain.LookupCurrency(g.Currency)
	if err != nil {
		return nil, domain.Currency{}, mapError(err)
	}
	return g, currency, nil
}

func expenseInput(g *domain.Group, currency domain.Currency, req *RecordExpenseRequest) (expense.RecordExpenseInput, error) {
	total, err := domain.ParseMoney(req.Amount, currency)
	if err != nil {
		return expense.RecordExpenseInput{}, mapError(err)
	}
	payerID, err := parseID("payer_id", req.PayerID)
	if err != nil {
		return expense.RecordExpenseInput{}, err
	}
	policy := domain.SplitPolicy(req.Policy)
	participants, err := parseParticipants(req.Participants, policy, currency)
	if err != nil {
		return expense.RecordExpenseInput{}, mapError(err)
	}

	return expense.RecordExpenseInput{
		GroupID:      g.ID,
		Description:  req.Description,
		Total:        total,
		PayerID:      payerID,
		Policy:       policy,
		Participants: participants,
	}, nil
}

func toExpenseResponse(g *domain.Group, currency domain.Currency, result *expense.Result) *ExpenseResponse {
	return &ExpenseResponse{
		Expense:  toExpenseDTO(result.Expense, toShares(result.Allocation, currency), currency),
		Balances: toBalances(g, result.Balances, currency),
	}
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", field, err)
	}
	return id, nil
}
