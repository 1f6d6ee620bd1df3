package settlement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/splitledger-backend/internal/adapter/repository/memory"
	"github.com/simaogato/splitledger-backend/internal/domain"
	"github.com/simaogato/splitledger-backend/internal/usecase/ledger"
	"github.com/simaogato/splitledger-backend/internal/usecase/splitter"
)

// MockPublisher is a mock implementation of EventPublisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type fixture struct {
	service  *SettlementService
	store    *memory.Store
	registry *ledger.Registry
	group    *domain.Group
	a, b, c  uuid.UUID
}

func setup(t *testing.T, publisher domain.EventPublisher) *fixture {
	t.Helper()
	store := memory.NewStore()
	registry := ledger.NewRegistry(ledger.RepositoryLoader(store.Groups(), store.Expenses(), store.Payments()))

	g := &domain.Group{ID: uuid.New(), Name: "Trip", Currency: "USD"}
	for _, name := range []string{"A", "B", "C"} {
		g.Members = append(g.Members, domain.Member{ID: uuid.New(), GroupID: g.ID, Name: name})
	}
	require.NoError(t, store.Groups().Create(context.Background(), g))

	return &fixture{
		service:  NewSettlementService(store.Groups(), store.Payments(), registry, publisher, nil),
		store:    store,
		registry: registry,
		group:    g,
		a:        g.Members[0].ID,
		b:        g.Members[1].ID,
		c:        g.Members[2].ID,
	}
}

// spend stores an equal-split expense directly, as the expense service would
func (f *fixture) spend(t *testing.T, total domain.Money, payer uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	participants := []domain.Participant{{MemberID: f.a}, {MemberID: f.b}, {MemberID: f.c}}
	allocation, err := splitter.Allocate(total, domain.SplitPolicyEqual, participants)
	require.NoError(t, err)

	expense := &domain.Expense{ID: uuid.New(), GroupID: f.group.ID, Total: total, PayerID: payer, Policy: domain.SplitPolicyEqual, Participants: participants}
	require.NoError(t, f.store.Expenses().Create(ctx, expense, allocation))
	f.registry.Evict(f.group.ID)
}

func TestPlanSettlement_LedgerScenario(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	f.spend(t, 9000, f.a)

	result, err := f.service.PlanSettlement(ctx, f.group.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.BalanceSnapshot{f.a: 6000, f.b: -3000, f.c: -3000}, result.Balances)
	require.Len(t, result.Plan, 2)
	assert.ElementsMatch(t, domain.TransferPlan{
		{From: f.b, To: f.a, Amount: 3000},
		{From: f.c, To: f.a, Amount: 3000},
	}, result.Plan)
}

func TestPlanSettlement_UnknownGroup(t *testing.T) {
	f := setup(t, nil)

	_, err := f.service.PlanSettlement(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordPayment_ExecutingThePlanSettlesTheGroup(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.LedgerEvent) bool {
		return e.Type == domain.EventPaymentRecorded
	})).Return(nil)
	f := setup(t, publisher)
	f.spend(t, 9000, f.a)
	f.spend(t, 1500, f.b)
	f.spend(t, 301, f.c)

	result, err := f.service.PlanSettlement(ctx, f.group.ID)
	require.NoError(t, err)

	for _, tr := range result.Plan {
		_, _, err := f.service.RecordPayment(ctx, RecordPaymentInput{
			GroupID: f.group.ID,
			From:    tr.From,
			To:      tr.To,
			Amount:  tr.Amount,
			Note:    "settle up",
		})
		require.NoError(t, err)
	}

	balances, err := f.service.GetBalances(ctx, f.group.ID)
	require.NoError(t, err)
	for _, balance := range balances {
		assert.Equal(t, domain.Money(0), balance)
	}

	payments, err := f.service.ListPayments(ctx, f.group.ID)
	require.NoError(t, err)
	assert.Len(t, payments, len(result.Plan))
	publisher.AssertNumberOfCalls(t, "Publish", len(result.Plan))

	// Payments survive a reload from storage
	f.registry.Evict(f.group.ID)
	reloaded, err := f.service.GetBalances(ctx, f.group.ID)
	require.NoError(t, err)
	assert.Equal(t, balances, reloaded)
}

func TestRecordPayment_Rejected(t *testing.T) {
	f := setup(t, nil)

	tests := []struct {
		name  string
		input RecordPaymentInput
		err   error
	}{
		{"zero amount", RecordPaymentInput{GroupID: f.group.ID, From: f.a, To: f.b}, domain.ErrValidation},
		{"self payment", RecordPaymentInput{GroupID: f.group.ID, From: f.a, To: f.a, Amount: 10}, domain.ErrValidation},
		{"outsider payer", RecordPaymentInput{GroupID: f.group.ID, From: uuid.New(), To: f.a, Amount: 10}, domain.ErrMemberNotInGroup},
		{"outsider receiver", RecordPaymentInput{GroupID: f.group.ID, From: f.a, To: uuid.New(), Amount: 10}, domain.ErrMemberNotInGroup},
		{"unknown group", RecordPaymentInput{GroupID: uuid.New(), From: f.a, To: f.b, Amount: 10}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.service.RecordPayment(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
