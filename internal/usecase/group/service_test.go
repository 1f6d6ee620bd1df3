package group

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
)

// MockGroupRepository is a mock implementation of GroupRepository for testing
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, group *domain.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

func (m *MockGroupRepository) AddMember(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockGroupRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func newService() (*GroupService, *ledger.Registry) {
	store := memory.NewStore()
	registry := ledger.NewRegistry(nil)
	return NewGroupService(store.Groups(), registry, nil), registry
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	service, registry := newService()

	g, err := service.CreateGroup(ctx, CreateGroupInput{
		Name:        "  Lisbon trip ",
		Currency:    "eur",
		MemberNames: []string{"Ana", "Bruno", "Carla"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Lisbon trip", g.Name)
	assert.Equal(t, "EUR", g.Currency)
	require.Len(t, g.Members, 3)

	l, err := registry.Get(ctx, g.ID)
	require.NoError(t, err)
	snapshot := l.Snapshot()
	assert.Len(t, snapshot, 3)
	assert.Equal(t, domain.Money(0), snapshot[g.Members[0].ID])

	stored, err := service.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.MemberIDs(), stored.MemberIDs())
}

func TestCreateGroup_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input CreateGroupInput
		err   error
	}{
		{"empty name", CreateGroupInput{Name: " ", Currency: "EUR"}, domain.ErrValidation},
		{"unknown currency", CreateGroupInput{Name: "Flat", Currency: "XXX"}, domain.ErrUnknownCurrency},
		{"duplicate member", CreateGroupInput{Name: "Flat", Currency: "EUR", MemberNames: []string{"Ana", "ana"}}, domain.ErrValidation},
		{"blank member", CreateGroupInput{Name: "Flat", Currency: "EUR", MemberNames: []string{""}}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, registry := newService()

			_, err := service.CreateGroup(context.Background(), tt.input)

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 0, registry.Len())
		})
	}
}

func TestCreateGroup_RepositoryFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(MockGroupRepository)
	registry := ledger.NewRegistry(nil)
	service := NewGroupService(repo, registry, nil)

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Group")).Return(assert.AnError)

	_, err := service.CreateGroup(ctx, CreateGroupInput{Name: "Flat", Currency: "EUR", MemberNames: []string{"Ana"}})

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, registry.Len(), "no ledger is opened for a group that was not stored")
	repo.AssertExpectations(t)
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	service, registry := newService()
	g, err := service.CreateGroup(ctx, CreateGroupInput{Name: "Flat", Currency: "GBP", MemberNames: []string{"Ana"}})
	require.NoError(t, err)

	member, err := service.AddMember(ctx, g.ID, "Bruno")

	require.NoError(t, err)
	stored, err := service.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasMember(member.ID))

	l, err := registry.Get(ctx, g.ID)
	require.NoError(t, err)
	_, ok := l.Snapshot()[member.ID]
	assert.True(t, ok, "new member has a balance entry")

	_, err = service.AddMember(ctx, g.ID, "ANA")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
