package group

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/splitledger-backend/internal/domain"
	"github.com/simaogato/splitledger-backend/internal/usecase/ledger"
)

// CreateGroupInput represents the input for creating a group
type CreateGroupInput struct {
	Name        string
	Currency    string
	MemberNames []string
}

// GroupService handles group and roster operations
type GroupService struct {
	GroupRepo domain.GroupRepository
	Ledgers   *ledger.Registry
	logger    *zap.Logger
}

// NewGroupService creates a new GroupService instance
func NewGroupService(groupRepo domain.GroupRepository, ledgers *ledger.Registry, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{
		GroupRepo: groupRepo,
		Ledgers:   ledgers,
		logger:    logger.Named("group"),
	}
}

// CreateGroup creates a group with its initial members and opens an empty ledger for it
func (s *GroupService) CreateGroup(ctx context.Context, input CreateGroupInput) (*domain.Group, error) {
	currency, err := domain.LookupCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	g := &domain.Group{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(input.Name),
		Currency:  currency.Code,
		CreatedAt: now,
	}
	for _, name := range input.MemberNames {
		g.Members = append(g.Members, domain.Member{
			ID:       uuid.New(),
			GroupID:  g.ID,
			Name:     strings.TrimSpace(name),
			JoinedAt: now,
		})
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	if err := s.GroupRepo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	s.Ledgers.Put(ledger.New(g.ID, g.MemberIDs()...))

	s.logger.Info("group created",
		zap.Stringer("group_id", g.ID),
		zap.String("currency", g.Currency),
		zap.Int("members", len(g.Members)),
	)
	return g, nil
}

// AddMember adds a member to a group; the new member starts with a zero balance
func (s *GroupService) AddMember(ctx context.Context, groupID uuid.UUID, name string) (*domain.Member, error) {
	member := &domain.Member{
		ID:       uuid.New(),
		GroupID:  groupID,
		Name:     strings.TrimSpace(name),
		JoinedAt: time.Now().UTC(),
	}

	err := s.Ledgers.Do(ctx, groupID, func(l *ledger.Ledger) error {
		g, err := s.GroupRepo.GetByID(ctx, groupID)
		if err != nil {
			return err
		}

		// Validate the roster as it would look with the new member
		g.Members = append(g.Members, *member)
		if err := g.Validate(); err != nil {
			return err
		}

		if err := s.GroupRepo.AddMember(ctx, member); err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
		l.AddMember(member.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("member added", zap.Stringer("group_id", groupID), zap.Stringer("member_id", member.ID))
	return member, nil
}

// GetGroup retrieves a group and its roster
func (s *GroupService) GetGroup(ctx context.Context, groupID uuid.UUID) (*domain.Group, error) {
	return s.GroupRepo.GetByID(ctx, groupID)
}
