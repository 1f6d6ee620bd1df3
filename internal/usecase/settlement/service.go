package settlement

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

// RecordPaymentInput represents a settle-up payment made between two members
type RecordPaymentInput struct {
	GroupID uuid.UUID
	From    uuid.UUID
	To      uuid.UUID
	Amount  domain.Money
	Note    string
}

// PlanResult is a transfer plan together with the balances it was computed from
type PlanResult struct {
	Balances domain.BalanceSnapshot
	Plan     domain.TransferPlan
}

// SettlementService exposes group balances, settlement plans and settle-up payments
type SettlementService struct {
	GroupRepo   domain.GroupRepository
	PaymentRepo domain.PaymentRepository
	Ledgers     *ledger.Registry
	Publisher   domain.EventPublisher
	logger      *zap.Logger
}

// NewSettlementService creates a new SettlementService instance
func NewSettlementService(
	groupRepo domain.GroupRepository,
	paymentRepo domain.PaymentRepository,
	ledgers *ledger.Registry,
	publisher domain.EventPublisher,
	logger *zap.Logger,
) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{
		GroupRepo:   groupRepo,
		PaymentRepo: paymentRepo,
		Ledgers:     ledgers,
		Publisher:   publisher,
		logger:      logger.Named("settlement"),
	}
}

// GetBalances returns a copy of the group's current balances
func (s *SettlementService) GetBalances(ctx context.Context, groupID uuid.UUID) (domain.BalanceSnapshot, error) {
	l, err := s.Ledgers.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return l.Snapshot(), nil
}

// PlanSettlement computes the transfers that would settle the group right now.
// The plan is derived from one snapshot and is not stored.
func (s *SettlementService) PlanSettlement(ctx context.Context, groupID uuid.UUID) (*PlanResult, error) {
	balances, err := s.GetBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}

	plan, err := Plan(balances)
	if err != nil {
		s.logger.Error("cannot plan settlement", zap.Stringer("group_id", groupID), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("settlement planned",
		zap.Stringer("group_id", groupID),
		zap.Int("open_balances", balances.NonZero()),
		zap.Int("transfers", len(plan)),
	)
	return &PlanResult{Balances: balances, Plan: plan}, nil
}

// RecordPayment records a settle-up payment and applies it to the group balances
// Logic:
//  1. Validate the transfer and that both members belong to the group
//  2. Under the group lock: save the payment, then apply it to the ledger
//  3. Publish a payment.recorded event
func (s *SettlementService) RecordPayment(ctx context.Context, input RecordPaymentInput) (*domain.Payment, domain.BalanceSnapshot, error) {
	payment := &domain.Payment{
		ID:      uuid.New(),
		GroupID: input.GroupID,
		Transfer: domain.Transfer{
			From:   input.From,
			To:     input.To,
			Amount: input.Amount,
		},
		Note:      strings.TrimSpace(input.Note),
		CreatedAt: time.Now().UTC(),
	}
	if err := payment.Transfer.Validate(); err != nil {
		return nil, nil, err
	}

	g, err := s.GroupRepo.GetByID(ctx, input.GroupID)
	if err != nil {
		return nil, nil, err
	}
	if !g.HasMember(input.From) {
		return nil, nil, fmt.Errorf("%w: payer %s", domain.ErrMemberNotInGroup, input.From)
	}
	if !g.HasMember(input.To) {
		return nil, nil, fmt.Errorf("%w: receiver %s", domain.ErrMemberNotInGroup, input.To)
	}

	var balances domain.BalanceSnapshot
	err = s.Ledgers.Do(ctx, g.ID, func(l *ledger.Ledger) error {
		if err := s.PaymentRepo.Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		balances, err = l.ApplyTransfer(payment.Transfer)
		if err != nil {
			s.Ledgers.Evict(g.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("payment recorded",
		zap.Stringer("group_id", g.ID),
		zap.Stringer("payment_id", payment.ID),
		zap.Int64("amount", int64(payment.Transfer.Amount)),
	)

	if s.Publisher != nil {
		event := domain.LedgerEvent{
			Type:       domain.EventPaymentRecorded,
			GroupID:    g.ID,
			SubjectID:  payment.ID,
			Balances:   balances,
			OccurredAt: payment.CreatedAt,
		}
		if err := s.Publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish ledger event", zap.Stringer("payment_id", payment.ID), zap.Error(err))
		}
	}

	return payment, balances, nil
}

// ListPayments returns the recorded payments of a group, newest first
func (s *SettlementService) ListPayments(ctx context.Context, groupID uuid.UUID) ([]*domain.Payment, error) {
	return s.PaymentRepo.List(ctx, groupID)
}
