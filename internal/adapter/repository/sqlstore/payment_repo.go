package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/splitledger-backend/internal/domain"
)

// paymentRepository implements domain.PaymentRepository
type paymentRepository struct {
	db *DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *DB) domain.PaymentRepository {
	return &paymentRepository{db: db}
}

// Create stores a settle-up payment
func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, group_id, from_member, to_member, amount, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.GroupID,
		payment.Transfer.From,
		payment.Transfer.To,
		int64(payment.Transfer.Amount),
		payment.Note,
		payment.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// List retrieves the payments of a group, newest first
func (r *paymentRepository) List(ctx context.Context, groupID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT id, group_id, from_member, to_member, amount, note, created_at
		FROM payments
		WHERE group_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var (
			p      domain.Payment
			amount int64
		)
		if err := rows.Scan(&p.ID, &p.GroupID, &p.Transfer.From, &p.Transfer.To, &amount, &p.Note, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Transfer.Amount = domain.Money(amount)
		p.CreatedAt = p.CreatedAt.UTC()
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}
